package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vtree/internal/config"
	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/archive"
	"github.com/vango-dev/vtree/pkg/render"
)

type replayOptions struct {
	upTo   uint64
	edits  bool
	pretty bool
	dir    string
	follow bool
}

func replayCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var opts replayOptions

	cmd := &cobra.Command{
		Use:   "replay [stream]",
		Short: "Rebuild a recorded session from the archive",
		Long: `Replay the edit frames recorded under a stream and print the
resulting document. Without a stream name, list the recorded streams.

Examples:
  vtree replay
  vtree replay counter-1718000000
  vtree replay counter-1718000000 --seq=12 --pretty
  vtree replay todo-1 --edits --dir=./frames
  vtree replay todo-1 --follow --dir=./frames`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if opts.dir != "" {
				cfg.Archive = archive.Config{Kind: archive.KindDir, Dir: opts.dir}
			}
			store, err := archive.Open(cmd.Context(), cfg.Archive)
			if err != nil {
				return errors.New("E150").Wrap(err)
			}
			if store == nil {
				return errors.New("E150").
					WithDetail("archive.kind is none").
					WithSuggestion("Set archive.kind in vtree.json or pass --dir")
			}

			if c, ok := store.(io.Closer); ok {
				defer c.Close()
			}

			if len(args) == 0 {
				return listStreams(cmd, store)
			}
			if opts.follow {
				return followStream(cmd, store, args[0], opts)
			}
			return replayStream(cmd, store, args[0], opts)
		},
	}

	cmd.Flags().Uint64Var(&opts.upTo, "seq", 0, "Stop after this sequence number (0 replays everything)")
	cmd.Flags().BoolVar(&opts.edits, "edits", false, "Print each frame's edits instead of the final document")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "Indent the printed document")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "Read a dir archive instead of the configured one")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Print edits as they are recorded (dir archives only)")

	return cmd
}

func listStreams(cmd *cobra.Command, store archive.Store) error {
	streams, err := store.Streams(cmd.Context())
	if err != nil {
		return errors.New("E150").Wrap(err)
	}
	out := cmd.OutOrStdout()
	if len(streams) == 0 {
		fmt.Fprintln(out, "No recorded streams")
		return nil
	}
	for _, s := range streams {
		fmt.Fprintln(out, s)
	}
	return nil
}

func replayStream(cmd *cobra.Command, store archive.Store, stream string, opts replayOptions) error {
	out := cmd.OutOrStdout()

	if opts.edits {
		entries, err := store.Load(cmd.Context(), stream)
		if err != nil {
			return streamError(stream, err)
		}
		return printEdits(out, entries, opts.upTo)
	}

	doc, err := archive.Replay(cmd.Context(), store, stream, opts.upTo)
	if err != nil {
		return streamError(stream, err)
	}
	r := render.NewRenderer(render.RendererConfig{Pretty: opts.pretty, Indent: "  "})
	if err := r.RenderToWriter(out, doc.Root()); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return nil
}

func printEdits(w io.Writer, entries []archive.Entry, upTo uint64) error {
	for _, e := range entries {
		if upTo > 0 && e.Seq > upTo {
			break
		}
		if err := printEntry(w, e); err != nil {
			return err
		}
	}
	return nil
}

func printEntry(w io.Writer, e archive.Entry) error {
	ef, err := archive.Decode(e)
	if err != nil {
		return errors.New("E152").Wrap(err)
	}
	fmt.Fprintf(w, "seq %d (%d edits)\n", ef.Seq, len(ef.Edits))
	for _, edit := range ef.Edits {
		fmt.Fprintf(w, "  %s\n", edit)
	}
	return nil
}

var errFollowDone = stderrors.New("follow done")

// followStream prints the edits of stream as they are appended, until
// interrupted or past --seq.
func followStream(cmd *cobra.Command, store archive.Store, stream string, opts replayOptions) error {
	dir, ok := store.(*archive.DirStore)
	if !ok {
		return errors.New("E150").
			WithDetail("--follow needs a dir archive").
			WithSuggestion("Pass --dir or set archive.kind to dir")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	err := dir.Follow(ctx, stream, func(e archive.Entry) error {
		if opts.upTo > 0 && e.Seq > opts.upTo {
			return errFollowDone
		}
		if err := printEntry(out, e); err != nil {
			return err
		}
		if opts.upTo > 0 && e.Seq == opts.upTo {
			return errFollowDone
		}
		return nil
	})
	switch {
	case err == nil, stderrors.Is(err, errFollowDone), stderrors.Is(err, context.Canceled):
		return nil
	case stderrors.Is(err, archive.ErrInvalidStream):
		return streamError(stream, err)
	}
	return err
}

func streamError(stream string, err error) error {
	if stderrors.Is(err, archive.ErrNotFound) {
		return errors.New("E151").
			WithDetail(fmt.Sprintf("No frames recorded under %q", stream)).
			WithSuggestion("Run 'vtree replay' without arguments to list streams")
	}
	if stderrors.Is(err, archive.ErrInvalidStream) {
		return errors.New("E151").Wrap(err)
	}
	return errors.New("E152").Wrap(err)
}
