package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/vtree/internal/config"
	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/archive"
	"github.com/vango-dev/vtree/pkg/engine"
	"github.com/vango-dev/vtree/pkg/server"
)

type serveOptions struct {
	app    string
	addr   string
	stream string
	events bool
}

func serveCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host a demo component over WebSocket",
		Long: `Host one of the built-in demo components. A renderer connects to
/ws, performs the handshake and receives edit scripts as the tree changes.

Available apps:
` + describeApps() + `
Examples:
  vtree serve
  vtree serve --app=todo --addr=127.0.0.1:9000
  vtree serve --app=clock --stream=clock-1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if opts.addr != "" {
				cfg.Server.Addr = opts.addr
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			printBanner(cmd)
			return runServe(ctx, cmd, cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.app, "app", "a", "counter", "Demo app to host")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (default from vtree.json)")
	cmd.Flags().StringVar(&opts.stream, "stream", "", "Archive stream name (default <app>-<random id>)")
	cmd.Flags().BoolVar(&opts.events, "events", true, "Mirror edit frames to Server-Sent Events observers at /events")

	return cmd
}

// service is everything runServe starts, built separately so tests can
// drive it without a listener.
type service struct {
	host     *server.Host
	handler  http.Handler
	store    archive.Store
	recorder *archive.Recorder
	events   *server.EventFeed
	logger   *slog.Logger
}

// close releases what the host does not own. The host must be closed first.
func (s *service) close() error {
	if s.events != nil {
		s.events.Close()
	}
	if c, ok := s.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func newService(ctx context.Context, cfg *config.Config, opts serveOptions, logOut io.Writer) (*service, error) {
	app, ok := lookupApp(opts.app)
	if !ok {
		return nil, errors.New("E140").
			WithDetail(fmt.Sprintf("%q is not a demo app", opts.app)).
			WithSuggestion("Pick one of: " + fmt.Sprint(appNames()))
	}

	logger := cfg.Logger(logOut)
	svc := &service{logger: logger}

	hostOpts := []server.HostOption{server.WithHostLogger(logger.With("component", "server"))}
	engineOpts := []engine.Option{engine.WithLogger(logger.With("component", "engine"))}

	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		engineOpts = append(engineOpts, engine.WithMetrics(engine.NewMetrics(
			engine.WithRegistry(reg),
			engine.WithNamespace(cfg.Metrics.Namespace),
		)))
		hostOpts = append(hostOpts, server.WithHostMetrics(server.NewHostMetrics(reg, cfg.Metrics.Namespace)))
		gatherer = reg
	}

	store, err := archive.Open(ctx, cfg.Archive)
	if err != nil {
		return nil, errors.New("E150").Wrap(err)
	}
	if store != nil {
		stream := opts.stream
		if stream == "" {
			stream = app.Name + "-" + uuid.NewString()[:8]
		}
		rec, err := archive.NewRecorder(store, stream)
		if err != nil {
			if c, ok := store.(io.Closer); ok {
				c.Close()
			}
			return nil, errors.New("E150").
				WithSuggestion("Stream names may not contain path separators").
				Wrap(err)
		}
		svc.store = store
		svc.recorder = rec
		hostOpts = append(hostOpts, server.WithRecorder(rec))
	}

	if opts.events {
		svc.events = server.NewEventFeed(cfg.Server.PatchHistory)
		hostOpts = append(hostOpts, server.WithRecorder(svc.events))
	}

	hostOpts = append(hostOpts, server.WithEngineOptions(engineOpts...))
	svc.host = server.NewHost(app.Root, cfg.HostConfig(), hostOpts...)
	svc.handler = server.NewRouter(svc.host, server.RouterConfig{
		Gatherer: gatherer,
		Events:   svc.events,
		Logger:   logger.With("component", "http"),
	})
	return svc, nil
}

func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config, opts serveOptions) error {
	svc, err := newService(ctx, cfg, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		svc.host.Close()
		if err := svc.close(); err != nil {
			svc.logger.Warn("archive close failed", "error", err)
		}
	}()
	if err := svc.host.Start(ctx); err != nil {
		return errors.New("E141").Wrap(err)
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return errors.New("E141").
			WithSuggestion("Is another process listening on " + cfg.Server.Addr + "?").
			Wrap(err)
	}

	srv := &http.Server{
		Handler:           svc.handler,
		ReadHeaderTimeout: time.Duration(cfg.Server.HandshakeTimeout),
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	success(cmd, "Serving %s on http://%s", opts.app, ln.Addr())
	info(cmd, "WebSocket  ws://%s/ws", ln.Addr())
	if svc.events != nil {
		info(cmd, "Events     http://%s/events", ln.Addr())
	}
	if cfg.Metrics.Enabled {
		info(cmd, "Metrics    http://%s/metrics", ln.Addr())
	}
	if svc.recorder != nil {
		info(cmd, "Recording  %s (%s archive)", svc.recorder.Stream(), cfg.Archive.Kind)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !stderrors.Is(err, http.ErrServerClosed) {
			return errors.New("E141").Wrap(err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(cmd.OutOrStdout(), "\n  Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout))
		defer cancel()

		// Shutdown does not track hijacked connections or event streams;
		// closing the host and the feed ends them.
		svc.host.Close()
		if svc.events != nil {
			svc.events.Close()
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			svc.logger.Warn("shutdown incomplete", "error", err)
			return srv.Close()
		}
		return nil
	})
	return g.Wait()
}
