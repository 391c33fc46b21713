package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vtree/pkg/engine"
	"github.com/vango-dev/vtree/pkg/hooks"
	"github.com/vango-dev/vtree/pkg/protocol"
	"github.com/vango-dev/vtree/pkg/render"
	"github.com/vango-dev/vtree/pkg/vdom"
)

type benchProfile struct {
	Name       string
	ListSize   int
	Iterations int
}

var benchProfiles = map[string]benchProfile{
	"fast":     {Name: "fast", ListSize: 100, Iterations: 200},
	"standard": {Name: "standard", ListSize: 1000, Iterations: 500},
	"stress":   {Name: "stress", ListSize: 10000, Iterations: 200},
}

type benchConfig struct {
	Profile    string
	ListSize   int
	Iterations int
	Seed       int64
	JSONOutput string
}

// benchOp transforms the key list between renders.
type benchOp struct {
	Name  string
	Apply func(keys []int, r *rand.Rand, next *int) []int
}

var benchOps = []benchOp{
	{"append", func(keys []int, _ *rand.Rand, next *int) []int {
		*next++
		return append(clone(keys), *next)
	}},
	{"prepend", func(keys []int, _ *rand.Rand, next *int) []int {
		*next++
		return append([]int{*next}, keys...)
	}},
	{"swap", func(keys []int, r *rand.Rand, _ *int) []int {
		out := clone(keys)
		if len(out) > 1 {
			i, j := r.Intn(len(out)), r.Intn(len(out))
			out[i], out[j] = out[j], out[i]
		}
		return out
	}},
	{"reverse", func(keys []int, _ *rand.Rand, _ *int) []int {
		out := make([]int, len(keys))
		for i, k := range keys {
			out[len(keys)-1-i] = k
		}
		return out
	}},
	{"shuffle", func(keys []int, r *rand.Rand, _ *int) []int {
		out := clone(keys)
		r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	}},
	{"remove", func(keys []int, r *rand.Rand, _ *int) []int {
		if len(keys) == 0 {
			return keys
		}
		i := r.Intn(len(keys))
		return append(clone(keys[:i]), keys[i+1:]...)
	}},
}

func clone(keys []int) []int {
	return append([]int(nil), keys...)
}

type opStats struct {
	Runs      int           `json:"runs"`
	Edits     int           `json:"edits"`
	Bytes     int           `json:"bytes"`
	P50       time.Duration `json:"p50_ns"`
	P99       time.Duration `json:"p99_ns"`
	Max       time.Duration `json:"max_ns"`
	durations []time.Duration
}

type benchResult struct {
	Profile    string              `json:"profile"`
	ListSize   int                 `json:"list_size"`
	Iterations int                 `json:"iterations"`
	Seed       int64               `json:"seed"`
	Total      time.Duration       `json:"total_ns"`
	Ops        map[string]*opStats `json:"ops"`
	FinalLen   int                 `json:"final_len"`
}

func benchCmd() *cobra.Command {
	var cfg benchConfig

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark keyed list reconciliation",
		Long: `Drive a keyed list through appends, prepends, swaps, reversals,
shuffles and removals, diffing after each change. Every edit script is
applied to a reference document to check it.

Profiles:
  fast       100 items, 200 iterations
  standard   1000 items, 500 iterations
  stress     10000 items, 200 iterations`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := benchProfiles[cfg.Profile]
			if !ok {
				return fmt.Errorf("unknown profile %q (fast, standard, stress)", cfg.Profile)
			}
			if cfg.ListSize <= 0 {
				cfg.ListSize = p.ListSize
			}
			if cfg.Iterations <= 0 {
				cfg.Iterations = p.Iterations
			}

			res, err := runBench(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			printBenchResult(cmd.OutOrStdout(), res)
			if cfg.JSONOutput != "" {
				if err := writeBenchJSON(cfg.JSONOutput, res); err != nil {
					return err
				}
				success(cmd, "Wrote %s", cfg.JSONOutput)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfg.Profile, "profile", "p", "fast", "Benchmark profile")
	cmd.Flags().IntVar(&cfg.ListSize, "items", 0, "Initial list size (default from profile)")
	cmd.Flags().IntVarP(&cfg.Iterations, "iterations", "n", 0, "Number of updates (default from profile)")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", 1, "Random seed")
	cmd.Flags().StringVar(&cfg.JSONOutput, "json", "", "Write results as JSON to this file")

	return cmd
}

// benchList renders a keyed <ul> from the key list held in its state.
type benchList struct {
	initial []int
	state   *hooks.State[[]int]
}

func (b *benchList) Render(cx vdom.Context) (*vdom.VNode, error) {
	b.state = hooks.UseState(cx, b.initial)
	return vdom.Ul(vdom.Range(b.state.Get(), func(k int, _ int) *vdom.VNode {
		return vdom.Li(vdom.Key(k), vdom.Textf("item %d", k))
	})), nil
}

func runBench(ctx context.Context, cfg benchConfig) (*benchResult, error) {
	r := rand.New(rand.NewSource(cfg.Seed))
	keys := make([]int, cfg.ListSize)
	for i := range keys {
		keys[i] = i + 1
	}
	next := cfg.ListSize

	list := &benchList{initial: keys}
	dom := engine.New(list)
	doc := render.NewDocument()

	edits, err := dom.Rebuild(ctx)
	if err != nil {
		return nil, err
	}
	if err := doc.Apply(edits); err != nil {
		return nil, fmt.Errorf("initial script: %w", err)
	}

	res := &benchResult{
		Profile:    cfg.Profile,
		ListSize:   cfg.ListSize,
		Iterations: cfg.Iterations,
		Seed:       cfg.Seed,
		Ops:        make(map[string]*opStats, len(benchOps)),
	}
	never := func() bool { return false }

	for i := 0; i < cfg.Iterations; i++ {
		op := benchOps[i%len(benchOps)]
		keys = op.Apply(keys, r, &next)
		list.state.Set(keys)

		start := time.Now()
		edits, err := dom.WorkWithDeadline(ctx, never)
		elapsed := time.Since(start)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op.Name, err)
		}
		if err := doc.Apply(edits); err != nil {
			return nil, fmt.Errorf("%s: iteration %d: %w", op.Name, i, err)
		}

		st := res.Ops[op.Name]
		if st == nil {
			st = &opStats{}
			res.Ops[op.Name] = st
		}
		st.Runs++
		st.Edits += len(edits)
		st.Bytes += len(protocol.EncodeEdits(&protocol.EditsFrame{Seq: uint64(i + 2), Edits: edits}))
		st.durations = append(st.durations, elapsed)
		res.Total += elapsed
	}

	for _, st := range res.Ops {
		sort.Slice(st.durations, func(i, j int) bool { return st.durations[i] < st.durations[j] })
		st.P50 = percentile(st.durations, 0.50)
		st.P99 = percentile(st.durations, 0.99)
		st.Max = st.durations[len(st.durations)-1]
	}

	if ul := doc.Root().Children; len(ul) == 1 {
		res.FinalLen = len(ul[0].Children)
	}
	if res.FinalLen != len(keys) && len(keys) > 0 {
		return nil, fmt.Errorf("document has %d items, want %d", res.FinalLen, len(keys))
	}
	return res, nil
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

func printBenchResult(w io.Writer, res *benchResult) {
	fmt.Fprintf(w, "\n  profile %s: %d items, %d updates, seed %d\n\n", res.Profile, res.ListSize, res.Iterations, res.Seed)
	fmt.Fprintf(w, "  %-8s %6s %10s %10s %10s %10s %10s\n", "op", "runs", "edits/run", "bytes/run", "p50", "p99", "max")
	for _, op := range benchOps {
		st, ok := res.Ops[op.Name]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "  %-8s %6d %10d %10d %10s %10s %10s\n",
			op.Name, st.Runs, st.Edits/st.Runs, st.Bytes/st.Runs,
			st.P50.Round(time.Microsecond), st.P99.Round(time.Microsecond), st.Max.Round(time.Microsecond))
	}
	fmt.Fprintf(w, "\n  total diff time %s, final list %d items\n\n", res.Total.Round(time.Microsecond), res.FinalLen)
}

func writeBenchJSON(path string, res *benchResult) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
