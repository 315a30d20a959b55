package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/pagerank"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/pagerank/store"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	links := flag.String("links", "", "link file (overrides pagerank.linksFile)")
	method := flag.String("method", "", "s, mc1..mc5, or eval (overrides pagerank.method)")
	samples := flag.Int("samples", 0, "walks for mc1/mc5 or walks per page for mc2..mc4; 0 uses the defaults")
	evalOut := flag.String("eval-out", "results.txt", "output of -method eval")
	top := flag.Bool("eval-top", false, "evaluate on the 50 highest instead of the 50 lowest ranked pages")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *links != "" {
		cfg.PageRank.LinksFile = *links
	}
	if *method != "" {
		cfg.PageRank.Method = *method
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.PageRank.LinksFile == "" {
		slog.Error("no link file given")
		os.Exit(2)
	}
	g, err := pagerank.LoadGraph(cfg.PageRank.LinksFile)
	if err != nil {
		slog.Error("failed to read link graph", "error", err)
		os.Exit(1)
	}
	slog.Info("link graph loaded", "file", cfg.PageRank.LinksFile, "nodes", g.N(), "edges", g.Edges(), "sinks", g.Sinks())

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(nil)
		stopMetrics, err := metrics.Serve(ctx, cfg.Metrics.Port)
		if err != nil {
			slog.Warn("metrics endpoint disabled", "error", err)
		} else {
			defer stopMetrics()
		}
	}

	if cfg.PageRank.Method == "eval" {
		err = evaluate(ctx, cfg, g, *evalOut, *top)
	} else {
		err = compute(ctx, cfg, g, m, *samples)
	}
	if err != nil {
		slog.Error("pagerank failed", "method", cfg.PageRank.Method, "error", err)
		os.Exit(1)
	}
}

func compute(ctx context.Context, cfg *config.Config, g *pagerank.Graph, m *metrics.Metrics, samples int) error {
	method, err := pagerank.ParseMethod(cfg.PageRank.Method)
	if err != nil {
		return err
	}
	if samples == 0 {
		samples = cfg.PageRank.Walks
	}
	start := time.Now()
	scores, iterations, err := pagerank.Compute(ctx, g, method, pagerank.ParamsFromConfig(cfg.PageRank),
		newRand(cfg.PageRank.Seed), samples, cfg.PageRank.WalksPerPage)
	if err != nil {
		return err
	}
	if m != nil {
		m.PageRankIterations.WithLabelValues(string(method)).Set(float64(iterations))
		m.PageRankDuration.WithLabelValues(string(method)).Observe(time.Since(start).Seconds())
	}

	ranked := pagerank.Rank(g, scores)
	if err := pagerank.SaveFile(cfg.PageRank.ScoresFile, func(w io.Writer) error {
		return pagerank.WriteScores(w, ranked)
	}); err != nil {
		return err
	}
	if err := pagerank.SaveFile(cfg.PageRank.ReportFile, func(w io.Writer) error {
		return pagerank.WriteReport(w, ranked, cfg.PageRank.ReportSize)
	}); err != nil {
		return err
	}
	slog.Info("pagerank written", "scores", cfg.PageRank.ScoresFile, "report", cfg.PageRank.ReportFile,
		"elapsed", time.Since(start))

	if !cfg.Postgres.Enabled {
		return nil
	}
	pg, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()
	s := store.New(pg)
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}
	return s.SaveScores(ctx, method, ranked)
}

func evaluate(ctx context.Context, cfg *config.Config, g *pagerank.Graph, out string, top bool) error {
	p := pagerank.ParamsFromConfig(cfg.PageRank)
	exact := pagerank.PowerIteration(g, p)
	opts := pagerank.DefaultEvalOptions()
	opts.Top = top
	opts.Seed = cfg.PageRank.Seed
	if opts.Seed == 0 {
		opts.Seed = rand.Uint64()
	}
	ev, err := pagerank.Evaluate(ctx, g, exact.Scores, p, opts)
	if err != nil {
		return err
	}
	if err := pagerank.SaveFile(out, func(w io.Writer) error {
		_, err := ev.WriteTo(w)
		return err
	}); err != nil {
		return err
	}
	slog.Info("evaluation written", "file", out, "data_points", opts.DataPoints, "repeats", opts.Repeats)
	return nil
}

// newRand returns a seeded PCG generator, or nil for seed 0 so that the
// walker seeds itself.
func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
