package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/pagerank"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/pagerank/store"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	corpus := flag.String("corpus", "", "corpus directory to index when no index is available")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "data_dir", cfg.Index.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	idx, rebuilt, err := loadIndex(ctx, cfg, m, *corpus)
	if err != nil {
		slog.Error("failed to load index", "error", err)
		os.Exit(1)
	}
	defer idx.Close()

	var pg *postgres.Client
	if cfg.Postgres.Enabled {
		pg, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, falling back to the scores file", "error", err)
		} else {
			defer pg.Close()
		}
	}
	if err := loadPageRank(ctx, cfg, idx, pg); err != nil {
		slog.Warn("pagerank scores not loaded, pagerank ranking will score zero", "error", err)
	}

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL)
			if rebuilt {
				if _, err := queryCache.Invalidate(ctx); err != nil {
					slog.Warn("stale cache entries not flushed", "error", err)
				}
			}
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	if m != nil {
		m.RegisterGaugeFunc("index_resident_postings_lists", "Unigram postings lists held in memory.", func() float64 {
			return float64(idx.Stats().ResidentTerms)
		})
		m.RegisterGaugeFunc("index_resident_bigram_lists", "Bigram postings lists held in memory.", func() float64 {
			return float64(idx.Stats().ResidentBigrams)
		})
		m.RegisterGaugeFunc("index_documents", "Documents in the served index.", func() float64 {
			return float64(idx.NumDocs())
		})
		if queryCache != nil {
			m.RegisterGaugeFunc("search_cache_circuit_state", "Redis cache breaker: 0 closed, 1 open, 2 half-open.", func() float64 {
				return float64(queryCache.CircuitState())
			})
		}
	}

	checker := health.NewChecker()
	checker.Register("index", health.IndexCheck(idx.NumDocs))
	if redisClient != nil {
		checker.Register("redis", health.PingCheck(redisClient.Ping, health.StatusDegraded))
	}
	if pg != nil {
		checker.Register("postgres", health.PingCheck(pg.Ping, health.StatusDegraded))
	}

	h := handler.New(executor.New(idx, cfg.Search), queryCache, idx, m, cfg.Search)
	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.CORS(cfg.Server.CORSOrigins)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr, "docs", idx.NumDocs())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}

// loadIndex reopens the on-disk index, or builds one from corpus when there
// is none or the index is configured to live in memory. The boolean
// reports a fresh build.
func loadIndex(ctx context.Context, cfg *config.Config, m *metrics.Metrics, corpus string) (*index.Index, bool, error) {
	if !indexer.NeedIndexing(cfg.Index) {
		idx, err := indexer.Open(cfg.Index)
		return idx, false, err
	}
	if corpus == "" {
		return nil, false, fmt.Errorf("no index in %s and no -corpus given", cfg.Index.DataDir)
	}
	engine, err := indexer.NewEngine(cfg.Index, m)
	if err != nil {
		return nil, false, err
	}
	start := time.Now()
	n, err := indexer.IndexDirectory(ctx, engine, corpus)
	if err != nil {
		engine.Close()
		return nil, false, err
	}
	slog.Info("corpus indexed", "docs", n, "elapsed", time.Since(start), "in_memory", cfg.Index.KeepInMemory)
	return engine.Index(), true, nil
}

// loadPageRank attaches the titles map and the PageRank scores, read from
// PostgreSQL when available and from the scores file otherwise.
func loadPageRank(ctx context.Context, cfg *config.Config, idx *index.Index, pg *postgres.Client) error {
	if cfg.Search.TitlesFile != "" {
		titles, err := pagerank.LoadTitles(cfg.Search.TitlesFile)
		if err != nil {
			return err
		}
		idx.SetDocNumbers(titles)
	}

	method, err := pagerank.ParseMethod(cfg.PageRank.Method)
	if err != nil {
		return err
	}
	var src store.ScoreSource
	if pg != nil {
		src = store.New(pg)
	}
	scores, origin, err := store.LoadWithFallback(ctx, src, method, cfg.Search.ScoresFile)
	if err != nil {
		return err
	}
	if scores == nil {
		return nil
	}
	idx.SetPageRanks(scores)
	slog.Info("pagerank scores loaded", "docs", len(scores), "source", origin)
	return nil
}
