package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	mode := flag.String("mode", "local", "local: index -corpus directly; produce: publish -corpus to kafka; consume: build the index from kafka")
	corpus := flag.String("corpus", "", "corpus directory (local and produce modes)")
	force := flag.Bool("force", false, "rebuild even if an index already exists")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	// The indexer exists to produce the on-disk index.
	cfg.Index.KeepInMemory = false

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting indexer", "mode", *mode, "data_dir", cfg.Index.DataDir)

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

	if err := run(ctx, cfg, m, *mode, *corpus, *force); err != nil {
		slog.Error("indexer failed", "mode", *mode, "error", err)
		os.Exit(1)
	}
	slog.Info("indexer stopped")
}

func run(ctx context.Context, cfg *config.Config, m *metrics.Metrics, mode, corpus string, force bool) error {
	if mode == "produce" {
		if corpus == "" {
			return fmt.Errorf("-corpus is required in produce mode")
		}
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentTokens)
		defer producer.Close()
		n, err := consumer.PublishCorpus(ctx, producer, corpus, corpus)
		if err != nil {
			return err
		}
		slog.Info("corpus published", "docs", n, "topic", cfg.Kafka.Topics.DocumentTokens)
		return nil
	}

	if !force && !indexer.NeedIndexing(cfg.Index) {
		slog.Info("index already present, nothing to do", "data_dir", cfg.Index.DataDir)
		return nil
	}
	engine, err := indexer.NewEngine(cfg.Index, m)
	if err != nil {
		return err
	}
	defer engine.Close()

	start := time.Now()
	switch mode {
	case "local":
		if corpus == "" {
			return fmt.Errorf("-corpus is required in local mode")
		}
		n, err := indexer.IndexDirectory(ctx, engine, corpus)
		if err != nil {
			return err
		}
		slog.Info("index built", "docs", n, "elapsed", time.Since(start))
	case "consume":
		ic := consumer.New(engine)
		c := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentTokens, ic.Handle)
		slog.Info("consuming document tokens",
			"topic", cfg.Kafka.Topics.DocumentTokens,
			"group", cfg.Kafka.ConsumerGroup,
		)
		err := c.Run(ctx)
		lag := c.Lag()
		c.Close()
		if err != nil {
			return err
		}
		if err := ic.Err(); err != nil {
			return err
		}
		if !ic.Done() {
			return fmt.Errorf("consumer stopped before end of corpus after %d documents", ic.Docs())
		}
		slog.Info("index built", "docs", ic.Docs(), "elapsed", time.Since(start), "remaining_lag", lag)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
	return nil
}
