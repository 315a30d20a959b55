// Package consumer drives an index build from document token batches read
// off Kafka, and publishes such batches from a local corpus.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/kafka"
)

// Indexer is the part of the build engine the consumer feeds.
type Indexer interface {
	AddDocument(path string, terms []string) (int, error)
	Finish() error
}

// IndexConsumer turns a stream of indexer.Document messages into one index
// build. The build is finished when the end-of-corpus marker arrives.
type IndexConsumer struct {
	engine Indexer
	docs   int
	err    error
	done   bool
	logger *slog.Logger
}

func New(engine Indexer) *IndexConsumer {
	return &IndexConsumer{
		engine: engine,
		logger: slog.Default().With("component", "index-consumer"),
	}
}

// Handle is the kafka.MessageHandler of the build. Undecodable messages are
// logged and skipped. An indexing failure ends consumption; Err reports it.
func (ic *IndexConsumer) Handle(ctx context.Context, key []byte, value []byte) error {
	doc, err := kafka.DecodeJSON[indexer.Document](value)
	if err != nil {
		ic.logger.Error("failed to decode document", "error", err, "key", string(key))
		return nil
	}
	if doc.Final {
		ic.done = true
		if err := ic.engine.Finish(); err != nil {
			ic.err = fmt.Errorf("finishing index: %w", err)
		}
		ic.logger.Info("corpus complete", "docs", ic.docs)
		return kafka.ErrStop
	}
	docID, err := ic.engine.AddDocument(doc.Path, doc.Tokens)
	if err != nil {
		ic.err = fmt.Errorf("indexing %s: %w", doc.Path, err)
		return kafka.ErrStop
	}
	ic.docs++
	ic.logger.Debug("document consumed", "doc_id", docID, "path", doc.Path, "tokens", len(doc.Tokens))
	return nil
}

// Err is the failure that stopped the build, if any.
func (ic *IndexConsumer) Err() error {
	return ic.err
}

// Done reports whether the end-of-corpus marker was processed.
func (ic *IndexConsumer) Done() bool {
	return ic.done
}

func (ic *IndexConsumer) Docs() int {
	return ic.docs
}

// Publisher is the part of kafka.Producer used to ship a corpus.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// PublishBatchSize is the number of documents written per Kafka request.
const PublishBatchSize = 100

// PublishCorpus tokenizes every file below dir, publishes one message per
// document under key and closes the stream with the end-of-corpus marker.
// All messages share key so that they land on one partition in order.
func PublishCorpus(ctx context.Context, p Publisher, dir string, key string) (int, error) {
	logger := slog.Default().With("component", "corpus-publisher")
	docs := 0
	batch := make([]kafka.Event, 0, PublishBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.PublishBatch(ctx, batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}
	err := indexer.WalkCorpus(ctx, dir, func(doc indexer.Document) error {
		batch = append(batch, kafka.Event{Key: key, Value: doc})
		docs++
		if len(batch) == PublishBatchSize {
			if err := flush(); err != nil {
				return err
			}
			logger.Info("publishing corpus", "docs", docs)
		}
		return nil
	})
	if err != nil {
		return docs, fmt.Errorf("publishing %s: %w", dir, err)
	}
	batch = append(batch, kafka.Event{Key: key, Value: indexer.Document{Final: true}})
	if err := flush(); err != nil {
		return docs, fmt.Errorf("publishing end-of-corpus marker: %w", err)
	}
	logger.Info("corpus published", "docs", docs, "dir", dir)
	return docs, nil
}
