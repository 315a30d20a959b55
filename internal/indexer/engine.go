package indexer

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/metrics"
)

// Engine builds an index from (token, docID, offset) triples. With
// KeepInMemory unset it spills a block whenever the resident dictionary
// grows past MemoryLimit and merges the blocks on Finish.
type Engine struct {
	cfg          config.IndexConfig
	idx          *index.Index
	writer       *segment.Writer
	bigramWriter *segment.Writer
	metrics      *metrics.Metrics
	logger       *slog.Logger

	nextDocID   int
	nextBlock   int
	nextBigram  int
	bigramDocs  int
	totalTokens int64
	finished    bool
}

// NewEngine prepares an empty build. m may be nil. In on-disk mode stale
// canonical files in the data directory are removed first.
func NewEngine(cfg config.IndexConfig, m *metrics.Metrics) (*Engine, error) {
	e := &Engine{
		cfg:          cfg,
		idx:          index.New(cfg),
		writer:       segment.NewWriter(segment.UnigramLayout(cfg)),
		bigramWriter: segment.NewWriter(segment.BigramLayout(cfg)),
		metrics:      m,
		logger:       slog.Default().With("component", "indexer"),
	}
	if cfg.KeepInMemory {
		return e, nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating index data directory: %w", err)
	}
	if err := multierror.Append(e.writer.Reset(), e.bigramWriter.Reset()).ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("clearing previous index: %w", err)
	}
	return e, nil
}

// Index is the index being built. It is complete once Finish returns.
func (e *Engine) Index() *index.Index {
	return e.idx
}

// AddDocument registers path under the next document id and inserts its
// terms at consecutive offsets. Bigrams pair every term with its
// predecessor, the first with the empty string.
func (e *Engine) AddDocument(path string, terms []string) (int, error) {
	docID := e.nextDocID
	e.nextDocID++
	e.idx.AddFilePath(docID, path)

	prev := ""
	for offset, term := range terms {
		if err := e.InsertToken(term, docID, offset); err != nil {
			return docID, err
		}
		if e.cfg.IndexBigrams {
			if err := e.insertBigram(prev+","+term, docID, offset); err != nil {
				return docID, err
			}
			prev = term
		}
	}
	e.idx.SetDocLength(docID, len(terms))
	if e.cfg.IndexBigrams && len(terms) > 0 {
		e.bigramDocs++
	}
	e.totalTokens += int64(len(terms))
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Inc()
		e.metrics.TokensIndexedTotal.Add(float64(len(terms)))
	}
	e.logger.Debug("document indexed", "doc_id", docID, "path", path, "tokens", len(terms))
	return docID, nil
}

// InsertToken adds one triple and spills the resident dictionary when it
// exceeds the memory limit.
func (e *Engine) InsertToken(term string, docID int, offset int) error {
	e.idx.Insert(term, docID, offset)
	if e.cfg.KeepInMemory || e.idx.Size() <= e.cfg.MemoryLimit {
		return nil
	}
	return e.spill()
}

func (e *Engine) insertBigram(bigram string, docID int, offset int) error {
	e.idx.InsertBigram(bigram, docID, offset)
	if e.cfg.KeepInMemory || e.idx.BigramSize() <= e.cfg.MemoryLimit {
		return nil
	}
	return e.spillBigrams()
}

func (e *Engine) spill() error {
	terms := e.idx.Size()
	if err := e.idx.TransferToDisk(e.writer, e.nextBlock); err != nil {
		return err
	}
	e.logger.Info("index block spilled", "block", e.nextBlock, "terms", terms)
	e.nextBlock++
	if e.metrics != nil {
		e.metrics.BlocksSpilledTotal.Inc()
	}
	return nil
}

func (e *Engine) spillBigrams() error {
	if err := e.idx.TransferBigramsToDisk(e.bigramWriter, e.nextBigram); err != nil {
		return err
	}
	e.logger.Info("bigram block spilled", "block", e.nextBigram)
	e.nextBigram++
	if e.metrics != nil {
		e.metrics.BlocksSpilledTotal.Inc()
	}
	return nil
}

// Finish completes the build. In memory it computes tf-idf scores; on disk
// it spills the remainder, merges all blocks, writes the offset indexes and
// the length table, then attaches readers to the index.
func (e *Engine) Finish() error {
	if e.finished {
		return nil
	}
	start := time.Now()
	e.idx.SetNumDocs(e.nextDocID)
	e.idx.SetNumBigramDocs(e.bigramDocs)

	if e.cfg.KeepInMemory {
		e.idx.CalculateScores()
		e.finished = true
		e.logger.Info("in-memory index ready",
			"docs", e.nextDocID,
			"terms", e.idx.Size(),
			"tokens", e.totalTokens,
		)
		return nil
	}

	if st := e.idx.Stats(); st.ResidentTerms > 0 || st.ResidentPaths > 0 || e.nextBlock == 0 {
		if err := e.spill(); err != nil {
			return err
		}
	}
	if e.idx.BigramSize() > 0 || e.nextBigram == 0 {
		if err := e.spillBigrams(); err != nil {
			return err
		}
	}
	if err := e.merge(e.writer, e.nextBlock); err != nil {
		return err
	}
	if err := e.merge(e.bigramWriter, e.nextBigram); err != nil {
		return err
	}
	if err := e.writer.WriteLengths(e.idx.DocLengths()); err != nil {
		return fmt.Errorf("writing document lengths: %w", err)
	}
	if err := attach(e.idx, e.cfg); err != nil {
		return err
	}
	e.finished = true
	e.logger.Info("on-disk index ready",
		"docs", e.nextDocID,
		"blocks", e.nextBlock,
		"tokens", e.totalTokens,
		"duration", time.Since(start).String(),
	)
	return nil
}

func (e *Engine) merge(w *segment.Writer, blocks int) error {
	status := "success"
	defer func() {
		if e.metrics != nil {
			e.metrics.IndexMergesTotal.WithLabelValues(status).Inc()
		}
	}()
	if err := w.MergeBlocks(blocks); err != nil {
		status = "error"
		return fmt.Errorf("merging %d blocks: %w", blocks, err)
	}
	if err := w.CreateOffsetIndex(); err != nil {
		status = "error"
		return err
	}
	return nil
}

func (e *Engine) Close() error {
	return e.idx.Close()
}

// NeedIndexing reports whether the corpus must be indexed before serving:
// always in memory mode, and on disk when any canonical file is missing.
func NeedIndexing(cfg config.IndexConfig) bool {
	if cfg.KeepInMemory {
		return true
	}
	l := segment.UnigramLayout(cfg)
	for _, name := range []string{l.Postings, l.Offsets, l.Paths, l.Lengths} {
		if _, err := os.Stat(name); err != nil {
			return true
		}
	}
	return false
}

// Open reopens an index previously built on disk.
func Open(cfg config.IndexConfig) (*index.Index, error) {
	idx := index.New(cfg)
	if err := attach(idx, cfg); err != nil {
		return nil, err
	}
	return idx, nil
}

func attach(idx *index.Index, cfg config.IndexConfig) error {
	logger := slog.Default().With("component", "indexer")
	lengths, err := segment.ReadLengths(segment.UnigramLayout(cfg).Lengths)
	if err != nil {
		return fmt.Errorf("loading document lengths: %w", apperrors.ErrIndexUnavailable)
	}
	unigrams, err := segment.OpenReader(segment.UnigramLayout(cfg), cfg)
	if err != nil {
		return err
	}
	var bigrams index.Source
	if r, err := segment.OpenReader(segment.BigramLayout(cfg), cfg); err != nil {
		logger.Warn("bigram index unavailable, bigram queries will be empty", "error", err)
	} else {
		bigrams = r
	}

	bigramDocs := 0
	for _, n := range lengths {
		if n > 0 {
			bigramDocs++
		}
	}
	idx.SetDocLengths(lengths)
	idx.SetNumDocs(len(lengths))
	idx.SetNumBigramDocs(bigramDocs)
	idx.Attach(unigrams, bigrams)
	logger.Info("index attached", "dir", cfg.DataDir, "docs", len(lengths))
	return nil
}
