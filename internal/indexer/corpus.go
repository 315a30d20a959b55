package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/indexer/tokenizer"
)

// Document is one corpus file reduced to its terms. It is also the payload
// the producer publishes and the consumer indexes.
type Document struct {
	Path   string   `json:"path"`
	Tokens []string `json:"tokens,omitempty"`
	// Final marks the end of the corpus; it carries no document.
	Final bool `json:"final,omitempty"`
}

// WalkCorpus tokenizes every regular file below dir in lexical order and
// hands it to fn. Hidden files and directories are skipped.
func WalkCorpus(ctx context.Context, dir string, fn func(Document) error) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		tokens, err := tokenizer.TokenizeReader(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("tokenizing %s: %w", path, err)
		}
		return fn(Document{Path: path, Tokens: tokenizer.Terms(tokens)})
	})
}

// IndexDirectory feeds every corpus file below dir into e and finishes the
// build. It returns the number of documents indexed.
func IndexDirectory(ctx context.Context, e *Engine, dir string) (int, error) {
	docs := 0
	err := WalkCorpus(ctx, dir, func(doc Document) error {
		if _, err := e.AddDocument(doc.Path, doc.Tokens); err != nil {
			return err
		}
		docs++
		return nil
	})
	if err != nil {
		return docs, fmt.Errorf("indexing %s: %w", dir, err)
	}
	return docs, e.Finish()
}
