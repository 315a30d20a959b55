// Package segment persists the inverted index as sorted text files: spilled
// blocks, their pairwise merges, the canonical postings file, its sparse
// offset index and the docID → path table.
package segment

import (
	"fmt"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/config"
)

// Layout names every file of one index inside the data directory.
type Layout struct {
	Dir         string
	Postings    string
	Offsets     string
	Paths       string
	Lengths     string
	blockPrefix string
	mergePrefix string
}

// UnigramLayout is the layout of the main term index.
func UnigramLayout(cfg config.IndexConfig) Layout {
	return Layout{
		Dir:         cfg.DataDir,
		Postings:    filepath.Join(cfg.DataDir, cfg.PostingsFile),
		Offsets:     filepath.Join(cfg.DataDir, cfg.OffsetFile),
		Paths:       filepath.Join(cfg.DataDir, cfg.PathFile),
		Lengths:     filepath.Join(cfg.DataDir, cfg.LengthFile),
		blockPrefix: cfg.BlockPrefix,
		mergePrefix: cfg.MergePrefix,
	}
}

// BigramLayout is the layout of the bigram index. It shares the path and
// length tables of the unigram index, so it names none of its own.
func BigramLayout(cfg config.IndexConfig) Layout {
	p := cfg.BigramPrefix
	return Layout{
		Dir:         cfg.DataDir,
		Postings:    filepath.Join(cfg.DataDir, p+cfg.PostingsFile),
		Offsets:     filepath.Join(cfg.DataDir, p+cfg.OffsetFile),
		blockPrefix: p + cfg.BlockPrefix,
		mergePrefix: p + cfg.MergePrefix,
	}
}

// Block is the file holding spilled block i.
func (l Layout) Block(i int) string {
	return filepath.Join(l.Dir, fmt.Sprintf("%s_%d.txt", l.blockPrefix, i))
}

// Merge is the output of the merge step that consumed block i.
func (l Layout) Merge(i int) string {
	return filepath.Join(l.Dir, fmt.Sprintf("%s_%d.txt", l.mergePrefix, i))
}
