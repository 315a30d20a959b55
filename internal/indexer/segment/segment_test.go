package segment

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/config"
)

func testConfig(t *testing.T) config.IndexConfig {
	t.Helper()
	cfg := config.Default().Index
	cfg.DataDir = t.TempDir()
	cfg.ScanThreshold = 64
	cfg.MaxLineSize = 256
	return cfg
}

// corpus returns term → postings for docs [from, to) where doc d contains
// term_k at position k for every k dividing d+1.
func corpus(from, to int) map[string]*index.PostingsList {
	terms := make(map[string]*index.PostingsList)
	for d := from; d < to; d++ {
		for k := 1; k <= d+1; k++ {
			if (d+1)%k != 0 {
				continue
			}
			term := fmt.Sprintf("term%03d", k)
			if terms[term] == nil {
				terms[term] = index.NewPostingsList()
			}
			terms[term].InsertAt(d, k)
		}
	}
	return terms
}

func readAll(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	require.NoError(t, err)
	return string(data)
}

func TestMergedBlocksEqualSingleBlock(t *testing.T) {
	single := testConfig(t)
	ws := NewWriter(UnigramLayout(single))
	require.NoError(t, ws.WriteBlock(corpus(0, 90), 0))
	require.NoError(t, ws.MergeBlocks(1))

	split := testConfig(t)
	w := NewWriter(UnigramLayout(split))
	require.NoError(t, w.WriteBlock(corpus(0, 30), 0))
	require.NoError(t, w.WriteBlock(corpus(30, 60), 1))
	require.NoError(t, w.WriteBlock(corpus(60, 90), 2))
	require.NoError(t, w.MergeBlocks(3))

	assert.Equal(t, readAll(t, ws.Layout().Postings), readAll(t, w.Layout().Postings))
	for i := 0; i < 3; i++ {
		assert.NoFileExists(t, w.Layout().Block(i))
		assert.NoFileExists(t, w.Layout().Merge(i))
	}
}

func TestOffsetIndexFindsEveryTerm(t *testing.T) {
	cfg := testConfig(t)
	layout := UnigramLayout(cfg)
	w := NewWriter(layout)
	terms := corpus(0, 200)
	require.NoError(t, w.WriteBlock(terms, 0))
	require.NoError(t, w.MergeBlocks(1))
	require.NoError(t, w.CreateOffsetIndex())

	r, err := OpenReader(layout, cfg)
	require.NoError(t, err)
	defer r.Close()

	for term, want := range terms {
		got, err := r.ReadPostingsList(term)
		require.NoError(t, err, term)
		require.NotNil(t, got, term)
		assert.Equal(t, want.DocIDs(), got.DocIDs(), term)
	}
	for _, absent := range []string{"", "a", "term000", "term0995", "zzz"} {
		got, err := r.ReadPostingsList(absent)
		require.NoError(t, err)
		assert.Nil(t, got, absent)
	}
}

func TestOffsetsPointAtLineStarts(t *testing.T) {
	cfg := testConfig(t)
	layout := UnigramLayout(cfg)
	w := NewWriter(layout)
	require.NoError(t, w.WriteBlock(corpus(0, 20), 0))
	require.NoError(t, w.MergeBlocks(1))
	require.NoError(t, w.CreateOffsetIndex())

	postings := readAll(t, layout.Postings)
	for _, line := range strings.Split(strings.TrimSpace(readAll(t, layout.Offsets)), "\n") {
		var term string
		var offset int
		_, err := fmt.Sscanf(line, "%s %d", &term, &offset)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(postings[offset:], term+" "), line)
	}
}

func TestMergeConcatenatesDocumentSplitAcrossBlocks(t *testing.T) {
	cfg := testConfig(t)
	layout := UnigramLayout(cfg)
	w := NewWriter(layout)

	first := map[string]*index.PostingsList{"river": index.NewPostingsList()}
	first["river"].InsertAt(1, 0)
	first["river"].InsertAt(2, 3)
	second := map[string]*index.PostingsList{"river": index.NewPostingsList(), "delta": index.NewPostingsList()}
	second["river"].InsertAt(2, 7)
	second["delta"].InsertAt(2, 8)

	require.NoError(t, w.WriteBlock(first, 0))
	require.NoError(t, w.WriteBlock(second, 1))
	require.NoError(t, w.MergeBlocks(2))
	require.NoError(t, w.CreateOffsetIndex())

	assert.Equal(t, "delta 2,8\nriver 1,0 2,3 2,7\n", readAll(t, layout.Postings))

	r, err := OpenReader(layout, cfg)
	require.NoError(t, err)
	defer r.Close()
	pl, err := r.ReadPostingsList("river")
	require.NoError(t, err)
	require.Equal(t, 2, pl.Len())
	assert.Equal(t, []int{3, 7}, pl.Get(1).Positions)
}

func TestPathFileLookup(t *testing.T) {
	cfg := testConfig(t)
	layout := UnigramLayout(cfg)
	w := NewWriter(layout)

	for block := 0; block < 3; block++ {
		paths := make(map[int]string)
		for id := block * 400; id < (block+1)*400; id++ {
			paths[id] = fmt.Sprintf("corpus/Doc %d.f", id)
		}
		require.NoError(t, w.AppendPaths(paths))
	}
	require.NoError(t, w.MergeBlocks(0))
	require.NoError(t, w.CreateOffsetIndex())

	r, err := OpenReader(layout, cfg)
	require.NoError(t, err)
	defer r.Close()

	for _, id := range []int{0, 1, 9, 10, 99, 100, 399, 400, 777, 1199} {
		p, ok, err := r.ReadFilePath(id)
		require.NoError(t, err)
		require.True(t, ok, id)
		assert.Equal(t, fmt.Sprintf("corpus/Doc %d.f", id), p)
	}
	_, ok, err := r.ReadFilePath(1200)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLengthsRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	w := NewWriter(UnigramLayout(cfg))
	require.NoError(t, w.WriteLengths(map[int]int{0: 12, 3: 1}))

	got, err := ReadLengths(w.Layout().Lengths)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 12, 3: 1}, got)
}

func TestBigramLayoutUsesPrefixedFiles(t *testing.T) {
	cfg := testConfig(t)
	l := BigramLayout(cfg)
	assert.True(t, strings.HasSuffix(l.Postings, "bp.txt"))
	assert.True(t, strings.HasSuffix(l.Offsets, "bi.txt"))
	assert.True(t, strings.HasSuffix(l.Block(0), "bt_0.txt"))
	assert.Empty(t, l.Paths)
}

func TestMergeBlocksAbortsOnMissingBlock(t *testing.T) {
	cfg := testConfig(t)
	l := UnigramLayout(cfg)
	w := NewWriter(l)
	require.NoError(t, w.WriteBlock(corpus(0, 10), 0))
	require.NoError(t, w.WriteBlock(corpus(10, 20), 1))
	require.NoError(t, w.WriteBlock(corpus(20, 30), 2))
	require.NoError(t, os.Remove(l.Block(2)))

	err := w.MergeBlocks(3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merging block 2")
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.NoFileExists(t, l.Postings)
	entries, err := os.ReadDir(cfg.DataDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "block and merge files must be removed")
}

func TestOpenReaderMissingFiles(t *testing.T) {
	cfg := testConfig(t)
	_, err := OpenReader(UnigramLayout(cfg), cfg)
	assert.Error(t, err)
}

func BenchmarkReadPostingsList(b *testing.B) {
	cfg := config.Default().Index
	cfg.DataDir = b.TempDir()
	layout := UnigramLayout(cfg)
	w := NewWriter(layout)
	terms := corpus(0, 2000)
	if err := w.WriteBlock(terms, 0); err != nil {
		b.Fatal(err)
	}
	if err := w.MergeBlocks(1); err != nil {
		b.Fatal(err)
	}
	if err := w.CreateOffsetIndex(); err != nil {
		b.Fatal(err)
	}
	r, err := OpenReader(layout, cfg)
	if err != nil {
		b.Fatal(err)
	}
	defer r.Close()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.ReadPostingsList(fmt.Sprintf("term%03d", i%1000+1)); err != nil {
			b.Fatal(err)
		}
	}
}
