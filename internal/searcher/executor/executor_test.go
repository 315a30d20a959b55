package executor

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/errors"
)

// memIndex builds an in-memory index from whitespace separated documents.
// Bigrams are indexed as the engine does, starting from the empty string.
func memIndex(t *testing.T, docs ...string) *index.Index {
	t.Helper()
	idx := index.New(config.Default().Index)
	bigramDocs := 0
	for id, text := range docs {
		terms := strings.Fields(text)
		prev := ""
		for pos, term := range terms {
			idx.Insert(term, id, pos)
			idx.InsertBigram(prev+","+term, id, pos)
			prev = term
		}
		if len(terms) > 0 {
			bigramDocs++
		}
		idx.SetDocLength(id, len(terms))
		idx.AddFilePath(id, "corpus/"+string(rune('A'+id))+".f")
	}
	idx.SetNumDocs(len(docs))
	idx.SetNumBigramDocs(bigramDocs)
	idx.CalculateScores()
	return idx
}

func newExecutor(idx Index) *Executor {
	return New(idx, config.Default().Search)
}

func TestIntersectionIsCommutative(t *testing.T) {
	idx := memIndex(t,
		"red green blue",
		"green blue",
		"red blue",
		"blue green red yellow",
		"yellow",
	)
	e := newExecutor(idx)

	ab := e.Intersect(query.Parse("red green")).DocIDs()
	ba := e.Intersect(query.Parse("green red")).DocIDs()
	assert.Equal(t, []int{0, 3}, ab)
	assert.Equal(t, ab, ba)
	assert.Equal(t, []int{0, 3}, e.Intersect(query.Parse("blue red green")).DocIDs())
	assert.Zero(t, e.Intersect(query.Parse("red purple")).Len())
}

func TestIntersectionSkipsCommonTermsWithThreshold(t *testing.T) {
	idx := memIndex(t, "the cat", "the dog", "the cat sat", "the end")
	cfg := config.Default().Search
	cfg.IDFThreshold = 0.5
	e := New(idx, cfg)

	// "the" occurs everywhere (idf 0) and is dropped; "cat" has idf ln 2.
	assert.Equal(t, []int{0, 2}, e.Intersect(query.Parse("the cat")).DocIDs())
	assert.Equal(t, []int{0, 1, 2, 3}, e.Intersect(query.Parse("the")).DocIDs())
}

func phraseIndex() *index.Index {
	idx := index.New(config.Default().Index)
	idx.Insert("x", 3, 5)
	idx.Insert("y", 3, 6)
	idx.Insert("x", 4, 5)
	idx.Insert("y", 4, 7)
	idx.SetNumDocs(5)
	return idx
}

func TestPhraseRequiresAdjacentPositions(t *testing.T) {
	e := newExecutor(phraseIndex())
	res := e.Phrase(query.Parse("x y"))

	require.Equal(t, 1, res.Len())
	assert.Equal(t, 3, res.Get(0).DocID)
	assert.Equal(t, []int{6}, res.Get(0).Positions)
	assert.Zero(t, e.Phrase(query.Parse("y x")).Len())
}

func TestPhraseCarriesSurvivingPositions(t *testing.T) {
	idx := memIndex(t, "to be or not to be", "be to be")
	e := newExecutor(idx)

	res := e.Phrase(query.Parse("to be"))
	assert.Equal(t, []int{0, 1}, res.DocIDs())
	assert.Equal(t, []int{1, 5}, res.Get(0).Positions)

	res = e.Phrase(query.Parse("not to be"))
	require.Equal(t, 1, res.Len())
	assert.Equal(t, []int{5}, res.Get(0).Positions)
}

func TestPhraseDoesNotMutateIndex(t *testing.T) {
	idx := phraseIndex()
	e := newExecutor(idx)
	e.Phrase(query.Parse("x y"))
	assert.Equal(t, []int{6}, idx.Postings("y").Get(0).Positions)
}

// rankedIndex has three documents; "search" occurs three times in A
// (length 3), once in B (length 2) and not in C.
func rankedIndex() *index.Index {
	idx := index.New(config.Default().Index)
	for pos := 0; pos < 3; pos++ {
		idx.Insert("search", 0, pos)
	}
	idx.Insert("search", 1, 0)
	idx.Insert("engine", 1, 1)
	idx.Insert("other", 2, 0)
	idx.SetDocLength(0, 3)
	idx.SetDocLength(1, 2)
	idx.SetDocLength(2, 1)
	idx.AddFilePath(0, "corpus/A.f")
	idx.AddFilePath(1, "corpus/B.f")
	idx.AddFilePath(2, "corpus/C.f")
	idx.SetNumDocs(3)
	idx.CalculateScores()
	idx.SetDocNumbers(map[string]string{"A": "10", "B": "11"})
	idx.SetPageRanks(map[string]float64{"10": 0.1, "11": 0.9})
	return idx
}

func TestRankedTFIDFAndCombination(t *testing.T) {
	e := newExecutor(rankedIndex())
	q := query.Parse("search")

	idf := math.Log(1.5)
	scoreA := 3 * idf / (math.Log(3) + 1)
	scoreB := idf / (math.Log(2) + 1)
	require.InDelta(t, 0.579619, scoreA, 1e-6)
	require.InDelta(t, 0.239474, scoreB, 1e-6)

	tfidf := e.Ranked(q, ranker.TFIDF, false)
	require.Equal(t, []int{0, 1}, tfidf.DocIDs())
	assert.InDelta(t, scoreA, tfidf.Get(0).Score, 1e-9)
	assert.InDelta(t, scoreB, tfidf.Get(1).Score, 1e-9)

	combined := e.Ranked(q, ranker.Combination, false)
	require.Equal(t, []int{1, 0}, combined.DocIDs())
	assert.InDelta(t, 0.914474, combined.Get(0).Score, 1e-6)
	assert.InDelta(t, 0.654619, combined.Get(1).Score, 1e-6)

	pr := e.Ranked(q, ranker.PageRank, false)
	assert.Equal(t, []int{1, 0}, pr.DocIDs())
	assert.InDelta(t, 0.9, pr.Get(0).Score, 1e-12)
}

func TestRankedScoresAreDescending(t *testing.T) {
	idx := memIndex(t,
		"graph walk graph",
		"walk walk walk walk",
		"random graph theory",
		"random walk on a graph",
		"unrelated text",
	)
	e := newExecutor(idx)
	for _, rt := range []ranker.RankingType{ranker.TFIDF, ranker.Combination} {
		res := e.Ranked(query.Parse("random graph walk"), rt, false)
		assert.Equal(t, 4, res.Len())
		for i := 1; i < res.Len(); i++ {
			assert.GreaterOrEqual(t, res.Get(i-1).Score, res.Get(i).Score)
		}
	}
}

func TestSubphraseMergesWithUnigramsWhenBigramsAreFew(t *testing.T) {
	idx := memIndex(t,
		"random walk on graphs",
		"walk in the park",
		"random numbers",
		"nothing here",
	)
	e := newExecutor(idx)
	q := query.Parse("random walk")

	bigram := e.Search(q, Ranked, ranker.TFIDF, Bigram)
	assert.Equal(t, []int{0, 2}, bigram.DocIDs(), "',random' and 'random,walk' match A, ',random' matches C")

	sub := e.Search(q, Ranked, ranker.TFIDF, Subphrase)
	assert.ElementsMatch(t, []int{0, 1, 2}, sub.DocIDs())
	assert.Equal(t, 0, sub.Get(0).DocID)

	uni := e.Search(q, Ranked, ranker.TFIDF, Unigram)
	assert.Equal(t, 3, uni.Len())

	single := e.Search(query.Parse("random"), Ranked, ranker.TFIDF, Subphrase)
	assert.Equal(t, e.Search(query.Parse("random"), Ranked, ranker.TFIDF, Unigram).DocIDs(), single.DocIDs())
}

func TestSubphraseKeepsBigramAnswerAboveThreshold(t *testing.T) {
	docs := make([]string, 12)
	for i := range docs {
		docs[i] = "page rank"
	}
	docs = append(docs, "rank only")
	e := newExecutor(memIndex(t, docs...))

	res := e.Search(query.Parse("page rank"), Ranked, ranker.TFIDF, Subphrase)
	assert.Equal(t, 12, res.Len())
}

func TestExecute(t *testing.T) {
	e := newExecutor(rankedIndex())
	res, err := e.Execute(context.Background(), Request{Query: "SEARCH", Type: Ranked, Ranking: ranker.Combination, Limit: 1})
	require.NoError(t, err)

	assert.Equal(t, "ranked", res.Type)
	assert.Equal(t, 2, res.TotalHits)
	require.Len(t, res.Results, 1)
	assert.Equal(t, 1, res.Results[0].DocID)
	assert.Equal(t, "corpus/B.f", res.Results[0].Path)

	empty, err := e.Execute(context.Background(), Request{Query: "   ", Type: Phrase})
	require.NoError(t, err)
	assert.Zero(t, empty.TotalHits)
	assert.NotNil(t, empty.Results)
}

// cancellingIndex cancels the search context after the first lookup.
type cancellingIndex struct {
	*index.Index
	cancel  context.CancelFunc
	lookups int
}

func (c *cancellingIndex) Postings(term string) *index.PostingsList {
	c.lookups++
	c.cancel()
	return c.Index.Postings(term)
}

func TestSearchStopsBetweenLookupsWhenCancelled(t *testing.T) {
	for _, qt := range []QueryType{Intersection, Phrase, Ranked} {
		t.Run(qt.String(), func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			idx := &cancellingIndex{Index: rankedIndex(), cancel: cancel}
			e := newExecutor(idx)

			_, err := e.SearchContext(ctx, query.Parse("search engine"), qt, ranker.TFIDF, Unigram)
			require.ErrorIs(t, err, context.Canceled)
			assert.Equal(t, 1, idx.lookups)
		})
	}
}

func TestExecuteCancelledIsTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := newExecutor(rankedIndex())

	_, err := e.Execute(ctx, Request{Query: "search", Type: Ranked})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrTimeout))
}

func TestParseTypes(t *testing.T) {
	qt, err := ParseQueryType("phrase")
	require.NoError(t, err)
	assert.Equal(t, Phrase, qt)
	_, err = ParseQueryType("fuzzy")
	assert.Error(t, err)

	st, err := ParseStructureType("subphrase")
	require.NoError(t, err)
	assert.Equal(t, Subphrase, st)
	_, err = ParseStructureType("trigram")
	assert.Error(t, err)
}

func BenchmarkRanked(b *testing.B) {
	idx := index.New(config.Default().Index)
	words := strings.Fields("search engine with distributed indexing and query processing over a link graph")
	for d := 0; d < 5000; d++ {
		for pos, w := range words[d%4:] {
			idx.Insert(w, d, pos)
		}
		idx.SetDocLength(d, len(words)-d%4)
	}
	idx.SetNumDocs(5000)
	idx.CalculateScores()
	e := New(idx, config.Default().Search)
	q := query.Parse("search query graph")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Ranked(q, ranker.Combination, false)
	}
}
