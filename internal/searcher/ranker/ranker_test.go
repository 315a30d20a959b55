package ranker

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/errors"
)

func TestLengthNormalize(t *testing.T) {
	assert.InDelta(t, 1.216395/(math.Log(3)+1), LengthNormalize(1.216395, 3, 1), 1e-12)
	assert.InDelta(t, 0.5, LengthNormalize(1, 1, 2), 1e-12)
	assert.Equal(t, 2.0, LengthNormalize(2, 0, 0))
}

func TestFinal(t *testing.T) {
	w := Weights{TFIDF: 1, PageRank: 0.75}
	assert.Equal(t, 0.4, Final(TFIDF, 0.4, 0.9, w))
	assert.Equal(t, 0.9, Final(PageRank, 0.4, 0.9, w))
	assert.InDelta(t, 0.4+0.675, Final(Combination, 0.4, 0.9, w), 1e-12)
}

func TestMergeAnswers(t *testing.T) {
	a := index.FromScores(map[int]float64{1: 0.5, 2: 0.25})
	b := index.FromScores(map[int]float64{2: 0.5, 3: 0.1})
	m := MergeAnswers(a, b)

	require.Equal(t, 3, m.Len())
	assert.Equal(t, []int{2, 1, 3}, m.DocIDs())
	assert.InDelta(t, 0.75, m.Get(0).Score, 1e-12)
	assert.Equal(t, 2, MergeAnswers(a, nil).Len())
}

func TestTop(t *testing.T) {
	l := index.FromScores(map[int]float64{4: 3, 5: 2, 6: 1})
	l.SortByScore()
	top := Top(l, 2, func(id int) string { return "doc" })
	require.Len(t, top, 2)
	assert.Equal(t, ScoredDoc{DocID: 4, Path: "doc", Score: 3}, top[0])
	assert.Len(t, Top(l, 0, nil), 3)
}

func TestParseRankingType(t *testing.T) {
	for _, rt := range []RankingType{TFIDF, PageRank, Combination} {
		got, err := ParseRankingType(rt.String())
		require.NoError(t, err)
		assert.Equal(t, rt, got)
	}
	_, err := ParseRankingType("bm25")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}
