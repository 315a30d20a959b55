// Package ranker holds the scoring arithmetic of ranked retrieval: length
// normalization, PageRank combination and merging of two ranked answers.
package ranker

import (
	"fmt"
	"math"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/errors"
)

// RankingType selects how a document's final score is formed.
type RankingType int

const (
	TFIDF RankingType = iota
	PageRank
	Combination
)

func (r RankingType) String() string {
	switch r {
	case TFIDF:
		return "tfidf"
	case PageRank:
		return "pagerank"
	case Combination:
		return "combination"
	}
	return fmt.Sprintf("RankingType(%d)", int(r))
}

// ParseRankingType accepts the names returned by String; empty means TFIDF.
func ParseRankingType(s string) (RankingType, error) {
	switch s {
	case "", "tfidf":
		return TFIDF, nil
	case "pagerank":
		return PageRank, nil
	case "combination":
		return Combination, nil
	}
	return TFIDF, fmt.Errorf("unknown ranking type %q: %w", s, apperrors.ErrInvalidInput)
}

// ScoredDoc is one ranked result.
type ScoredDoc struct {
	DocID int     `json:"doc_id"`
	Path  string  `json:"path,omitempty"`
	Score float64 `json:"score"`
}

// Weights are the coefficients of the combined score.
type Weights struct {
	TFIDF    float64
	PageRank float64
}

// LengthNormalize divides score by (ln(docLength)+1) × queryLen. Empty
// documents and empty queries are treated as length one.
func LengthNormalize(score float64, docLength int, queryLen int) float64 {
	if docLength < 1 {
		docLength = 1
	}
	if queryLen < 1 {
		queryLen = 1
	}
	return score / ((math.Log(float64(docLength)) + 1) * float64(queryLen))
}

// Final applies the ranking type to a normalized tf-idf score.
func Final(rt RankingType, tfidf float64, pageRank float64, w Weights) float64 {
	switch rt {
	case PageRank:
		return pageRank
	case Combination:
		return w.TFIDF*tfidf + w.PageRank*pageRank
	}
	return tfidf
}

// MergeAnswers sums the scores of documents present in both lists and keeps
// the documents found in only one. The result is sorted by score.
func MergeAnswers(a, b *index.PostingsList) *index.PostingsList {
	scores := make(map[int]float64, a.Len()+b.Len())
	for _, e := range a.Entries() {
		scores[e.DocID] += e.Score
	}
	for _, e := range b.Entries() {
		scores[e.DocID] += e.Score
	}
	merged := index.FromScores(scores)
	merged.SortByScore()
	return merged
}

// Top converts the first limit entries of a ranked list into results. A
// non-positive limit keeps everything.
func Top(l *index.PostingsList, limit int, path func(docID int) string) []ScoredDoc {
	entries := l.Entries()
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]ScoredDoc, 0, len(entries))
	for _, e := range entries {
		d := ScoredDoc{DocID: e.DocID, Score: e.Score}
		if path != nil {
			d.Path = path(e.DocID)
		}
		out = append(out, d)
	}
	return out
}
