// Package executor evaluates intersection, phrase and ranked queries against
// an index.
package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/tracing"
)

// Index is what query evaluation reads. *index.Index satisfies it.
type Index interface {
	Postings(term string) *index.PostingsList
	BigramPostings(bigram string) *index.PostingsList
	DocLength(docID int) int
	NumDocs() int
	PageRank(docID int) float64
	FilePath(docID int) (string, bool)
}

type QueryType int

const (
	Intersection QueryType = iota
	Phrase
	Ranked
)

func (t QueryType) String() string {
	switch t {
	case Intersection:
		return "intersection"
	case Phrase:
		return "phrase"
	case Ranked:
		return "ranked"
	}
	return fmt.Sprintf("QueryType(%d)", int(t))
}

// ParseQueryType accepts the names returned by String; empty means Ranked.
func ParseQueryType(s string) (QueryType, error) {
	switch s {
	case "intersection":
		return Intersection, nil
	case "phrase":
		return Phrase, nil
	case "", "ranked":
		return Ranked, nil
	}
	return Ranked, fmt.Errorf("unknown query type %q: %w", s, apperrors.ErrInvalidInput)
}

// StructureType picks the postings a ranked query is evaluated against.
type StructureType int

const (
	Unigram StructureType = iota
	Bigram
	Subphrase
)

func (s StructureType) String() string {
	switch s {
	case Unigram:
		return "unigram"
	case Bigram:
		return "bigram"
	case Subphrase:
		return "subphrase"
	}
	return fmt.Sprintf("StructureType(%d)", int(s))
}

func ParseStructureType(s string) (StructureType, error) {
	switch s {
	case "", "unigram":
		return Unigram, nil
	case "bigram":
		return Bigram, nil
	case "subphrase":
		return Subphrase, nil
	}
	return Unigram, fmt.Errorf("unknown structure type %q: %w", s, apperrors.ErrInvalidInput)
}

// Request is one search as received from a caller.
type Request struct {
	Query     string
	Type      QueryType
	Ranking   ranker.RankingType
	Structure StructureType
	Limit     int
}

// SearchResult is the answer returned to callers and cached.
type SearchResult struct {
	Query     string             `json:"query"`
	Type      string             `json:"type"`
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
}

type Executor struct {
	idx     Index
	cfg     config.SearchConfig
	weights ranker.Weights
	logger  *slog.Logger
}

func New(idx Index, cfg config.SearchConfig) *Executor {
	return &Executor{
		idx:     idx,
		cfg:     cfg,
		weights: ranker.Weights{TFIDF: cfg.TFIDFWeight, PageRank: cfg.PageRankWeight},
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// Execute parses and evaluates req, returning at most req.Limit results.
func (e *Executor) Execute(ctx context.Context, req Request) (*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search cancelled: %w", apperrors.ErrTimeout)
	}
	_, span := tracing.Start(ctx, "evaluate")
	q := query.Parse(req.Query)
	answer, err := e.SearchContext(ctx, q, req.Type, req.Ranking, req.Structure)
	if err != nil {
		span.End()
		return nil, fmt.Errorf("search cancelled: %w: %w", apperrors.ErrTimeout, err)
	}
	span.SetAttr("terms", q.Len())
	span.SetAttr("hits", answer.Len())
	span.End()

	_, span = tracing.Start(ctx, "rank")
	results := ranker.Top(answer, req.Limit, func(docID int) string {
		p, _ := e.idx.FilePath(docID)
		return p
	})
	span.End()
	e.logger.Debug("query executed",
		"query", req.Query,
		"type", req.Type.String(),
		"ranking", req.Ranking.String(),
		"structure", req.Structure.String(),
		"hits", answer.Len(),
	)
	return &SearchResult{
		Query:     req.Query,
		Type:      req.Type.String(),
		TotalHits: answer.Len(),
		Results:   results,
	}, nil
}

// Search evaluates q. The result is never nil; an empty query or a term
// that occurs nowhere yields an empty list.
func (e *Executor) Search(q *query.Query, qt QueryType, rt ranker.RankingType, st StructureType) *index.PostingsList {
	l, _ := e.SearchContext(context.Background(), q, qt, rt, st)
	return l
}

// SearchContext is Search that gives up between term lookups once ctx is
// done, returning the context error.
func (e *Executor) SearchContext(ctx context.Context, q *query.Query, qt QueryType, rt ranker.RankingType, st StructureType) (*index.PostingsList, error) {
	if q.Len() == 0 {
		return index.NewPostingsList(), nil
	}
	switch qt {
	case Intersection:
		return e.intersectQuery(ctx, q)
	case Phrase:
		return e.phraseQuery(ctx, q)
	}
	switch st {
	case Bigram:
		return e.ranked(ctx, q.Bigrams(), rt, true)
	case Subphrase:
		return e.subphrase(ctx, q, rt)
	}
	return e.ranked(ctx, q, rt, false)
}

// subphrase prefers bigram matches and falls back to unigram recall when
// they are too few.
func (e *Executor) subphrase(ctx context.Context, q *query.Query, rt ranker.RankingType) (*index.PostingsList, error) {
	if len(q.Terms) < 2 {
		return e.ranked(ctx, q, rt, false)
	}
	answer, err := e.ranked(ctx, q.Bigrams(), rt, true)
	if err != nil || answer.Len() >= e.cfg.BigramFallbackThreshold {
		return answer, err
	}
	unigram, err := e.ranked(ctx, q, rt, false)
	if err != nil {
		return nil, err
	}
	if unigram.Len() > answer.Len() {
		return ranker.MergeAnswers(unigram, answer), nil
	}
	return ranker.MergeAnswers(answer, unigram), nil
}

// Intersect returns the documents containing every query term, ascending by
// DocID. With an IDF threshold configured, terms whose idf falls below it
// are left out unless that would leave no term at all.
func (e *Executor) Intersect(q *query.Query) *index.PostingsList {
	l, _ := e.intersectQuery(context.Background(), q)
	return l
}

func (e *Executor) intersectQuery(ctx context.Context, q *query.Query) (*index.PostingsList, error) {
	lists, err := e.termLists(ctx, q.Terms)
	if err != nil || lists == nil {
		return index.NewPostingsList(), err
	}
	lists = e.dropCommon(lists)
	result := lists[0]
	for _, l := range lists[1:] {
		result = intersect(result, l)
		if result.Len() == 0 {
			break
		}
	}
	return copyList(result), nil
}

// Phrase returns the documents containing the query terms at consecutive
// positions. Each result entry holds the positions of the last term.
func (e *Executor) Phrase(q *query.Query) *index.PostingsList {
	l, _ := e.phraseQuery(context.Background(), q)
	return l
}

func (e *Executor) phraseQuery(ctx context.Context, q *query.Query) (*index.PostingsList, error) {
	lists, err := e.termLists(ctx, q.Terms)
	if err != nil || lists == nil {
		return index.NewPostingsList(), err
	}
	result := lists[0]
	for _, l := range lists[1:] {
		result = adjacent(result, l)
		if result.Len() == 0 {
			break
		}
	}
	return copyList(result), nil
}

// termLists returns nil lists when some term occurs nowhere.
func (e *Executor) termLists(ctx context.Context, terms []string) ([]*index.PostingsList, error) {
	lists := make([]*index.PostingsList, 0, len(terms))
	for _, t := range terms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pl := e.idx.Postings(t)
		if pl.Len() == 0 {
			return nil, nil
		}
		lists = append(lists, pl)
	}
	if len(lists) == 0 {
		return nil, nil
	}
	return lists, nil
}

func (e *Executor) dropCommon(lists []*index.PostingsList) []*index.PostingsList {
	if e.cfg.IDFThreshold <= 0 {
		return lists
	}
	n := e.idx.NumDocs()
	kept := make([]*index.PostingsList, 0, len(lists))
	for _, l := range lists {
		if index.IDF(n, l.Len()) >= e.cfg.IDFThreshold {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		return lists
	}
	return kept
}

// Ranked scores every document matching at least one term by
// Σ score × weight, normalizes by document and query length, applies the
// ranking type and sorts by descending score.
func (e *Executor) Ranked(q *query.Query, rt ranker.RankingType, bigram bool) *index.PostingsList {
	l, _ := e.ranked(context.Background(), q, rt, bigram)
	return l
}

func (e *Executor) ranked(ctx context.Context, q *query.Query, rt ranker.RankingType, bigram bool) (*index.PostingsList, error) {
	scores := make(map[int]float64)
	for _, t := range q.Distinct() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var pl *index.PostingsList
		if bigram {
			pl = e.idx.BigramPostings(t)
		} else {
			pl = e.idx.Postings(t)
		}
		w := q.Weight(t)
		for _, entry := range pl.Entries() {
			scores[entry.DocID] += entry.Score * w
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for docID, s := range scores {
		s = ranker.LengthNormalize(s, e.idx.DocLength(docID), q.Len())
		pr := 0.0
		if rt != ranker.TFIDF {
			pr = e.idx.PageRank(docID)
		}
		scores[docID] = ranker.Final(rt, s, pr, e.weights)
	}
	answer := index.FromScores(scores)
	answer.SortByScore()
	return answer, nil
}

// intersect is a two-pointer merge over lists sorted by DocID. Result
// entries come from a.
func intersect(a, b *index.PostingsList) *index.PostingsList {
	out := index.NewPostingsList()
	i, j := 0, 0
	for i < a.Len() && j < b.Len() {
		x, y := a.Get(i), b.Get(j)
		switch {
		case x.DocID == y.DocID:
			out.Insert(&index.PostingsEntry{DocID: x.DocID, Positions: x.Positions})
			i++
			j++
		case x.DocID < y.DocID:
			i++
		default:
			j++
		}
	}
	return out
}

// adjacent keeps the documents of b in which some position directly
// follows a position of the same document in a. Positions are ascending.
func adjacent(a, b *index.PostingsList) *index.PostingsList {
	out := index.NewPostingsList()
	i, j := 0, 0
	for i < a.Len() && j < b.Len() {
		x, y := a.Get(i), b.Get(j)
		switch {
		case x.DocID == y.DocID:
			if pos := followers(x.Positions, y.Positions); len(pos) > 0 {
				out.Insert(&index.PostingsEntry{DocID: y.DocID, Positions: pos})
			}
			i++
			j++
		case x.DocID < y.DocID:
			i++
		default:
			j++
		}
	}
	return out
}

// followers returns every p2 in second with p2-p1 == 1 for some p1 in first.
func followers(first, second []int) []int {
	var out []int
	i, j := 0, 0
	for i < len(first) && j < len(second) {
		switch d := second[j] - first[i]; {
		case d == 1:
			out = append(out, second[j])
			i++
			j++
		case d < 1:
			j++
		default:
			i++
		}
	}
	return out
}

// copyList detaches a result from lists that may be shared with the index
// cache.
func copyList(l *index.PostingsList) *index.PostingsList {
	out := index.NewPostingsList()
	for _, e := range l.Entries() {
		out.Insert(&index.PostingsEntry{DocID: e.DocID, Positions: append([]int(nil), e.Positions...)})
	}
	return out
}
