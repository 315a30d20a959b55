// Package query turns a raw search string into weighted terms.
package query

import "strings"

// Query is an ordered term sequence with one weight per distinct term.
// Terms keeps repeated tokens so phrase matching sees the query as typed.
type Query struct {
	Terms   []string
	Weights map[string]float64
}

// Parse splits s on whitespace and lower-cases every token. Each distinct
// token gets weight 1.0.
func Parse(s string) *Query {
	q := &Query{Weights: make(map[string]float64)}
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		q.Add(tok, 1.0)
	}
	return q
}

// Add appends term, keeping the existing weight of a repeated term.
func (q *Query) Add(term string, weight float64) {
	q.Terms = append(q.Terms, term)
	if _, ok := q.Weights[term]; !ok {
		q.Weights[term] = weight
	}
}

// Distinct returns each term once, in first-occurrence order.
func (q *Query) Distinct() []string {
	out := make([]string, 0, len(q.Weights))
	seen := make(map[string]bool, len(q.Weights))
	for _, t := range q.Terms {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Len is the number of distinct terms.
func (q *Query) Len() int {
	return len(q.Weights)
}

func (q *Query) Weight(term string) float64 {
	return q.Weights[term]
}

// Bigrams rewrites the query into "prev,term" pairs the way documents are
// indexed: the first term is paired with the empty string.
func (q *Query) Bigrams() *Query {
	b := &Query{Weights: make(map[string]float64)}
	prev := ""
	for _, t := range q.Terms {
		b.Add(prev+","+t, 1.0)
		prev = t
	}
	return b
}

func (q *Query) String() string {
	return strings.Join(q.Terms, " ")
}
