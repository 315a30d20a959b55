package index

import "sort"

// PostingsEntry records the positions of one term inside one document and
// the score the ranking stage accumulates for it.
type PostingsEntry struct {
	DocID     int
	Positions []int
	Score     float64
}

// TF is the term frequency of the entry.
func (e *PostingsEntry) TF() int {
	return len(e.Positions)
}

// PostingsList holds the entries of one term, strictly increasing by DocID.
type PostingsList struct {
	entries []*PostingsEntry
}

func NewPostingsList() *PostingsList {
	return &PostingsList{}
}

// Insert appends e unless the last entry already belongs to the same
// document, in which case e's positions are merged into it. Callers insert in
// non-decreasing DocID order.
func (l *PostingsList) Insert(e *PostingsEntry) *PostingsEntry {
	if n := len(l.entries); n > 0 && l.entries[n-1].DocID == e.DocID {
		last := l.entries[n-1]
		last.Positions = append(last.Positions, e.Positions...)
		return last
	}
	l.entries = append(l.entries, e)
	return e
}

// InsertAt inserts an entry for docID and records position on it.
func (l *PostingsList) InsertAt(docID int, position int) {
	e := l.Insert(&PostingsEntry{DocID: docID})
	e.Positions = append(e.Positions, position)
}

func (l *PostingsList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

func (l *PostingsList) Get(i int) *PostingsEntry {
	return l.entries[i]
}

// Entries exposes the backing slice; callers must not reorder it unless they
// own the list.
func (l *PostingsList) Entries() []*PostingsEntry {
	if l == nil {
		return nil
	}
	return l.entries
}

// DocIDs returns the document ids in list order.
func (l *PostingsList) DocIDs() []int {
	ids := make([]int, 0, l.Len())
	for _, e := range l.Entries() {
		ids = append(ids, e.DocID)
	}
	return ids
}

// SortByScore orders entries by descending score. Equal scores keep
// ascending DocID so results are reproducible.
func (l *PostingsList) SortByScore() {
	sort.SliceStable(l.entries, func(i, j int) bool {
		if l.entries[i].Score != l.entries[j].Score {
			return l.entries[i].Score > l.entries[j].Score
		}
		return l.entries[i].DocID < l.entries[j].DocID
	})
}

// FromScores builds a list with one positionless entry per document. The
// result is not in DocID order until sorted by the caller.
func FromScores(scores map[int]float64) *PostingsList {
	l := &PostingsList{entries: make([]*PostingsEntry, 0, len(scores))}
	for docID, score := range scores {
		l.entries = append(l.entries, &PostingsEntry{DocID: docID, Score: score})
	}
	return l
}
