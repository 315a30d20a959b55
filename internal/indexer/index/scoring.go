package index

import "math"

// IDF is ln(numDocs/df), zero for terms that occur nowhere.
func IDF(numDocs int, df int) float64 {
	if df <= 0 || numDocs <= 0 {
		return 0
	}
	return math.Log(float64(numDocs) / float64(df))
}

// ScoreList assigns every entry tf × idf, with df taken as the list length.
func ScoreList(l *PostingsList, numDocs int) {
	idf := IDF(numDocs, l.Len())
	for _, e := range l.Entries() {
		e.Score = float64(e.TF()) * idf
	}
}
