package index

import (
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/errors"
)

// Line format of a postings record: "term docID,pos,pos docID,pos ...".
const (
	fieldSep = " "
	entrySep = ","
)

// EncodeLine renders term and its postings as one record without the
// trailing newline.
func EncodeLine(term string, l *PostingsList) string {
	var sb strings.Builder
	sb.WriteString(term)
	for _, e := range l.Entries() {
		sb.WriteString(fieldSep)
		sb.WriteString(strconv.Itoa(e.DocID))
		for _, p := range e.Positions {
			sb.WriteString(entrySep)
			sb.WriteString(strconv.Itoa(p))
		}
	}
	return sb.String()
}

// LineKey returns the leading field of a record.
func LineKey(line string) string {
	if i := strings.IndexByte(line, ' '); i >= 0 {
		return line[:i]
	}
	return line
}

// ParseLine decodes a postings record. Entries sharing a DocID with their
// predecessor are folded into it, which reconciles a document whose postings
// were split across two spilled blocks.
func ParseLine(line string) (string, *PostingsList, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, fieldSep)
	if fields[0] == "" {
		return "", nil, apperrors.Malformed("postings", line, "empty term")
	}
	l := NewPostingsList()
	for _, field := range fields[1:] {
		if field == "" {
			continue
		}
		parts := strings.Split(field, entrySep)
		docID, err := strconv.Atoi(parts[0])
		if err != nil {
			return "", nil, apperrors.Malformed("postings", line, "bad document id")
		}
		e := &PostingsEntry{DocID: docID, Positions: make([]int, 0, len(parts)-1)}
		for _, p := range parts[1:] {
			pos, err := strconv.Atoi(p)
			if err != nil {
				return "", nil, apperrors.Malformed("postings", line, "bad position")
			}
			e.Positions = append(e.Positions, pos)
		}
		l.Insert(e)
	}
	return fields[0], l, nil
}
