// Package tokenizer splits document text into lower-cased terms with their
// positions. Positions are consecutive token offsets, which is what phrase
// matching relies on.
package tokenizer

import (
	"bufio"
	"io"
	"strings"
	"unicode"
)

// Token is a single normalised term and its offset in the document.
type Token struct {
	Term     string
	Position int
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// Tokenize breaks text into lower-cased tokens split on every rune that is
// neither a letter nor a digit.
func Tokenize(text string) []Token {
	words := strings.FieldsFunc(strings.ToLower(text), isSeparator)
	tokens := make([]Token, 0, len(words))
	for i, word := range words {
		tokens = append(tokens, Token{Term: word, Position: i})
	}
	return tokens
}

// TokenizeReader tokenizes r line by line so large documents are never held
// in memory as a single string.
func TokenizeReader(r io.Reader) ([]Token, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	var tokens []Token
	pos := 0
	for sc.Scan() {
		for _, word := range strings.FieldsFunc(strings.ToLower(sc.Text()), isSeparator) {
			tokens = append(tokens, Token{Term: word, Position: pos})
			pos++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return tokens, nil
}

// Terms returns the bare terms of tokens in order.
func Terms(tokens []Token) []string {
	terms := make([]string, len(tokens))
	for i, t := range tokens {
		terms[i] = t.Term
	}
	return terms
}
