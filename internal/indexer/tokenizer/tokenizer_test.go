package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeLowercasesAndSplits(t *testing.T) {
	tokens := Tokenize("Zombie attack, in Linköping! (2019)")
	assert.Equal(t, []string{"zombie", "attack", "in", "linköping", "2019"}, Terms(tokens))
	for i, tok := range tokens {
		assert.Equal(t, i, tok.Position)
	}
}

func TestTokenizeReaderMatchesTokenize(t *testing.T) {
	text := "The quick-brown fox\njumps over   the lazy dog."
	got, err := TokenizeReader(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, Tokenize(text), got)
}

func TestTokenizeEmpty(t *testing.T) {
	assert.Empty(t, Tokenize(" ,.; "))
}

func BenchmarkTokenize(b *testing.B) {
	text := strings.Repeat("distributed search engines rank documents with pagerank and tf-idf. ", 50)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Tokenize(text)
	}
}
