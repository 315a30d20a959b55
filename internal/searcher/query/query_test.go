package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	q := Parse("  Zombie ATTACK\tzombie ")
	assert.Equal(t, []string{"zombie", "attack", "zombie"}, q.Terms)
	assert.Equal(t, []string{"zombie", "attack"}, q.Distinct())
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, 1.0, q.Weight("attack"))
	assert.Zero(t, q.Weight("missing"))
}

func TestParseEmpty(t *testing.T) {
	q := Parse("   ")
	assert.Empty(t, q.Terms)
	assert.Zero(t, q.Len())
}

func TestBigrams(t *testing.T) {
	b := Parse("the web graph").Bigrams()
	assert.Equal(t, []string{",the", "the,web", "web,graph"}, b.Terms)
	assert.Equal(t, "the web graph", Parse("The Web graph").String())
}
