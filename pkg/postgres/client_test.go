package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestRejected(t *testing.T) {
	auth := &pq.Error{Code: "28P01", Message: "password authentication failed"}
	missing := &pq.Error{Code: "3D000", Message: "database does not exist"}
	starting := &pq.Error{Code: "57P03", Message: "the database system is starting up"}

	assert.True(t, rejected(auth))
	assert.True(t, rejected(fmt.Errorf("ping: %w", missing)))
	assert.False(t, rejected(starting))
	assert.False(t, rejected(errors.New("connection refused")))
	assert.False(t, rejected(nil))
}
