package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/kafka"
)

type capturePublisher struct {
	values  [][]byte
	batches int
}

func (c *capturePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	c.batches++
	for _, event := range events {
		data, err := json.Marshal(event.Value)
		if err != nil {
			return err
		}
		c.values = append(c.values, data)
	}
	return nil
}

func TestPublishedCorpusBuildsIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.f"), []byte("random walks on graphs"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.f"), []byte("graphs of links"), 0644))

	pub := &capturePublisher{}
	n, err := PublishCorpus(context.Background(), pub, dir, "corpus")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, pub.values, 3)
	assert.Equal(t, 1, pub.batches)

	e, err := indexer.NewEngine(config.Default().Index, nil)
	require.NoError(t, err)
	ic := New(e)
	for i, v := range pub.values {
		err := ic.Handle(context.Background(), []byte("corpus"), v)
		if i < 2 {
			require.NoError(t, err)
		} else {
			assert.True(t, errors.Is(err, kafka.ErrStop))
		}
	}
	require.NoError(t, ic.Err())
	assert.True(t, ic.Done())
	assert.Equal(t, 2, ic.Docs())
	assert.Equal(t, []int{0, 1}, e.Index().Postings("graphs").DocIDs())
}

func TestPublishCorpusSplitsBatches(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < PublishBatchSize+5; i++ {
		name := filepath.Join(dir, fmt.Sprintf("doc%03d.f", i))
		require.NoError(t, os.WriteFile(name, []byte("word"), 0644))
	}
	pub := &capturePublisher{}
	n, err := PublishCorpus(context.Background(), pub, dir, "corpus")
	require.NoError(t, err)
	assert.Equal(t, PublishBatchSize+5, n)
	assert.Equal(t, 2, pub.batches)
	assert.Len(t, pub.values, PublishBatchSize+6)
	assert.JSONEq(t, `{"path":"","final":true}`, string(pub.values[len(pub.values)-1]))
}

func TestHandleSkipsUndecodableMessage(t *testing.T) {
	e, err := indexer.NewEngine(config.Default().Index, nil)
	require.NoError(t, err)
	ic := New(e)
	assert.NoError(t, ic.Handle(context.Background(), nil, []byte("{not json")))
	assert.Zero(t, ic.Docs())
}

type failingIndexer struct{}

func (failingIndexer) AddDocument(string, []string) (int, error) { return 0, errors.New("disk full") }
func (failingIndexer) Finish() error                             { return nil }

func TestHandleStopsOnIndexingFailure(t *testing.T) {
	ic := New(failingIndexer{})
	err := ic.Handle(context.Background(), nil, []byte(`{"path":"x.f","tokens":["a"]}`))
	assert.True(t, errors.Is(err, kafka.ErrStop))
	assert.ErrorContains(t, ic.Err(), "disk full")
	assert.False(t, ic.Done())
}
