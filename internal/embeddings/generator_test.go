package embeddings

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequery/codequery/internal/logging"
)

// stubBackend returns a distinct raw vector per text so ordering is
// observable after batching.
type stubBackend struct {
	dim   int
	calls int
	seq   int
}

func (s *stubBackend) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		s.seq++
		vec := make([]float32, s.dim)
		// Arrival order survives normalization as the vec[0]/vec[1] ratio.
		vec[0] = float32(s.seq)
		vec[1] = 1
		out[i] = vec
	}
	return out, nil
}

func testLogger() logging.Logger {
	return logging.New(logr.Discard())
}

func TestEmbedBatch_PreservesOrderAcrossBatches(t *testing.T) {
	backend := &stubBackend{dim: 3}
	g := NewWithBackend(backend, 3, 2, testLogger())

	texts := []string{"a", "b", "c", "d", "e"}
	vecs, err := g.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	assert.Equal(t, 3, backend.calls)

	for i, v := range vecs {
		require.Len(t, v, 3, "vector %d", i)
		assert.InDelta(t, 1.0, l2(v), 1e-6, "vector %d should be unit length", i)
		assert.InDelta(t, float64(i+1), float64(v[0]/v[1]), 1e-4,
			"vector %d out of input order", i)
	}
}

func TestEmbed_NormalizesToUnitLength(t *testing.T) {
	backend := &fixedBackend{vecs: [][]float32{{3, 4, 0}}}
	g := NewWithBackend(backend, 3, 0, testLogger())

	vec, err := g.Embed(context.Background(), "query")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, float64(vec[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(vec[1]), 1e-6)
	assert.InDelta(t, 0.0, float64(vec[2]), 1e-6)
}

func TestEmbed_ZeroVectorUnchanged(t *testing.T) {
	backend := &fixedBackend{vecs: [][]float32{{0, 0, 0}}}
	g := NewWithBackend(backend, 3, 0, testLogger())

	vec, err := g.Embed(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0}, vec)
}

func TestEmbedBatch_DimensionMismatch(t *testing.T) {
	backend := &fixedBackend{vecs: [][]float32{{1, 2}}}
	g := NewWithBackend(backend, 3, 0, testLogger())

	_, err := g.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	g := NewWithBackend(&stubBackend{dim: 3}, 3, 0, testLogger())
	vecs, err := g.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestGenerator_ConnectsExactlyOnce(t *testing.T) {
	var connects int
	g := newWithConnect(3, 0, testLogger(), func() (Vectorizer, error) {
		connects++
		return &stubBackend{dim: 3}, nil
	})

	for i := 0; i < 3; i++ {
		_, err := g.Embed(context.Background(), "q")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, connects)
}

func TestGenerator_ConnectFailureIsSticky(t *testing.T) {
	var connects int
	g := newWithConnect(3, 0, testLogger(), func() (Vectorizer, error) {
		connects++
		return nil, fmt.Errorf("backend down")
	})

	_, err := g.Embed(context.Background(), "q")
	require.Error(t, err)
	_, err = g.Embed(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, 1, connects)
}

// fixedBackend replays a canned response regardless of input.
type fixedBackend struct {
	vecs [][]float32
}

func (f *fixedBackend) CreateEmbedding(context.Context, []string) ([][]float32, error) {
	return f.vecs, nil
}

func l2(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
