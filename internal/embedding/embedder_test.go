package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{}
	cached, err := NewCachedEmbedder(inner, 2)
	require.NoError(t, err)
	ctx := context.Background()

	v1, err := cached.Embed(ctx, "notice period")
	require.NoError(t, err)
	v2, err := cached.Embed(ctx, "notice period")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, inner.calls)

	_, _ = cached.Embed(ctx, "a")
	_, _ = cached.Embed(ctx, "b")
	assert.Equal(t, 2, cached.Len())

	// Evicted by the two inserts above.
	_, _ = cached.Embed(ctx, "notice period")
	assert.Equal(t, 4, inner.calls)
}

func TestCachedEmbedderDoesNotCacheErrors(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("quota")}
	cached, err := NewCachedEmbedder(inner, 4)
	require.NoError(t, err)

	_, err = cached.Embed(context.Background(), "x")
	require.Error(t, err)
	_, err = cached.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, cached.Len())
}

func TestCosineSimilarity(t *testing.T) {
	sim, err := CosineSimilarity([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)

	sim, err = CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-9)

	sim, err = CosineSimilarity([]float32{0, 0}, []float32{1, 1})
	require.NoError(t, err)
	assert.Zero(t, sim)

	_, err = CosineSimilarity([]float32{1}, []float32{1, 2})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = CosineSimilarity(nil, []float32{1})
	assert.ErrorIs(t, err, ErrEmptyVector)
}
