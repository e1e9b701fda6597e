package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMean_Basic(t *testing.T) {
	got, err := Mean([][]float32{
		{1, 2, 3},
		{3, 4, 5},
	})
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 3, 4}, got)
}

func TestMean_SingleVectorUnchanged(t *testing.T) {
	in := []float32{0.25, -0.5, 1}
	got, err := Mean([][]float32{in})
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestMean_PreservesDimension(t *testing.T) {
	vectors := [][]float32{
		make([]float32, 384),
		make([]float32, 384),
		make([]float32, 384),
	}
	got, err := Mean(vectors)
	require.NoError(t, err)
	assert.Len(t, got, 384)
}

func TestMean_DimensionMismatch(t *testing.T) {
	_, err := Mean([][]float32{
		{1, 2, 3},
		{1, 2},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMean_Empty(t *testing.T) {
	_, err := Mean(nil)
	assert.ErrorIs(t, err, ErrNoVectors)
}

func TestMean_OrderIndependent(t *testing.T) {
	a, err := Mean([][]float32{{1, 0}, {0, 1}, {2, 2}})
	require.NoError(t, err)
	b, err := Mean([][]float32{{2, 2}, {0, 1}, {1, 0}})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalize_UnitLength(t *testing.T) {
	got := Normalize([]float32{3, 4})

	var magnitude float64
	for _, v := range got {
		magnitude += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(magnitude), 1e-6)
	assert.InDelta(t, 0.6, got[0], 1e-6)
	assert.InDelta(t, 0.8, got[1], 1e-6)
}

func TestNormalize_ZeroVector(t *testing.T) {
	got := Normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, got)
}

func TestNormalize_Empty(t *testing.T) {
	assert.Empty(t, Normalize(nil))
}

func TestDotProduct(t *testing.T) {
	assert.InDelta(t, 11.0, DotProduct([]float32{1, 2, 3}, []float32{3, 1, 2}), 1e-6)
	assert.InDelta(t, 0.0, DotProduct([]float32{1, 0}, []float32{0, 1}), 1e-6)
}
