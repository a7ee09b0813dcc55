package index

import (
	"testing"

	pkgerrors "vectorhub/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generateVectors returns n vectors separable along the first dimension
func generateVectors(n, dim int) (ids []int64, vecs [][]float32) {
	ids = make([]int64, n)
	vecs = make([][]float32, n)
	for i := 0; i < n; i++ {
		ids[i] = int64(i + 1)
		v := make([]float32, dim)
		v[0] = float32(i)
		vecs[i] = v
	}
	return
}

func newFlat(t *testing.T, dim int) *FlatIndex {
	vIdx, err := New(&IndexConfig{IndexType: FLATIndex, Dimension: dim})
	require.NoError(t, err)
	return vIdx.(*FlatIndex)
}

func TestFlatIndex_BuildAndSearch(t *testing.T) {
	dim := 4
	ids, vectors := generateVectors(20, dim)
	idx := newFlat(t, dim)
	require.NoError(t, idx.Build(ids, vectors))

	res, err := idx.Search(vectors[6], 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 6, 8}, res.IDs)
	assert.Equal(t, []float32{0, 1, 1}, res.Distances)
}

func TestFlatIndex_TiesOrderedByID(t *testing.T) {
	idx := newFlat(t, 2)
	require.NoError(t, idx.AddBatch([]int64{9, 3, 5}, [][]float32{{1, 0}, {1, 0}, {0, 1}}))

	res, err := idx.Search([]float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 9, 5}, res.IDs)
}

func TestFlatIndex_Validation(t *testing.T) {
	idx := newFlat(t, 3)

	assert.ErrorIs(t, idx.Add(1, []float32{1, 2}), pkgerrors.ErrInvalidDimension)
	assert.ErrorIs(t, idx.AddBatch([]int64{1}, nil), pkgerrors.ErrMisMatchKeysAndValues)
	assert.ErrorIs(t, idx.AddBatch([]int64{1, 2}, [][]float32{{1, 2, 3}, {1}}), pkgerrors.ErrInvalidDimension)
	assert.Equal(t, 0, idx.Len(), "a rejected batch must not be partially applied")

	_, err := idx.Search([]float32{1}, 1)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidDimension)

	_, err = New(&IndexConfig{IndexType: FLATIndex, Dimension: 0})
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidDimension)
}

func TestFlatIndex_OverwriteAndDelete(t *testing.T) {
	idx := newFlat(t, 2)
	require.NoError(t, idx.Add(1, []float32{0, 0}))
	require.NoError(t, idx.Add(2, []float32{5, 5}))
	require.NoError(t, idx.Add(1, []float32{9, 9}))
	assert.Equal(t, 2, idx.Len())

	v, ok := idx.Vector(1)
	require.True(t, ok)
	assert.Equal(t, []float32{9, 9}, v)

	require.NoError(t, idx.Delete(1))
	assert.ErrorIs(t, idx.Delete(1), pkgerrors.ErrDocumentNotFound)

	res, err := idx.Search([]float32{0, 0}, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, res.IDs)
}

func TestFlatIndex_SearchEmpty(t *testing.T) {
	idx := newFlat(t, 2)
	res, err := idx.Search([]float32{0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, res.IDs)
}

func TestNewUnsupported(t *testing.T) {
	_, err := New(&IndexConfig{IndexType: "hnsw", Dimension: 4})
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidSchema)

	_, err = New(&IndexConfig{IndexType: FLATIndex, SpaceType: "ip", Dimension: 4})
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidSchema)
}
