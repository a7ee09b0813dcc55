package index

import (
	"testing"

	pkgerrors "vectorhub/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIVF(t *testing.T, dim, nlist, nprobe int) *ivfIndex {
	vIdx, err := New(&IndexConfig{IndexType: IVFFLATIndex, Dimension: dim, NList: nlist, NProbe: nprobe})
	require.NoError(t, err)
	return vIdx.(*ivfIndex)
}

func TestIVFIndex_BuildAndSearch(t *testing.T) {
	dim := 4
	ids, vectors := generateVectors(20, dim)
	idx := newIVF(t, dim, 5, 2)
	require.NoError(t, idx.Build(ids, vectors))
	assert.Equal(t, 20, idx.Len())
	assert.Len(t, idx.centroids, 5)

	res, err := idx.Search(vectors[6], 3)
	require.NoError(t, err)
	require.NotEmpty(t, res.IDs)
	assert.Equal(t, ids[6], res.IDs[0])
	assert.Equal(t, float32(0), res.Distances[0])
}

func TestIVFIndex_FullProbeMatchesFlat(t *testing.T) {
	dim := 3
	ids, vectors := generateVectors(30, dim)
	for i := range vectors {
		vectors[i][1] = float32((i * 7) % 5)
		vectors[i][2] = float32((i * 3) % 4)
	}

	ivf := newIVF(t, dim, 6, 6)
	require.NoError(t, ivf.Build(ids, vectors))
	flat := newFlat(t, dim)
	require.NoError(t, flat.Build(ids, vectors))

	query := []float32{12.5, 2, 1}
	want, err := flat.Search(query, 10)
	require.NoError(t, err)
	got, err := ivf.Search(query, 10)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestIVFIndex_NListCappedByData(t *testing.T) {
	idx := newIVF(t, 4, 100, 10)
	require.NoError(t, idx.Build([]int64{1, 2}, [][]float32{{0, 0, 0, 0}, {1, 1, 1, 1}}))
	assert.Len(t, idx.centroids, 2)

	res, err := idx.Search([]float32{0, 0, 0, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, res.IDs)
	assert.Equal(t, []float32{0}, res.Distances)
}

func TestIVFIndex_AddAfterTrain(t *testing.T) {
	ids, vectors := generateVectors(10, 2)
	idx := newIVF(t, 2, 3, 3)
	require.NoError(t, idx.Build(ids, vectors))

	require.NoError(t, idx.Add(100, []float32{4.2, 0}))
	res, err := idx.Search([]float32{4.2, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, res.IDs)

	// re-adding moves the vector instead of duplicating it
	require.NoError(t, idx.Add(100, []float32{-50, 0}))
	assert.Equal(t, 11, idx.Len())

	require.NoError(t, idx.Delete(100))
	assert.ErrorIs(t, idx.Delete(100), pkgerrors.ErrDocumentNotFound)
	assert.Equal(t, 10, idx.Len())
}

func TestIVFIndex_Untrained(t *testing.T) {
	idx := newIVF(t, 2, 4, 1)
	assert.ErrorIs(t, idx.Add(1, []float32{1, 1}), pkgerrors.ErrNotTrained)

	_, err := idx.Search([]float32{1, 1}, 1)
	assert.ErrorIs(t, err, pkgerrors.ErrNotTrained)

	assert.ErrorIs(t, idx.Train(nil), pkgerrors.ErrNotTrained)
}

func TestIVFIndex_Validation(t *testing.T) {
	idx := newIVF(t, 2, 2, 1)
	assert.ErrorIs(t, idx.Build([]int64{1}, [][]float32{{1, 2, 3}}), pkgerrors.ErrInvalidDimension)
	assert.ErrorIs(t, idx.Build([]int64{1, 2}, [][]float32{{1, 2}}), pkgerrors.ErrMisMatchKeysAndValues)

	_, err := New(&IndexConfig{IndexType: IVFFLATIndex, Dimension: -1})
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidDimension)
}
