package index

import (
	"fmt"

	pkgerrors "vectorhub/pkg/errors"
)

type ivfEntry struct {
	id     int64
	vector []float32
}

// ivfIndex is an inverted-file index with flat (unquantized) lists. A k-means
// coarse quantizer assigns every vector to its nearest centroid; a query
// scans the nprobe lists whose centroids are closest.
type ivfIndex struct {
	dim       int
	nlist     int
	nprobe    int
	maxIter   int
	centroids [][]float32
	lists     [][]ivfEntry
	idToList  map[int64]int
}

func newIVFIndex(config *IndexConfig) (VectorIndex, error) {
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("%w: %d", pkgerrors.ErrInvalidDimension, config.Dimension)
	}
	nlist := config.NList
	if nlist <= 0 {
		nlist = DEFAULT_NLIST
	}
	nprobe := config.NProbe
	if nprobe <= 0 {
		nprobe = DEFAULT_NPROBE
	}
	return &ivfIndex{
		dim:      config.Dimension,
		nlist:    nlist,
		nprobe:   nprobe,
		maxIter:  DEFAULT_MAX_KMEANS_ITER,
		idToList: make(map[int64]int),
	}, nil
}

// Train runs k-means over vectors. The cluster count is capped by the
// number of training vectors.
func (i *ivfIndex) Train(vectors [][]float32) error {
	if len(vectors) == 0 {
		return fmt.Errorf("%w: no training vectors", pkgerrors.ErrNotTrained)
	}
	k := i.nlist
	if k > len(vectors) {
		k = len(vectors)
	}

	// evenly spaced seeds keep training deterministic
	centroids := make([][]float32, k)
	for c := 0; c < k; c++ {
		centroids[c] = append([]float32(nil), vectors[c*len(vectors)/k]...)
	}

	assign := make([]int, len(vectors))
	for iter := 0; iter < i.maxIter; iter++ {
		changed := false
		for v, vec := range vectors {
			c := nearest(centroids, vec)
			if iter == 0 || c != assign[v] {
				changed = true
			}
			assign[v] = c
		}
		if !changed {
			break
		}

		sums := make([][]float32, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float32, i.dim)
		}
		for v, vec := range vectors {
			c := assign[v]
			counts[c]++
			for d, x := range vec {
				sums[c][d] += x
			}
		}
		for c := range centroids {
			// an empty cluster keeps its previous centroid
			if counts[c] == 0 {
				continue
			}
			for d := range sums[c] {
				centroids[c][d] = sums[c][d] / float32(counts[c])
			}
		}
	}

	i.centroids = centroids
	i.lists = make([][]ivfEntry, k)
	i.idToList = make(map[int64]int)
	return nil
}

func nearest(centroids [][]float32, vec []float32) int {
	best, bestDist := 0, float32(0)
	for c, centroid := range centroids {
		d := l2(vec, centroid)
		if c == 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func (i *ivfIndex) trained() bool {
	return len(i.centroids) > 0
}

func (i *ivfIndex) Add(id int64, vector []float32) error {
	if len(vector) != i.dim {
		return pkgerrors.ErrInvalidDimension
	}
	if !i.trained() {
		return pkgerrors.ErrNotTrained
	}
	if _, exists := i.idToList[id]; exists {
		_ = i.Delete(id)
	}
	c := nearest(i.centroids, vector)
	i.lists[c] = append(i.lists[c], ivfEntry{id: id, vector: append([]float32(nil), vector...)})
	i.idToList[id] = c
	return nil
}

func (i *ivfIndex) AddBatch(ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return pkgerrors.ErrMisMatchKeysAndValues
	}
	for j := range ids {
		if err := i.Add(ids[j], vectors[j]); err != nil {
			return fmt.Errorf("vector at index %d: %w", j, err)
		}
	}
	return nil
}

// Build trains the quantizer on vectors and then indexes them.
func (i *ivfIndex) Build(ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return pkgerrors.ErrMisMatchKeysAndValues
	}
	for _, v := range vectors {
		if len(v) != i.dim {
			return pkgerrors.ErrInvalidDimension
		}
	}
	if err := i.Train(vectors); err != nil {
		return err
	}
	return i.AddBatch(ids, vectors)
}

func (i *ivfIndex) Delete(id int64) error {
	c, exists := i.idToList[id]
	if !exists {
		return pkgerrors.ErrDocumentNotFound
	}
	list := i.lists[c]
	for j := range list {
		if list[j].id == id {
			i.lists[c] = append(list[:j], list[j+1:]...)
			break
		}
	}
	delete(i.idToList, id)
	return nil
}

func (i *ivfIndex) Search(query []float32, k int) (*SearchResult, error) {
	if len(query) != i.dim {
		return nil, pkgerrors.ErrInvalidDimension
	}
	if !i.trained() {
		return nil, pkgerrors.ErrNotTrained
	}

	probes := make([]candidate, len(i.centroids))
	for c, centroid := range i.centroids {
		probes[c] = candidate{id: int64(c), dist: l2(query, centroid)}
	}
	probed := topK(probes, i.nprobe)

	var cands []candidate
	for _, c := range probed.IDs {
		for _, e := range i.lists[c] {
			cands = append(cands, candidate{id: e.id, dist: l2(query, e.vector)})
		}
	}
	return topK(cands, k), nil
}

func (i *ivfIndex) Len() int {
	return len(i.idToList)
}
