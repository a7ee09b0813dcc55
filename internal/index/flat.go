package index

import (
	pkgerrors "vectorhub/pkg/errors"
)

// FlatIndex is an exact brute-force index over contiguous memory.
type FlatIndex struct {
	Dim     int
	Data    []float32
	Ids     []int64
	IdToIdx map[int64]int
}

func newFlatIndex(config *IndexConfig) (VectorIndex, error) {
	if config.Dimension <= 0 {
		return nil, pkgerrors.ErrInvalidDimension
	}
	return &FlatIndex{
		Dim:     config.Dimension,
		Ids:     make([]int64, 0),
		Data:    make([]float32, 0),
		IdToIdx: make(map[int64]int),
	}, nil
}

// Add appends a vector; an existing id is overwritten in place.
func (f *FlatIndex) Add(id int64, vector []float32) error {
	if len(vector) != f.Dim {
		return pkgerrors.ErrInvalidDimension
	}
	if idx, exists := f.IdToIdx[id]; exists {
		copy(f.Data[idx*f.Dim:(idx+1)*f.Dim], vector)
		return nil
	}
	f.Ids = append(f.Ids, id)
	f.Data = append(f.Data, vector...)
	f.IdToIdx[id] = len(f.Ids) - 1
	return nil
}

func (f *FlatIndex) AddBatch(ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return pkgerrors.ErrMisMatchKeysAndValues
	}
	for i := range vectors {
		if len(vectors[i]) != f.Dim {
			return pkgerrors.ErrInvalidDimension
		}
	}
	for i := range ids {
		if err := f.Add(ids[i], vectors[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *FlatIndex) Build(ids []int64, vectors [][]float32) error {
	f.Ids = make([]int64, 0, len(ids))
	f.Data = make([]float32, 0, len(ids)*f.Dim)
	f.IdToIdx = make(map[int64]int, len(ids))
	return f.AddBatch(ids, vectors)
}

func (f *FlatIndex) Delete(id int64) error {
	idx, exists := f.IdToIdx[id]
	if !exists {
		return pkgerrors.ErrDocumentNotFound
	}
	f.Ids = append(f.Ids[:idx], f.Ids[idx+1:]...)
	start := idx * f.Dim
	f.Data = append(f.Data[:start], f.Data[start+f.Dim:]...)
	delete(f.IdToIdx, id)
	for i := idx; i < len(f.Ids); i++ {
		f.IdToIdx[f.Ids[i]] = i
	}
	return nil
}

func (f *FlatIndex) Search(vector []float32, k int) (*SearchResult, error) {
	if len(vector) != f.Dim {
		return nil, pkgerrors.ErrInvalidDimension
	}
	cands := make([]candidate, len(f.Ids))
	for i := range f.Ids {
		cands[i] = candidate{id: f.Ids[i], dist: l2(vector, f.Data[i*f.Dim:(i+1)*f.Dim])}
	}
	return topK(cands, k), nil
}

func (f *FlatIndex) Len() int {
	return len(f.Ids)
}

// Vector returns the stored vector for id.
func (f *FlatIndex) Vector(id int64) ([]float32, bool) {
	idx, ok := f.IdToIdx[id]
	if !ok {
		return nil, false
	}
	return f.Data[idx*f.Dim : (idx+1)*f.Dim], true
}
