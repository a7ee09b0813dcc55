package engine

import (
	"fmt"

	pkgerrors "vectorhub/pkg/errors"
)

type IndexType string
type MetricType string

const (
	IndexIVFFlat IndexType  = "IVF_FLAT"
	MetricL2     MetricType = "L2"
)

const (
	DefaultNList = 1024
	MaxNList     = 65536
)

// IndexSpec is the index-build request. Type and Metric are fixed by the
// core; only NList is tunable.
type IndexSpec struct {
	Field  string
	Type   IndexType
	Metric MetricType
	NList  int
}

// NewIndexSpec returns the IVF_FLAT/L2 spec for field.
func NewIndexSpec(field string, nlist int) IndexSpec {
	if nlist <= 0 {
		nlist = DefaultNList
	}
	return IndexSpec{
		Field:  field,
		Type:   IndexIVFFlat,
		Metric: MetricL2,
		NList:  nlist,
	}
}

func (s IndexSpec) Validate() error {
	if s.Type != IndexIVFFlat || s.Metric != MetricL2 {
		return fmt.Errorf("%w: only %s with %s is supported", pkgerrors.ErrInvalidSchema, IndexIVFFlat, MetricL2)
	}
	if s.NList < 1 || s.NList > MaxNList {
		return fmt.Errorf("%w: nlist %d not in [1, %d]", pkgerrors.ErrInvalidSchema, s.NList, MaxNList)
	}
	return ValidateName(s.Field)
}
