package engine

import (
	"strings"
	"testing"

	pkgerrors "vectorhub/pkg/errors"

	"github.com/stretchr/testify/assert"
)

func TestNewSchema(t *testing.T) {
	s, err := NewSchema(4)
	assert.NoError(t, err)
	assert.Equal(t, "id", s.PrimaryField)
	assert.Equal(t, "embedding", s.VectorField)
	assert.Equal(t, 4, s.Dimension)

	_, err = NewSchema(0)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidDimension)

	_, err = NewSchema(MaxDimension + 1)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidDimension)
}

func TestSchemaValidateFields(t *testing.T) {
	s := Schema{PrimaryField: "pk", VectorField: "pk", Dimension: 8}
	assert.ErrorIs(t, s.Validate(), pkgerrors.ErrInvalidSchema)

	s = Schema{PrimaryField: "pk", VectorField: "1vec", Dimension: 8}
	assert.ErrorIs(t, s.Validate(), pkgerrors.ErrInvalidSchema)

	s = Schema{Dimension: 8}.WithDefaults()
	assert.NoError(t, s.Validate())
}

func TestValidateName(t *testing.T) {
	for _, name := range []string{"docs", "_private", "Docs_2024", "a"} {
		assert.NoError(t, ValidateName(name), name)
	}
	for _, name := range []string{"", "2docs", "my-docs", "docs.v1", "naïve", strings.Repeat("a", MaxNameLength+1)} {
		assert.ErrorIs(t, ValidateName(name), pkgerrors.ErrInvalidName, name)
	}
}

func TestIndexSpec(t *testing.T) {
	spec := NewIndexSpec("embedding", 0)
	assert.Equal(t, IndexIVFFlat, spec.Type)
	assert.Equal(t, MetricL2, spec.Metric)
	assert.Equal(t, DefaultNList, spec.NList)
	assert.NoError(t, spec.Validate())

	spec.Metric = "IP"
	assert.ErrorIs(t, spec.Validate(), pkgerrors.ErrInvalidSchema)

	spec = NewIndexSpec("embedding", MaxNList+1)
	assert.ErrorIs(t, spec.Validate(), pkgerrors.ErrInvalidSchema)
}
