package engine

import (
	"fmt"
	"regexp"

	pkgerrors "vectorhub/pkg/errors"
)

const (
	DefaultPrimaryField = "id"
	DefaultVectorField  = "embedding"

	MaxDimension  = 32768
	MaxNameLength = 255
)

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Schema describes a collection: one manually assigned int64 primary key
// and one float32 vector field of fixed dimension. It is a value type and
// never changes after Create.
type Schema struct {
	PrimaryField string
	VectorField  string
	Dimension    int
	Description  string
}

// NewSchema returns a schema with the default field names.
func NewSchema(dimension int) (Schema, error) {
	s := Schema{
		PrimaryField: DefaultPrimaryField,
		VectorField:  DefaultVectorField,
		Dimension:    dimension,
	}
	return s, s.Validate()
}

// WithDefaults fills empty field names.
func (s Schema) WithDefaults() Schema {
	if s.PrimaryField == "" {
		s.PrimaryField = DefaultPrimaryField
	}
	if s.VectorField == "" {
		s.VectorField = DefaultVectorField
	}
	return s
}

func (s Schema) Validate() error {
	if s.Dimension < 1 || s.Dimension > MaxDimension {
		return fmt.Errorf("%w: %d not in [1, %d]", pkgerrors.ErrInvalidDimension, s.Dimension, MaxDimension)
	}
	if err := ValidateName(s.PrimaryField); err != nil {
		return fmt.Errorf("%w: primary field: %v", pkgerrors.ErrInvalidSchema, err)
	}
	if err := ValidateName(s.VectorField); err != nil {
		return fmt.Errorf("%w: vector field: %v", pkgerrors.ErrInvalidSchema, err)
	}
	if s.PrimaryField == s.VectorField {
		return fmt.Errorf("%w: primary and vector field share the name %q", pkgerrors.ErrInvalidSchema, s.PrimaryField)
	}
	return nil
}

// ValidateName checks a collection or field name against the identifier
// convention most engines accept.
func ValidateName(name string) error {
	if len(name) == 0 || len(name) > MaxNameLength {
		return fmt.Errorf("%w: length %d not in [1, %d]", pkgerrors.ErrInvalidName, len(name), MaxNameLength)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q must match %s", pkgerrors.ErrInvalidName, name, namePattern)
	}
	return nil
}
