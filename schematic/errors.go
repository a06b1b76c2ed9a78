package schematic

import (
	"errors"
	"fmt"
)

var (
	ErrUnrecognizedFormat = errors.New("schematic: unrecognized format")
	ErrTruncatedStream    = errors.New("schematic: block stream ended before the volume was filled")
	ErrMalformedVarint    = errors.New("schematic: varint does not fit in 32 bits")
	ErrDimensionMismatch  = errors.New("schematic: block array length does not match dimensions")
	ErrPaletteIndex       = errors.New("schematic: palette index out of range")
	ErrInvalidDimensions  = errors.New("schematic: invalid dimensions")
	ErrMissingField       = errors.New("schematic: missing required field")
	ErrLayerOrder         = errors.New("schematic: layers of this source must be read in order")
)

// FieldError attaches the offending field (a dotted path into the tag tree) to a decode error.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

func fieldErr(field string, err error) error {
	return &FieldError{Field: field, Err: err}
}

func missing(field string) error {
	return &FieldError{Field: field, Err: ErrMissingField}
}
