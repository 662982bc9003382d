package layout

import "errors"

var (
	// ErrLengthMismatch is returned when a buffer's length differs from the schema size.
	ErrLengthMismatch = errors.New("layout: buffer length mismatch")

	// ErrInvalidSchema is returned by NewSchema for malformed field lists.
	ErrInvalidSchema = errors.New("layout: invalid schema")

	// ErrMissingField is returned by Encode when a named field has no value.
	ErrMissingField = errors.New("layout: missing field")

	// ErrInvalidValue is returned by Encode when a value does not fit its field.
	ErrInvalidValue = errors.New("layout: invalid value")
)
