package roadnet

import "errors"

var (
	// ErrMapIncomplete is returned while the required categories have not all
	// been observed (or no blob/file has been installed yet). It is
	// recoverable: callers retry once the network becomes usable.
	ErrMapIncomplete = errors.New("road network incomplete")

	// ErrUnknownCategory is returned for a category name outside the closed set.
	ErrUnknownCategory = errors.New("unknown map category")

	// ErrPayloadMismatch is returned when a fragment payload's record type does
	// not belong to the declared category.
	ErrPayloadMismatch = errors.New("fragment payload does not match category")

	// ErrWrongMode is returned when an ingestion call does not match the
	// assembler's configured source mode.
	ErrWrongMode = errors.New("operation not supported in this map source mode")

	// ErrInvalidBlob is returned for a blob that cannot be decoded.
	ErrInvalidBlob = errors.New("invalid map blob")
)
