package matrix

import "errors"

// Sentinel errors of the matrix containers. Callers match them with errors.Is;
// context is added with fmt.Errorf("...: %w", ErrX).
var (
	// ErrBadShape is returned for negative dimensions.
	ErrBadShape = errors.New("matrix: invalid shape")

	// ErrOutOfRange indicates an entry whose row or column lies outside the
	// matrix dimensions.
	ErrOutOfRange = errors.New("matrix: index out of range")

	// ErrDimensionMismatch indicates operands whose sizes do not agree.
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

	// ErrNotMonotonic indicates row pointers that decrease.
	ErrNotMonotonic = errors.New("matrix: row pointers not monotonic")

	// ErrBadLayout indicates a storage layout that cannot hold the matrix,
	// e.g. an ELL stride below the row count or a slice size of zero.
	ErrBadLayout = errors.New("matrix: invalid storage layout")
)
