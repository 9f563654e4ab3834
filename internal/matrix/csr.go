package matrix

import (
	"fmt"

	"github.com/23skdu/longbow-sparse/internal/numeric"
)

// Csr is a compressed sparse row matrix. Row r owns the entries
// rowPtrs[r] .. rowPtrs[r+1]-1 of colIdxs and values.
type Csr[V numeric.Value, I numeric.Index] struct {
	size    Dim
	rowPtrs []I
	colIdxs []I
	values  []V
}

// NewCsr allocates a matrix with room for nnz stored elements. The row
// pointers are zero.
func NewCsr[V numeric.Value, I numeric.Index](size Dim, nnz int) *Csr[V, I] {
	if size.Rows < 0 || size.Cols < 0 || nnz < 0 {
		panic(fmt.Sprintf("matrix.NewCsr: invalid size %s with %d stored elements", size, nnz))
	}
	return &Csr[V, I]{
		size:    size,
		rowPtrs: make([]I, size.Rows+1),
		colIdxs: make([]I, nnz),
		values:  make([]V, nnz),
	}
}

// CsrFromParts wraps existing arrays after checking their shape.
func CsrFromParts[V numeric.Value, I numeric.Index](size Dim, rowPtrs, colIdxs []I, values []V) (*Csr[V, I], error) {
	if err := size.Validate(); err != nil {
		return nil, err
	}
	if len(rowPtrs) != size.Rows+1 {
		return nil, fmt.Errorf("%w: %d row pointers for %d rows", ErrDimensionMismatch, len(rowPtrs), size.Rows)
	}
	if len(colIdxs) != len(values) {
		return nil, fmt.Errorf("%w: %d column indices, %d values", ErrDimensionMismatch, len(colIdxs), len(values))
	}
	if rowPtrs[0] != 0 || int(rowPtrs[size.Rows]) != len(values) {
		return nil, fmt.Errorf("%w: row pointers span [%d, %d] for %d elements",
			ErrBadLayout, rowPtrs[0], rowPtrs[size.Rows], len(values))
	}
	for r := 0; r < size.Rows; r++ {
		if rowPtrs[r+1] < rowPtrs[r] {
			return nil, fmt.Errorf("%w: row %d", ErrNotMonotonic, r)
		}
	}
	for i, c := range colIdxs {
		if c < 0 || int(c) >= size.Cols {
			return nil, fmt.Errorf("%w: column %d of element %d in %s matrix", ErrOutOfRange, c, i, size)
		}
	}
	return &Csr[V, I]{size: size, rowPtrs: rowPtrs, colIdxs: colIdxs, values: values}, nil
}

func (m *Csr[V, I]) Size() Dim { return m.size }
func (m *Csr[V, I]) RowPtrs() []I { return m.rowPtrs }
func (m *Csr[V, I]) ColIdxs() []I { return m.colIdxs }
func (m *Csr[V, I]) Values() []V { return m.values }
func (m *Csr[V, I]) NumStored() int { return len(m.values) }

// Resize reallocates the column and value arrays for nnz stored elements,
// keeping the row pointers.
func (m *Csr[V, I]) Resize(nnz int) {
	m.colIdxs = make([]I, nnz)
	m.values = make([]V, nnz)
}
