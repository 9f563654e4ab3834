package matrix

import (
	"fmt"

	"github.com/23skdu/longbow-sparse/internal/layout"
	"github.com/23skdu/longbow-sparse/internal/numeric"
)

// Ell stores a fixed number of slots per row in column-major order. Unused
// slots hold column 0 and a zero value.
type Ell[V numeric.Value, I numeric.Index] struct {
	size            Dim
	numStoredPerRow int
	stride          int
	colIdxs         []I
	values          []V
}

// NewEll allocates an ELL matrix with numStoredPerRow slots per row. A stride
// of zero means one slot per row, i.e. size.Rows.
func NewEll[V numeric.Value, I numeric.Index](size Dim, numStoredPerRow, stride int) (*Ell[V, I], error) {
	if err := size.Validate(); err != nil {
		return nil, err
	}
	if stride == 0 {
		stride = size.Rows
	}
	l := layout.Ell{Stride: stride, NumStoredPerRow: numStoredPerRow}
	if !l.Valid(size.Rows) {
		return nil, fmt.Errorf("%w: ELL stride %d with %d slots for %d rows",
			ErrBadLayout, stride, numStoredPerRow, size.Rows)
	}
	n := l.StorageSize()
	return &Ell[V, I]{
		size:            size,
		numStoredPerRow: numStoredPerRow,
		stride:          stride,
		colIdxs:         make([]I, n),
		values:          make([]V, n),
	}, nil
}

func (m *Ell[V, I]) Size() Dim { return m.size }
func (m *Ell[V, I]) NumStoredElementsPerRow() int { return m.numStoredPerRow }
func (m *Ell[V, I]) Stride() int { return m.stride }
func (m *Ell[V, I]) ColIdxs() []I { return m.colIdxs }
func (m *Ell[V, I]) Values() []V { return m.values }

// NumStored is the number of stored slots, padding included.
func (m *Ell[V, I]) NumStored() int { return len(m.values) }

func (m *Ell[V, I]) Layout() layout.Ell {
	return layout.Ell{Stride: m.stride, NumStoredPerRow: m.numStoredPerRow}
}

// ColAt returns the column stored in slot k of row.
func (m *Ell[V, I]) ColAt(row, k int) I {
	return m.colIdxs[m.Layout().Offset(row, k)]
}

// ValAt returns the value stored in slot k of row.
func (m *Ell[V, I]) ValAt(row, k int) V {
	return m.values[m.Layout().Offset(row, k)]
}
