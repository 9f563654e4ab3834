package matrix

import (
	"fmt"

	"github.com/23skdu/longbow-sparse/internal/numeric"
)

// Dense is a row-major dense matrix. Element (r, c) lives at r*stride + c;
// stride may exceed the column count.
type Dense[V numeric.Value] struct {
	size   Dim
	stride int
	values []V
}

// NewDense allocates a zero-filled matrix with stride equal to the column count.
func NewDense[V numeric.Value](size Dim) *Dense[V] {
	return NewDenseWithStride[V](size, size.Cols)
}

// NewDenseWithStride allocates a zero-filled matrix with the given row stride.
// It panics if stride is below the column count.
func NewDenseWithStride[V numeric.Value](size Dim, stride int) *Dense[V] {
	if size.Rows < 0 || size.Cols < 0 || stride < size.Cols {
		panic(fmt.Sprintf("matrix.NewDense: invalid size %s with stride %d", size, stride))
	}
	n := 0
	if size.Rows > 0 {
		n = (size.Rows-1)*stride + size.Cols
	}
	return &Dense[V]{size: size, stride: stride, values: make([]V, n)}
}

// DenseFromRows builds a matrix from a slice of equally long rows.
func DenseFromRows[V numeric.Value](rows [][]V) *Dense[V] {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	d := NewDense[V](Dim{Rows: len(rows), Cols: cols})
	for r, row := range rows {
		if len(row) != cols {
			panic(fmt.Sprintf("matrix.DenseFromRows: row %d has %d columns, want %d", r, len(row), cols))
		}
		copy(d.values[r*d.stride:], row)
	}
	return d
}

func (d *Dense[V]) Size() Dim { return d.size }
func (d *Dense[V]) Stride() int { return d.stride }

// Values exposes the backing storage, padding included.
func (d *Dense[V]) Values() []V { return d.values }

func (d *Dense[V]) At(row, col int) V {
	return d.values[row*d.stride+col]
}

func (d *Dense[V]) Set(row, col int, v V) {
	d.values[row*d.stride+col] = v
}

// Fill sets every element to v.
func (d *Dense[V]) Fill(v V) {
	for r := 0; r < d.size.Rows; r++ {
		row := d.values[r*d.stride : r*d.stride+d.size.Cols]
		for c := range row {
			row[c] = v
		}
	}
}

// Rows copies the matrix into a slice of rows.
func (d *Dense[V]) Rows() [][]V {
	out := make([][]V, d.size.Rows)
	for r := range out {
		out[r] = make([]V, d.size.Cols)
		copy(out[r], d.values[r*d.stride:r*d.stride+d.size.Cols])
	}
	return out
}

// CheckApply verifies that c = A·b is well formed for an A of size a, a b of
// size b and a c of size c.
func CheckApply(a, b, c Dim) error {
	if a.Cols != b.Rows || a.Rows != c.Rows || b.Cols != c.Cols {
		return fmt.Errorf("%w: %s times %s into %s", ErrDimensionMismatch, a, b, c)
	}
	return nil
}
