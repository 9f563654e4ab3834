// Package matrix defines the storage containers the kernels read and write:
// unordered triplet data, dense arrays, CSR, ELL, SELL-P and diagonals.
//
// Containers only own buffers and dimensions. Everything that fills or
// converts them lives in the kernel packages.
package matrix

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/23skdu/longbow-sparse/internal/numeric"
)

// Dim is a (rows, cols) pair.
type Dim struct {
	Rows int
	Cols int
}

func (d Dim) String() string {
	return fmt.Sprintf("%dx%d", d.Rows, d.Cols)
}

// Validate rejects negative dimensions.
func (d Dim) Validate() error {
	if d.Rows < 0 || d.Cols < 0 {
		return fmt.Errorf("%w: %s", ErrBadShape, d)
	}
	return nil
}

// Entry is one (row, column, value) triplet.
type Entry[V numeric.Value, I numeric.Index] struct {
	Row    I
	Column I
	Value  V
}

// Data is an unordered list of triplets together with the matrix size.
type Data[V numeric.Value, I numeric.Index] struct {
	Size     Dim
	Nonzeros []Entry[V, I]
}

// NewData creates an empty triplet list for a matrix of the given size.
func NewData[V numeric.Value, I numeric.Index](size Dim) *Data[V, I] {
	return &Data[V, I]{Size: size}
}

// Append adds a triplet.
func (d *Data[V, I]) Append(row, col I, v V) {
	d.Nonzeros = append(d.Nonzeros, Entry[V, I]{Row: row, Column: col, Value: v})
}

// Validate checks the size and that every entry lies inside it.
func (d *Data[V, I]) Validate() error {
	if err := d.Size.Validate(); err != nil {
		return err
	}
	for i, e := range d.Nonzeros {
		if e.Row < 0 || int(e.Row) >= d.Size.Rows || e.Column < 0 || int(e.Column) >= d.Size.Cols {
			return fmt.Errorf("%w: entry %d at (%d, %d) in %s matrix", ErrOutOfRange, i, e.Row, e.Column, d.Size)
		}
	}
	return nil
}

func compareRowMajor[V numeric.Value, I numeric.Index](a, b Entry[V, I]) int {
	if c := cmp.Compare(a.Row, b.Row); c != 0 {
		return c
	}
	return cmp.Compare(a.Column, b.Column)
}

// SortRowMajor orders the entries by row, then column. Entries with equal
// position keep their input order.
func (d *Data[V, I]) SortRowMajor() {
	slices.SortStableFunc(d.Nonzeros, compareRowMajor[V, I])
}

// IsSortedRowMajor reports whether the entries are ordered by row, then column.
func (d *Data[V, I]) IsSortedRowMajor() bool {
	return slices.IsSortedFunc(d.Nonzeros, compareRowMajor[V, I])
}

// RemoveZeros drops entries whose value is not a structural nonzero.
func (d *Data[V, I]) RemoveZeros() {
	d.Nonzeros = slices.DeleteFunc(d.Nonzeros, func(e Entry[V, I]) bool {
		return !numeric.IsNonzero(e.Value)
	})
}

// SumDuplicates merges consecutive entries with the same position by adding
// their values. The entries must be sorted.
func (d *Data[V, I]) SumDuplicates() {
	if len(d.Nonzeros) == 0 {
		return
	}
	out := d.Nonzeros[:1]
	for _, e := range d.Nonzeros[1:] {
		last := &out[len(out)-1]
		if last.Row == e.Row && last.Column == e.Column {
			last.Value += e.Value
			continue
		}
		out = append(out, e)
	}
	d.Nonzeros = out
}

// NumStored returns the number of triplets.
func (d *Data[V, I]) NumStored() int {
	return len(d.Nonzeros)
}
