// Package layout maps (row, slot) positions of the padded sparse formats onto
// linear storage offsets. The descriptors are plain values; kernels copy them
// into their closures.
package layout

// Ell describes column-major ELL storage: slot k of row r lives at
// k*Stride + r.
type Ell struct {
	Stride          int
	NumStoredPerRow int
}

// Offset returns the storage offset of slot k of row.
func (l Ell) Offset(row, slot int) int {
	return slot*l.Stride + row
}

// StorageSize is the number of stored elements, padding included.
func (l Ell) StorageSize() int {
	return l.Stride * l.NumStoredPerRow
}

// Valid reports whether the layout can hold rows rows.
func (l Ell) Valid(rows int) bool {
	return l.Stride >= rows && l.NumStoredPerRow >= 0
}

// Sellp describes sliced ELL storage. Rows are grouped into slices of
// SliceSize rows; slice s holds SliceSets[s+1]-SliceSets[s] slots per row and
// starts at SliceSets[s]*SliceSize.
type Sellp struct {
	SliceSize int
	SliceSets []int
}

// Slice returns the slice of row and the row's position inside it.
func (l Sellp) Slice(row int) (slice, localRow int) {
	return row / l.SliceSize, row % l.SliceSize
}

// SliceLength returns the padded row capacity of slice.
func (l Sellp) SliceLength(slice int) int {
	return l.SliceSets[slice+1] - l.SliceSets[slice]
}

// RowLength returns the padded capacity of the slice that owns row.
func (l Sellp) RowLength(row int) int {
	return l.SliceLength(row / l.SliceSize)
}

// RowBegin returns the offset of slot 0 of row. Consecutive slots of the same
// row are SliceSize elements apart.
func (l Sellp) RowBegin(row int) int {
	slice, local := l.Slice(row)
	return l.SliceSets[slice]*l.SliceSize + local
}

// Offset returns the storage offset of slot k of row.
func (l Sellp) Offset(row, k int) int {
	return l.RowBegin(row) + k*l.SliceSize
}

// NumSlices returns the number of slices described by SliceSets.
func (l Sellp) NumSlices() int {
	if len(l.SliceSets) == 0 {
		return 0
	}
	return len(l.SliceSets) - 1
}

// StorageSize is the number of stored elements, padding included.
func (l Sellp) StorageSize() int {
	if len(l.SliceSets) == 0 {
		return 0
	}
	return l.SliceSets[len(l.SliceSets)-1] * l.SliceSize
}

// NumSlices returns ceil(rows / sliceSize).
func NumSlices(rows, sliceSize int) int {
	return CeilDiv(rows, sliceSize)
}

// CeilDiv returns ceil(a / b) for non-negative a and positive b.
func CeilDiv(a, b int) int {
	return (a + b - 1) / b
}
