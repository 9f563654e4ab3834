package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEll(t *testing.T) {
	l := Ell{Stride: 3, NumStoredPerRow: 2}

	// 3x3 example: slots [5,7,1 | 3,0,2]
	assert.Equal(t, 0, l.Offset(0, 0))
	assert.Equal(t, 1, l.Offset(1, 0))
	assert.Equal(t, 2, l.Offset(2, 0))
	assert.Equal(t, 3, l.Offset(0, 1))
	assert.Equal(t, 4, l.Offset(1, 1))
	assert.Equal(t, 5, l.Offset(2, 1))
	assert.Equal(t, 6, l.StorageSize())
	assert.True(t, l.Valid(3))
	assert.False(t, l.Valid(4))

	padded := Ell{Stride: 600, NumStoredPerRow: 300}
	assert.Equal(t, 600*7+531, padded.Offset(531, 7))
}

func TestSellp(t *testing.T) {
	// slice_size=2: slice 0 = rows 0,1 (length 2), slice 1 = row 2 (length 2)
	l := Sellp{SliceSize: 2, SliceSets: []int{0, 2, 4}}

	slice, local := l.Slice(3)
	assert.Equal(t, 1, slice)
	assert.Equal(t, 1, local)

	assert.Equal(t, 2, l.NumSlices())
	assert.Equal(t, 2, l.SliceLength(0))
	assert.Equal(t, 2, l.RowLength(2))
	assert.Equal(t, 8, l.StorageSize())

	assert.Equal(t, 0, l.Offset(0, 0))
	assert.Equal(t, 2, l.Offset(0, 1))
	assert.Equal(t, 1, l.Offset(1, 0))
	assert.Equal(t, 3, l.Offset(1, 1))
	assert.Equal(t, 4, l.Offset(2, 0))
	assert.Equal(t, 6, l.Offset(2, 1))
}

func TestSellp_UnevenSlices(t *testing.T) {
	l := Sellp{SliceSize: 4, SliceSets: []int{0, 3, 3, 8}}

	assert.Equal(t, 3, l.RowLength(3))
	assert.Equal(t, 0, l.RowLength(5))
	assert.Equal(t, 5, l.SliceLength(2))
	assert.Equal(t, 3*4+1, l.RowBegin(9))
	assert.Equal(t, 3*4+1+2*4, l.Offset(9, 2))
	assert.Equal(t, 32, l.StorageSize())
}

func TestSellp_Empty(t *testing.T) {
	var l Sellp
	assert.Equal(t, 0, l.NumSlices())
	assert.Equal(t, 0, l.StorageSize())
	assert.Equal(t, 0, NumSlices(0, 64))
	assert.Equal(t, 1, NumSlices(1, 64))
	assert.Equal(t, 2, NumSlices(65, 64))
}
