package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func sampleData() *Data[float64, int32] {
	d := NewData[float64, int32](Dim{Rows: 3, Cols: 3})
	d.Append(2, 2, 2)
	d.Append(0, 2, 3)
	d.Append(1, 1, 7)
	d.Append(2, 0, 1)
	d.Append(0, 0, 5)
	return d
}

func TestData_SortRowMajor(t *testing.T) {
	d := sampleData()
	assert.False(t, d.IsSortedRowMajor())
	d.SortRowMajor()
	assert.True(t, d.IsSortedRowMajor())
	assert.Equal(t, []Entry[float64, int32]{
		{0, 0, 5}, {0, 2, 3}, {1, 1, 7}, {2, 0, 1}, {2, 2, 2},
	}, d.Nonzeros)
}

func TestData_SortKeepsDuplicateOrder(t *testing.T) {
	d := NewData[float32, int64](Dim{Rows: 2, Cols: 2})
	d.Append(1, 0, 1)
	d.Append(0, 1, 2)
	d.Append(1, 0, 3)
	d.SortRowMajor()
	assert.Equal(t, []Entry[float32, int64]{{0, 1, 2}, {1, 0, 1}, {1, 0, 3}}, d.Nonzeros)

	d.SumDuplicates()
	assert.Equal(t, []Entry[float32, int64]{{0, 1, 2}, {1, 0, 4}}, d.Nonzeros)
}

func TestData_RemoveZeros(t *testing.T) {
	d := NewData[complex64, int32](Dim{Rows: 2, Cols: 2})
	d.Append(0, 0, 0)
	d.Append(0, 1, complex(0, 1))
	d.Append(1, 1, 0)
	d.RemoveZeros()
	require.Equal(t, 1, d.NumStored())
	assert.Equal(t, complex64(complex(0, 1)), d.Nonzeros[0].Value)
}

func TestData_Validate(t *testing.T) {
	assert.NoError(t, sampleData().Validate())

	d := sampleData()
	d.Append(3, 0, 1)
	assert.ErrorIs(t, d.Validate(), ErrOutOfRange)

	d = sampleData()
	d.Append(0, -1, 1)
	assert.ErrorIs(t, d.Validate(), ErrOutOfRange)

	d = NewData[float64, int32](Dim{Rows: -1, Cols: 2})
	assert.ErrorIs(t, d.Validate(), ErrBadShape)
}

func TestDense(t *testing.T) {
	d := NewDenseWithStride[float64](Dim{Rows: 2, Cols: 2}, 3)
	assert.Len(t, d.Values(), 5)
	d.Fill(1)
	d.Set(1, 0, 4)
	assert.Equal(t, [][]float64{{1, 1}, {4, 1}}, d.Rows())
	// padding is left alone
	assert.Equal(t, 0.0, d.Values()[2])

	assert.Panics(t, func() { NewDenseWithStride[float64](Dim{Rows: 2, Cols: 3}, 2) })
	assert.Panics(t, func() { DenseFromRows([][]float64{{1, 2}, {3}}) })
}

func TestDense_Gonum(t *testing.T) {
	d := DenseFromRows([][]float32{{5, 0, 3}, {0, 7, 0}, {1, 0, 2}})
	g := d.ToGonum()
	assert.True(t, mat.Equal(g, mat.NewDense(3, 3, []float64{5, 0, 3, 0, 7, 0, 1, 0, 2})))

	back := DenseFromGonum[float32](g)
	assert.Equal(t, d.Rows(), back.Rows())

	c := DenseFromRows([][]complex128{{complex(1, 2)}})
	assert.Equal(t, complex(1, 2), c.ToGonumComplex().At(0, 0))

	empty := NewDense[float64](Dim{Rows: 0, Cols: 4})
	r, cols := empty.ToGonum().Dims()
	assert.Zero(t, r)
	assert.Zero(t, cols)
}

func TestCsrFromParts(t *testing.T) {
	size := Dim{Rows: 3, Cols: 3}
	m, err := CsrFromParts(size, []int32{0, 2, 3, 5}, []int32{0, 2, 1, 0, 2}, []float64{5, 3, 7, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, 5, m.NumStored())

	_, err = CsrFromParts(size, []int32{0, 2, 3}, []int32{0, 2, 1}, []float64{5, 3, 7})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = CsrFromParts(size, []int32{0, 2, 1, 3}, []int32{0, 2, 1}, []float64{5, 3, 7})
	assert.ErrorIs(t, err, ErrNotMonotonic)

	_, err = CsrFromParts(size, []int32{0, 1, 1, 1}, []int32{3}, []float64{5})
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = CsrFromParts(size, []int32{0, 1, 1, 2}, []int32{0}, []float64{5})
	assert.ErrorIs(t, err, ErrBadLayout)
}

func TestNewEll(t *testing.T) {
	m, err := NewEll[float64, int32](Dim{Rows: 3, Cols: 3}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Stride())
	assert.Equal(t, 6, m.NumStored())

	m.ColIdxs()[4] = 2
	m.Values()[4] = 9
	assert.Equal(t, int32(2), m.ColAt(1, 1))
	assert.Equal(t, 9.0, m.ValAt(1, 1))

	padded, err := NewEll[float64, int64](Dim{Rows: 3, Cols: 3}, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 10, padded.NumStored())

	_, err = NewEll[float64, int32](Dim{Rows: 3, Cols: 3}, 2, 2)
	assert.ErrorIs(t, err, ErrBadLayout)
}

func TestNewSellp(t *testing.T) {
	m, err := NewSellp[float64, int32](Dim{Rows: 3, Cols: 3}, 2, 1, []int{2, 2}, []int{0, 2, 4})
	require.NoError(t, err)
	assert.Equal(t, 8, m.NumStored())
	assert.Equal(t, 2, m.Layout().NumSlices())

	_, err = NewSellp[float64, int32](Dim{Rows: 3, Cols: 3}, 2, 1, []int{2}, []int{0, 2})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = NewSellp[float64, int32](Dim{Rows: 3, Cols: 3}, 2, 2, []int{2, 3}, []int{0, 2, 5})
	assert.ErrorIs(t, err, ErrBadLayout)

	_, err = NewSellp[float64, int32](Dim{Rows: 3, Cols: 3}, 2, 1, []int{2, 2}, []int{0, 2, 5})
	assert.ErrorIs(t, err, ErrNotMonotonic)

	_, err = NewSellp[float64, int32](Dim{Rows: 3, Cols: 3}, 0, 1, nil, nil)
	assert.ErrorIs(t, err, ErrBadLayout)

	empty, err := NewSellp[float64, int32](Dim{}, 64, 1, []int{}, []int{0})
	require.NoError(t, err)
	assert.Zero(t, empty.NumStored())
}
