package ell

import (
	"math/rand"
	"testing"

	"github.com/23skdu/longbow-sparse/internal/components"
	"github.com/23skdu/longbow-sparse/internal/device"
	"github.com/23skdu/longbow-sparse/internal/matrix"
	"github.com/23skdu/longbow-sparse/internal/numeric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func backends(t *testing.T) []device.Backend {
	t.Helper()
	cpu := device.NewCPUBackend(device.Config{NumWorkers: 4})
	t.Cleanup(cpu.Close)
	return []device.Backend{device.NewReferenceBackend(), cpu}
}

// sample is the 3x3 matrix
//
//	5 0 3
//	0 7 0
//	1 0 2
func sample() ([]matrix.Entry[float64, int32], []int64) {
	return []matrix.Entry[float64, int32]{
		{Row: 0, Column: 0, Value: 5},
		{Row: 0, Column: 2, Value: 3},
		{Row: 1, Column: 1, Value: 7},
		{Row: 2, Column: 0, Value: 1},
		{Row: 2, Column: 2, Value: 2},
	}, []int64{0, 2, 3, 5}
}

func fill[V numeric.Value, I numeric.Index](t *testing.T, exec device.Backend, size matrix.Dim, nonzeros []matrix.Entry[V, I], rowPtrs []int64, stride int) *matrix.Ell[V, I] {
	t.Helper()
	m, err := matrix.NewEll[V, I](size, ComputeMaxRowNnz(exec, rowPtrs), stride)
	require.NoError(t, err)
	FillInMatrixData(exec, nonzeros, rowPtrs, m)
	return m
}

// random builds a sorted triplet list without explicit zeros.
func random(rng *rand.Rand, rows, cols int, density float64) ([]matrix.Entry[float64, int64], []int64) {
	var nonzeros []matrix.Entry[float64, int64]
	rowPtrs := make([]int64, rows+1)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if rng.Float64() < density {
				nonzeros = append(nonzeros, matrix.Entry[float64, int64]{Row: int64(r), Column: int64(c), Value: rng.Float64() + 0.5})
			}
		}
		rowPtrs[r+1] = int64(len(nonzeros))
	}
	return nonzeros, rowPtrs
}

func TestComputeMaxRowNnz(t *testing.T) {
	for _, exec := range backends(t) {
		t.Run(exec.Name(), func(t *testing.T) {
			_, rowPtrs := sample()
			assert.Equal(t, 2, ComputeMaxRowNnz(exec, rowPtrs))
			assert.Equal(t, 0, ComputeMaxRowNnz(exec, []int64{0, 0, 0, 0}))
			assert.Equal(t, 0, ComputeMaxRowNnz(exec, []int32{0}))
			assert.Equal(t, 0, ComputeMaxRowNnz[int64](exec, nil))

			rowPtrs = make([]int64, 1001)
			for i := 1; i < len(rowPtrs); i++ {
				rowPtrs[i] = rowPtrs[i-1] + int64(i%17)
			}
			assert.Equal(t, 16, ComputeMaxRowNnz(exec, rowPtrs))
		})
	}
}

func TestFillInMatrixData(t *testing.T) {
	for _, exec := range backends(t) {
		t.Run(exec.Name(), func(t *testing.T) {
			nonzeros, rowPtrs := sample()
			m := fill(t, exec, matrix.Dim{Rows: 3, Cols: 3}, nonzeros, rowPtrs, 0)

			assert.Equal(t, 2, m.NumStoredElementsPerRow())
			assert.Equal(t, 3, m.Stride())
			assert.Equal(t, []float64{5, 7, 1, 3, 0, 2}, m.Values())
			assert.Equal(t, []int32{0, 1, 0, 2, 0, 2}, m.ColIdxs())
		})
	}
}

func TestFillInMatrixData_Padding(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	nonzeros, rowPtrs := random(rng, 532, 231, 0.02)
	for _, exec := range backends(t) {
		t.Run(exec.Name(), func(t *testing.T) {
			m, err := matrix.NewEll[float64, int64](matrix.Dim{Rows: 532, Cols: 231}, 300, 600)
			require.NoError(t, err)
			// stale content must be overwritten inside the padding window
			for i := range m.Values() {
				m.Values()[i] = 42
				m.ColIdxs()[i] = 17
			}
			FillInMatrixData(exec, nonzeros, rowPtrs, m)

			for row := 0; row < 532; row++ {
				n := int(rowPtrs[row+1] - rowPtrs[row])
				for k := 0; k < 300; k++ {
					if k < n {
						e := nonzeros[int(rowPtrs[row])+k]
						assert.Equal(t, e.Column, m.ColAt(row, k))
						assert.Equal(t, e.Value, m.ValAt(row, k))
						continue
					}
					assert.Equal(t, int64(0), m.ColAt(row, k), "row %d slot %d", row, k)
					assert.Equal(t, 0.0, m.ValAt(row, k), "row %d slot %d", row, k)
				}
			}
		})
	}
}

func TestFillInMatrixData_Panics(t *testing.T) {
	exec := device.NewReferenceBackend()
	nonzeros, rowPtrs := sample()
	m, err := matrix.NewEll[float64, int32](matrix.Dim{Rows: 3, Cols: 3}, 1, 0)
	require.NoError(t, err)
	assert.Panics(t, func() { FillInMatrixData(exec, nonzeros, rowPtrs, m) })
	// no work item ran
	assert.Equal(t, []float64{0, 0, 0}, m.Values())

	assert.Panics(t, func() { FillInMatrixData(exec, nonzeros, rowPtrs[:3], m) })
}

func TestFillInDense(t *testing.T) {
	for _, exec := range backends(t) {
		t.Run(exec.Name(), func(t *testing.T) {
			nonzeros, rowPtrs := sample()
			m := fill(t, exec, matrix.Dim{Rows: 3, Cols: 3}, nonzeros, rowPtrs, 0)
			d := matrix.NewDense[float64](m.Size())
			FillInDense(exec, m, d)
			assert.Equal(t, [][]float64{{5, 0, 3}, {0, 7, 0}, {1, 0, 2}}, d.Rows())
		})
	}
}

func TestFillInDense_MatchesGonum(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	nonzeros, rowPtrs := random(rng, 97, 61, 0.1)
	want := mat.NewDense(97, 61, nil)
	for _, e := range nonzeros {
		want.Set(int(e.Row), int(e.Column), e.Value)
	}
	for _, exec := range backends(t) {
		t.Run(exec.Name(), func(t *testing.T) {
			m := fill(t, exec, matrix.Dim{Rows: 97, Cols: 61}, nonzeros, rowPtrs, 128)
			d := matrix.NewDenseWithStride[float64](m.Size(), 64)
			FillInDense(exec, m, d)
			assert.True(t, mat.Equal(want, d.ToGonum()))
		})
	}
}

func TestConvertToCsr(t *testing.T) {
	for _, exec := range backends(t) {
		t.Run(exec.Name(), func(t *testing.T) {
			nonzeros, rowPtrs := sample()
			m := fill(t, exec, matrix.Dim{Rows: 3, Cols: 3}, nonzeros, rowPtrs, 0)

			csr := matrix.NewCsr[float64, int32](m.Size(), 0)
			CountNonzerosPerRow(exec, m, csr.RowPtrs())
			assert.Equal(t, []int32{2, 1, 2, 0}, csr.RowPtrs())
			components.PrefixSum(exec, csr.RowPtrs())
			csr.Resize(int(csr.RowPtrs()[3]))
			ConvertToCsr(exec, m, csr)

			assert.Equal(t, []int32{0, 2, 3, 5}, csr.RowPtrs())
			assert.Equal(t, []int32{0, 2, 1, 0, 2}, csr.ColIdxs())
			assert.Equal(t, []float64{5, 3, 7, 1, 2}, csr.Values())
		})
	}
}

func TestConvertToCsr_RowOverCapacityPanics(t *testing.T) {
	nonzeros, rowPtrs := sample()
	for _, exec := range backends(t) {
		t.Run(exec.Name(), func(t *testing.T) {
			m := fill(t, exec, matrix.Dim{Rows: 3, Cols: 3}, nonzeros, rowPtrs, 0)
			require.Equal(t, 2, m.Layout().NumStoredPerRow)

			for _, ptrs := range [][]int32{{0, 3, 3, 5}, {0, 2, 1, 5}} {
				csr := matrix.NewCsr[float64, int32](m.Size(), 5)
				copy(csr.RowPtrs(), ptrs)
				assert.Panics(t, func() { ConvertToCsr(exec, m, csr) }, "row pointers %v", ptrs)
			}
		})
	}
}

func TestConvertToCsr_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	nonzeros, rowPtrs := random(rng, 300, 80, 0.05)
	for _, exec := range backends(t) {
		t.Run(exec.Name(), func(t *testing.T) {
			m := fill(t, exec, matrix.Dim{Rows: 300, Cols: 80}, nonzeros, rowPtrs, 0)
			csr := matrix.NewCsr[float64, int64](m.Size(), 0)
			CountNonzerosPerRow(exec, m, csr.RowPtrs())
			components.PrefixSum(exec, csr.RowPtrs())
			csr.Resize(int(csr.RowPtrs()[300]))
			ConvertToCsr(exec, m, csr)

			assert.Equal(t, rowPtrs, csr.RowPtrs())
			require.Len(t, csr.Values(), len(nonzeros))
			for i, e := range nonzeros {
				assert.Equal(t, e.Column, csr.ColIdxs()[i])
				assert.Equal(t, e.Value, csr.Values()[i])
			}
		})
	}
}

func TestCountNonzerosPerRow_ExplicitZeros(t *testing.T) {
	for _, exec := range backends(t) {
		t.Run(exec.Name(), func(t *testing.T) {
			nonzeros := []matrix.Entry[complex128, int32]{
				{Row: 0, Column: 0, Value: 0},
				{Row: 0, Column: 1, Value: 0},
				{Row: 1, Column: 1, Value: complex(0, 2)},
			}
			m := fill(t, exec, matrix.Dim{Rows: 3, Cols: 2}, nonzeros, []int64{0, 2, 3, 3}, 0)
			counts := make([]int64, 3)
			counts[2] = 99
			CountNonzerosPerRow(exec, m, counts)
			assert.Equal(t, []int64{0, 1, 0}, counts)
		})
	}
}

func TestExtractDiagonal(t *testing.T) {
	for _, exec := range backends(t) {
		t.Run(exec.Name(), func(t *testing.T) {
			nonzeros, rowPtrs := sample()
			m := fill(t, exec, matrix.Dim{Rows: 3, Cols: 3}, nonzeros, rowPtrs, 0)
			diag := matrix.NewDiagonal[float64](3)
			ExtractDiagonal(exec, m, diag)
			assert.Equal(t, []float64{5, 7, 2}, diag.Values())
		})
	}
}

func TestExtractDiagonal_Rules(t *testing.T) {
	for _, exec := range backends(t) {
		t.Run(exec.Name(), func(t *testing.T) {
			// row 0 stores its diagonal twice, row 1 an explicit zero, row 2 none
			nonzeros := []matrix.Entry[float32, int64]{
				{Row: 0, Column: 0, Value: 1},
				{Row: 0, Column: 0, Value: 4},
				{Row: 1, Column: 1, Value: 0},
				{Row: 2, Column: 0, Value: 3},
			}
			m := fill(t, exec, matrix.Dim{Rows: 3, Cols: 4}, nonzeros, []int64{0, 2, 3, 4}, 0)
			diag := matrix.NewDiagonal[float32](3)
			ExtractDiagonal(exec, m, diag)
			assert.Equal(t, []float32{4, 0, 0}, diag.Values())
		})
	}
}

func TestEmptyMatrix(t *testing.T) {
	for _, exec := range backends(t) {
		t.Run(exec.Name(), func(t *testing.T) {
			m := fill[float64, int32](t, exec, matrix.Dim{}, nil, []int64{0}, 0)
			assert.Zero(t, m.NumStored())

			d := matrix.NewDense[float64](matrix.Dim{})
			FillInDense(exec, m, d)
			counts := []int32{}
			CountNonzerosPerRow(exec, m, counts)
			csr := matrix.NewCsr[float64, int32](matrix.Dim{}, 0)
			ConvertToCsr(exec, m, csr)
			ExtractDiagonal(exec, m, matrix.NewDiagonal[float64](0))
			assert.Equal(t, []int32{0}, csr.RowPtrs())
		})
	}
}

func TestComputeAbsoluteInplace(t *testing.T) {
	for _, exec := range backends(t) {
		t.Run(exec.Name(), func(t *testing.T) {
			nonzeros := []matrix.Entry[complex128, int32]{
				{Row: 0, Column: 1, Value: complex(3, 4)},
				{Row: 1, Column: 0, Value: complex(0, -2)},
			}
			m := fill(t, exec, matrix.Dim{Rows: 2, Cols: 2}, nonzeros, []int64{0, 1, 2}, 0)
			ComputeAbsoluteInplace(exec, m)
			assert.Equal(t, []complex128{5, 2}, m.Values())
		})
	}
}
