// Package ell implements the kernels of the ELL format: sizing, population
// from sorted triplets, conversion to CSR and dense, nonzero counting and
// diagonal extraction.
//
// All kernels block until done. Output buffers must be allocated by the
// caller using the sizes computed by ComputeMaxRowNnz; undersized outputs
// panic before any work item runs.
package ell

import (
	"fmt"

	"github.com/23skdu/longbow-sparse/internal/components"
	"github.com/23skdu/longbow-sparse/internal/device"
	"github.com/23skdu/longbow-sparse/internal/launch"
	"github.com/23skdu/longbow-sparse/internal/matrix"
	"github.com/23skdu/longbow-sparse/internal/numeric"
)

// ComputeMaxRowNnz returns the largest row_ptrs[r+1]-row_ptrs[r]. It is 0 for
// a matrix without rows or without entries.
func ComputeMaxRowNnz[P components.Integer](exec device.Backend, rowPtrs []P) int {
	if len(rowPtrs) == 0 {
		return 0
	}
	return launch.RunReduction(exec, launch.Max[int](), len(rowPtrs)-1, func(i int) int {
		return int(rowPtrs[i+1] - rowPtrs[i])
	})
}

// FillInMatrixData writes the row-grouped entries into out. Row r takes the
// entries rowPtrs[r] .. rowPtrs[r+1]-1 in order; the remaining slots of the
// row get column 0 and a zero value.
func FillInMatrixData[V numeric.Value, I numeric.Index](exec device.Backend, nonzeros []matrix.Entry[V, I], rowPtrs []int64, out *matrix.Ell[V, I]) {
	rows := out.Size().Rows
	if len(rowPtrs) < rows+1 {
		panic(fmt.Sprintf("ell.FillInMatrixData: %d row pointers for %d rows", len(rowPtrs), rows))
	}
	if rows > 0 && rowPtrs[rows] > int64(len(nonzeros)) {
		panic(fmt.Sprintf("ell.FillInMatrixData: row pointers reference %d entries, have %d", rowPtrs[rows], len(nonzeros)))
	}
	l := out.Layout()
	for row := 0; row < rows; row++ {
		if n := rowPtrs[row+1] - rowPtrs[row]; n < 0 || n > int64(l.NumStoredPerRow) {
			panic(fmt.Sprintf("ell.FillInMatrixData: row %d has %d entries, capacity %d", row, n, l.NumStoredPerRow))
		}
	}
	cols, vals := out.ColIdxs(), out.Values()
	launch.Run(exec, rows, func(row int) {
		begin, end := rowPtrs[row], rowPtrs[row+1]
		idx := l.Offset(row, 0)
		for i := begin; i < begin+int64(l.NumStoredPerRow); i++ {
			if i < end {
				cols[idx] = nonzeros[i].Column
				vals[idx] = nonzeros[i].Value
			} else {
				cols[idx] = 0
				vals[idx] = numeric.Zero[V]()
			}
			idx += l.Stride
		}
	})
}

// FillInDense adds every stored slot of source into result at (row, column).
// Slots holding zero, padding included, are skipped. result must be zeroed
// by the caller.
func FillInDense[V numeric.Value, I numeric.Index](exec device.Backend, source *matrix.Ell[V, I], result *matrix.Dense[V]) {
	if result.Size() != source.Size() {
		panic(fmt.Sprintf("ell.FillInDense: result %s for %s matrix", result.Size(), source.Size()))
	}
	l := source.Layout()
	cols, vals := source.ColIdxs(), source.Values()
	out, stride := result.Values(), result.Stride()
	launch.Run(exec, source.Size().Rows, func(row int) {
		for k := 0; k < l.NumStoredPerRow; k++ {
			idx := l.Offset(row, k)
			if numeric.IsNonzero(vals[idx]) {
				out[row*stride+int(cols[idx])] += vals[idx]
			}
		}
	})
}

// ConvertToCsr copies the leading row_ptrs[r+1]-row_ptrs[r] slots of every
// row into result. The row pointers of result must already hold the per-row
// counts from CountNonzerosPerRow, prefix-summed, and its column and value
// arrays must be sized to the total.
func ConvertToCsr[V numeric.Value, I numeric.Index](exec device.Backend, source *matrix.Ell[V, I], result *matrix.Csr[V, I]) {
	if result.Size() != source.Size() {
		panic(fmt.Sprintf("ell.ConvertToCsr: result %s for %s matrix", result.Size(), source.Size()))
	}
	l := source.Layout()
	inCols, inVals := source.ColIdxs(), source.Values()
	rowPtrs, outCols, outVals := result.RowPtrs(), result.ColIdxs(), result.Values()
	rows := source.Size().Rows
	if rows > 0 && int(rowPtrs[rows]) > len(outVals) {
		panic(fmt.Sprintf("ell.ConvertToCsr: %d stored elements, room for %d", rowPtrs[rows], len(outVals)))
	}
	for row := 0; row < rows; row++ {
		if n := int(rowPtrs[row+1] - rowPtrs[row]); n < 0 || n > l.NumStoredPerRow {
			panic(fmt.Sprintf("ell.ConvertToCsr: row %d has %d entries, capacity %d", row, n, l.NumStoredPerRow))
		}
	}
	// slot outer, row inner: consecutive work items read consecutive storage
	launch.Run2D(exec, l.NumStoredPerRow, rows, func(slot, row int) {
		begin := int(rowPtrs[row])
		size := int(rowPtrs[row+1]) - begin
		if slot < size {
			idx := l.Offset(row, slot)
			outCols[begin+slot] = inCols[idx]
			outVals[begin+slot] = inVals[idx]
		}
	})
}

// CountNonzerosPerRow writes the number of structural nonzeros of every row
// to result[row]. Padding and explicitly stored zeros are not counted.
func CountNonzerosPerRow[V numeric.Value, I numeric.Index, P components.Integer](exec device.Backend, source *matrix.Ell[V, I], result []P) {
	l := source.Layout()
	vals := source.Values()
	launch.RunColReduction(exec, launch.Sum[P](), result, launch.Overwrite, l.NumStoredPerRow, source.Size().Rows,
		func(slot, row int) P {
			if numeric.IsNonzero(vals[l.Offset(row, slot)]) {
				return 1
			}
			return 0
		})
}

// ExtractDiagonal writes every stored nonzero at column == row into diag.
// When a row stores its diagonal more than once the highest slot wins. Rows
// without a diagonal entry leave diag untouched, so diag must be zeroed by
// the caller.
func ExtractDiagonal[V numeric.Value, I numeric.Index](exec device.Backend, source *matrix.Ell[V, I], diag *matrix.Diagonal[V]) {
	size := source.Size()
	if diag.Size() < min(size.Rows, size.Cols) {
		panic(fmt.Sprintf("ell.ExtractDiagonal: diagonal of %d for %s matrix", diag.Size(), size))
	}
	l := source.Layout()
	cols, vals := source.ColIdxs(), source.Values()
	out := diag.Values()
	launch.Run(exec, size.Rows, func(row int) {
		for k := 0; k < l.NumStoredPerRow; k++ {
			idx := l.Offset(row, k)
			if int(cols[idx]) == row && numeric.IsNonzero(vals[idx]) {
				out[row] = vals[idx]
			}
		}
	})
}

// ComputeAbsoluteInplace replaces every stored value with its magnitude.
func ComputeAbsoluteInplace[V numeric.Value, I numeric.Index](exec device.Backend, source *matrix.Ell[V, I]) {
	vals := source.Values()
	launch.Run(exec, len(vals), func(i int) {
		vals[i] = numeric.Abs(vals[i])
	})
}
