// Package sellp implements the kernels of the sliced ELL format. Rows are
// grouped into slices of SliceSize rows; all rows of a slice share the same
// padded length and consecutive slots of a row are SliceSize elements apart.
package sellp

import (
	"fmt"

	"github.com/23skdu/longbow-sparse/internal/components"
	"github.com/23skdu/longbow-sparse/internal/device"
	"github.com/23skdu/longbow-sparse/internal/launch"
	"github.com/23skdu/longbow-sparse/internal/layout"
	"github.com/23skdu/longbow-sparse/internal/matrix"
	"github.com/23skdu/longbow-sparse/internal/numeric"
)

// ComputeSliceSets sizes a SELL-P matrix. The length of a slice is the
// largest row length in it, each row length first rounded up to a multiple of
// strideFactor. sliceLengths receives one length per slice and sliceSets
// their exclusive prefix sum, so sliceSets[numSlices] is the total length.
func ComputeSliceSets[P components.Integer](exec device.Backend, rowPtrs []P, sliceSize, strideFactor int, sliceSets, sliceLengths []int) {
	if sliceSize < 1 || strideFactor < 1 {
		panic(fmt.Sprintf("sellp.ComputeSliceSets: slice size %d, stride factor %d", sliceSize, strideFactor))
	}
	if len(rowPtrs) == 0 {
		panic("sellp.ComputeSliceSets: empty row pointers")
	}
	numRows := len(rowPtrs) - 1
	numSlices := layout.NumSlices(numRows, sliceSize)
	if len(sliceLengths) < numSlices || len(sliceSets) < numSlices+1 {
		panic(fmt.Sprintf("sellp.ComputeSliceSets: %d slice lengths and %d slice sets for %d slices",
			len(sliceLengths), len(sliceSets), numSlices))
	}

	launch.RunRowReduction(exec, launch.Max[int](), sliceLengths, 1, launch.Overwrite, numSlices, sliceSize,
		func(slice, localRow int) int {
			row := slice*sliceSize + localRow
			if row >= numRows {
				return 0
			}
			return layout.CeilDiv(int(rowPtrs[row+1]-rowPtrs[row]), strideFactor) * strideFactor
		})
	copy(sliceSets, sliceLengths[:numSlices])
	components.PrefixSum(exec, sliceSets[:numSlices+1])
}

// FillInMatrixData writes the row-grouped entries into out. Every row walks
// the full length of its slice; slots past the row's last entry get column 0
// and a zero value.
func FillInMatrixData[V numeric.Value, I numeric.Index](exec device.Backend, nonzeros []matrix.Entry[V, I], rowPtrs []int64, out *matrix.Sellp[V, I]) {
	rows := out.Size().Rows
	if len(rowPtrs) < rows+1 {
		panic(fmt.Sprintf("sellp.FillInMatrixData: %d row pointers for %d rows", len(rowPtrs), rows))
	}
	if rows > 0 && rowPtrs[rows] > int64(len(nonzeros)) {
		panic(fmt.Sprintf("sellp.FillInMatrixData: row pointers reference %d entries, have %d", rowPtrs[rows], len(nonzeros)))
	}
	l := out.Layout()
	for row := 0; row < rows; row++ {
		if n := rowPtrs[row+1] - rowPtrs[row]; n < 0 || n > int64(l.RowLength(row)) {
			panic(fmt.Sprintf("sellp.FillInMatrixData: row %d has %d entries, slice length %d", row, n, l.RowLength(row)))
		}
	}
	cols, vals := out.ColIdxs(), out.Values()
	launch.Run(exec, rows, func(row int) {
		begin, end := rowPtrs[row], rowPtrs[row+1]
		length := int64(l.RowLength(row))
		idx := l.RowBegin(row)
		for i := begin; i < begin+length; i++ {
			if i < end {
				cols[idx] = nonzeros[i].Column
				vals[idx] = nonzeros[i].Value
			} else {
				cols[idx] = 0
				vals[idx] = numeric.Zero[V]()
			}
			idx += l.SliceSize
		}
	})
}

// FillInDense adds every stored slot of source into result at (row, column).
// Slots holding zero are skipped. result must be zeroed by the caller.
func FillInDense[V numeric.Value, I numeric.Index](exec device.Backend, source *matrix.Sellp[V, I], result *matrix.Dense[V]) {
	if result.Size() != source.Size() {
		panic(fmt.Sprintf("sellp.FillInDense: result %s for %s matrix", result.Size(), source.Size()))
	}
	l := source.Layout()
	cols, vals := source.ColIdxs(), source.Values()
	out, stride := result.Values(), result.Stride()
	launch.Run(exec, source.Size().Rows, func(row int) {
		idx := l.RowBegin(row)
		for k := 0; k < l.RowLength(row); k++ {
			if numeric.IsNonzero(vals[idx]) {
				out[row*stride+int(cols[idx])] += vals[idx]
			}
			idx += l.SliceSize
		}
	})
}

// CountNonzerosPerRow writes the number of structural nonzeros of every row
// to result[row].
func CountNonzerosPerRow[V numeric.Value, I numeric.Index, P components.Integer](exec device.Backend, source *matrix.Sellp[V, I], result []P) {
	rows := source.Size().Rows
	if len(result) < rows {
		panic(fmt.Sprintf("sellp.CountNonzerosPerRow: result of length %d for %d rows", len(result), rows))
	}
	l := source.Layout()
	vals := source.Values()
	launch.Run(exec, rows, func(row int) {
		var nnz P
		idx := l.RowBegin(row)
		for k := 0; k < l.RowLength(row); k++ {
			if numeric.IsNonzero(vals[idx]) {
				nnz++
			}
			idx += l.SliceSize
		}
		result[row] = nnz
	})
}

// ConvertToCsr copies the leading row_ptrs[r+1]-row_ptrs[r] slots of every
// row into result, whose row pointers must already be final.
func ConvertToCsr[V numeric.Value, I numeric.Index](exec device.Backend, source *matrix.Sellp[V, I], result *matrix.Csr[V, I]) {
	if result.Size() != source.Size() {
		panic(fmt.Sprintf("sellp.ConvertToCsr: result %s for %s matrix", result.Size(), source.Size()))
	}
	rows := source.Size().Rows
	l := source.Layout()
	rowPtrs, outCols, outVals := result.RowPtrs(), result.ColIdxs(), result.Values()
	if int(rowPtrs[rows]) > len(outVals) {
		panic(fmt.Sprintf("sellp.ConvertToCsr: %d stored elements, room for %d", rowPtrs[rows], len(outVals)))
	}
	for row := 0; row < rows; row++ {
		if n := int(rowPtrs[row+1] - rowPtrs[row]); n < 0 || n > l.RowLength(row) {
			panic(fmt.Sprintf("sellp.ConvertToCsr: row %d has %d entries, slice length %d", row, n, l.RowLength(row)))
		}
	}
	inCols, inVals := source.ColIdxs(), source.Values()
	launch.Run(exec, rows, func(row int) {
		idx := l.RowBegin(row)
		for i := rowPtrs[row]; i < rowPtrs[row+1]; i++ {
			outCols[i] = inCols[idx]
			outVals[i] = inVals[idx]
			idx += l.SliceSize
		}
	})
}

// ExtractDiagonal writes the first stored slot at column == row of every row
// into diag. The value is taken as stored, zero included, and later slots of
// the same row are not inspected. diag must be zeroed by the caller.
func ExtractDiagonal[V numeric.Value, I numeric.Index](exec device.Backend, source *matrix.Sellp[V, I], diag *matrix.Diagonal[V]) {
	size := source.Size()
	if diag.Size() < min(size.Rows, size.Cols) {
		panic(fmt.Sprintf("sellp.ExtractDiagonal: diagonal of %d for %s matrix", diag.Size(), size))
	}
	l := source.Layout()
	cols, vals := source.ColIdxs(), source.Values()
	out := diag.Values()
	launch.Run(exec, size.Rows, func(row int) {
		idx := l.RowBegin(row)
		for k := 0; k < l.RowLength(row); k++ {
			if int(cols[idx]) == row {
				out[row] = vals[idx]
				break
			}
			idx += l.SliceSize
		}
	})
}

// ComputeAbsoluteInplace replaces every stored value with its magnitude.
func ComputeAbsoluteInplace[V numeric.Value, I numeric.Index](exec device.Backend, source *matrix.Sellp[V, I]) {
	vals := source.Values()
	launch.Run(exec, len(vals), func(i int) {
		vals[i] = numeric.Abs(vals[i])
	})
}
