// Package csr holds the kernels of the compressed sparse row format. CSR is
// the canonical form the padded formats convert to and from.
package csr

import (
	"fmt"

	"github.com/23skdu/longbow-sparse/internal/components"
	"github.com/23skdu/longbow-sparse/internal/device"
	"github.com/23skdu/longbow-sparse/internal/launch"
	"github.com/23skdu/longbow-sparse/internal/matrix"
	"github.com/23skdu/longbow-sparse/internal/numeric"
)

// FillInMatrixData copies row-sorted entries into out, whose row pointers
// must already describe them.
func FillInMatrixData[V numeric.Value, I numeric.Index](exec device.Backend, nonzeros []matrix.Entry[V, I], out *matrix.Csr[V, I]) {
	if len(nonzeros) != out.NumStored() {
		panic(fmt.Sprintf("csr.FillInMatrixData: %d entries for %d stored elements", len(nonzeros), out.NumStored()))
	}
	cols, vals := out.ColIdxs(), out.Values()
	launch.Run(exec, len(nonzeros), func(i int) {
		cols[i] = nonzeros[i].Column
		vals[i] = nonzeros[i].Value
	})
}

// FillInDense adds every stored element of source into result, which must be
// zeroed by the caller.
func FillInDense[V numeric.Value, I numeric.Index](exec device.Backend, source *matrix.Csr[V, I], result *matrix.Dense[V]) {
	if result.Size() != source.Size() {
		panic(fmt.Sprintf("csr.FillInDense: result %s for %s matrix", result.Size(), source.Size()))
	}
	rowPtrs, cols, vals := source.RowPtrs(), source.ColIdxs(), source.Values()
	out, stride := result.Values(), result.Stride()
	launch.Run(exec, source.Size().Rows, func(row int) {
		for i := rowPtrs[row]; i < rowPtrs[row+1]; i++ {
			out[row*stride+int(cols[i])] += vals[i]
		}
	})
}

// CountNonzerosPerRow writes the number of structural nonzeros of every row
// to result[row].
func CountNonzerosPerRow[V numeric.Value, I numeric.Index, P components.Integer](exec device.Backend, source *matrix.Csr[V, I], result []P) {
	rows := source.Size().Rows
	if len(result) < rows {
		panic(fmt.Sprintf("csr.CountNonzerosPerRow: result of length %d for %d rows", len(result), rows))
	}
	rowPtrs, vals := source.RowPtrs(), source.Values()
	launch.Run(exec, rows, func(row int) {
		var nnz P
		for i := rowPtrs[row]; i < rowPtrs[row+1]; i++ {
			if numeric.IsNonzero(vals[i]) {
				nnz++
			}
		}
		result[row] = nnz
	})
}

// ExtractDiagonal writes the first element at column == row of every row into
// diag, which must be zeroed by the caller.
func ExtractDiagonal[V numeric.Value, I numeric.Index](exec device.Backend, source *matrix.Csr[V, I], diag *matrix.Diagonal[V]) {
	size := source.Size()
	if diag.Size() < min(size.Rows, size.Cols) {
		panic(fmt.Sprintf("csr.ExtractDiagonal: diagonal of %d for %s matrix", diag.Size(), size))
	}
	rowPtrs, cols, vals := source.RowPtrs(), source.ColIdxs(), source.Values()
	out := diag.Values()
	launch.Run(exec, size.Rows, func(row int) {
		for i := rowPtrs[row]; i < rowPtrs[row+1]; i++ {
			if int(cols[i]) == row {
				out[row] = vals[i]
				return
			}
		}
	})
}

// ExtractNonzeros expands source back into row-sorted triplets, together with
// the row pointers the padded formats are filled from.
func ExtractNonzeros[V numeric.Value, I numeric.Index](exec device.Backend, source *matrix.Csr[V, I]) ([]matrix.Entry[V, I], []int64) {
	rows := source.Size().Rows
	rowPtrs, cols, vals := source.RowPtrs(), source.ColIdxs(), source.Values()
	nonzeros := make([]matrix.Entry[V, I], len(vals))
	ptrs := make([]int64, rows+1)
	launch.Run(exec, rows, func(row int) {
		for i := rowPtrs[row]; i < rowPtrs[row+1]; i++ {
			nonzeros[i] = matrix.Entry[V, I]{Row: I(row), Column: cols[i], Value: vals[i]}
		}
		ptrs[row+1] = int64(rowPtrs[row+1])
	})
	return nonzeros, ptrs
}
