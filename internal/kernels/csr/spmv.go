package csr

import (
	"github.com/23skdu/longbow-sparse/internal/device"
	"github.com/23skdu/longbow-sparse/internal/launch"
	"github.com/23skdu/longbow-sparse/internal/matrix"
	"github.com/23skdu/longbow-sparse/internal/numeric"
)

type scaling[MV, XV numeric.Value] struct {
	alpha MV
	beta  XV
}

// Spmv computes c = A·b. The matrix, b and c may use different value types;
// products are accumulated in complex128 if any of them is complex and in
// float64 otherwise.
func Spmv[MV, BV, XV numeric.Value, I numeric.Index](exec device.Backend, a *matrix.Csr[MV, I], b *matrix.Dense[BV], c *matrix.Dense[XV]) {
	if err := matrix.CheckApply(a.Size(), b.Size(), c.Size()); err != nil {
		panic("csr.Spmv: " + err.Error())
	}
	if numeric.AnyComplex[MV, BV, XV]() {
		spmv[complex128](exec, a, b, c, nil)
		return
	}
	spmv[float64](exec, a, b, c, nil)
}

// AdvancedSpmv computes c = alpha·A·b + beta·c with the precision rules of
// Spmv.
func AdvancedSpmv[MV, BV, XV numeric.Value, I numeric.Index](exec device.Backend, alpha MV, a *matrix.Csr[MV, I], b *matrix.Dense[BV], beta XV, c *matrix.Dense[XV]) {
	if err := matrix.CheckApply(a.Size(), b.Size(), c.Size()); err != nil {
		panic("csr.AdvancedSpmv: " + err.Error())
	}
	s := &scaling[MV, XV]{alpha: alpha, beta: beta}
	if numeric.AnyComplex[MV, BV, XV]() {
		spmv[complex128](exec, a, b, c, s)
		return
	}
	spmv[float64](exec, a, b, c, s)
}

func spmv[A numeric.Accumulator, MV, BV, XV numeric.Value, I numeric.Index](exec device.Backend, a *matrix.Csr[MV, I], b *matrix.Dense[BV], c *matrix.Dense[XV], s *scaling[MV, XV]) {
	rowPtrs, cols, vals := a.RowPtrs(), a.ColIdxs(), a.Values()
	launch.Run2D(exec, a.Size().Rows, b.Size().Cols, func(row, j int) {
		var sum A
		for i := rowPtrs[row]; i < rowPtrs[row+1]; i++ {
			sum += numeric.Convert[A](vals[i]) * numeric.Convert[A](b.At(int(cols[i]), j))
		}
		if s != nil {
			sum = numeric.Convert[A](s.alpha)*sum + numeric.Convert[A](s.beta)*numeric.Convert[A](c.At(row, j))
		}
		c.Set(row, j, numeric.Convert[XV](sum))
	})
}
