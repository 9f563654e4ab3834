package sellp

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
// float64 otherwise. Zero slots are skipped like in ell.Spmv.
func Spmv[MV, BV, XV numeric.Value, I numeric.Index](exec device.Backend, a *matrix.Sellp[MV, I], b *matrix.Dense[BV], c *matrix.Dense[XV]) {
	if err := matrix.CheckApply(a.Size(), b.Size(), c.Size()); err != nil {
		panic("sellp.Spmv: " + err.Error())
	}
	if numeric.AnyComplex[MV, BV, XV]() {
		spmv[complex128](exec, a, b, c, nil)
		return
	}
	spmv[float64](exec, a, b, c, nil)
}

// AdvancedSpmv computes c = alpha·A·b + beta·c with the precision rules of
// Spmv.
func AdvancedSpmv[MV, BV, XV numeric.Value, I numeric.Index](exec device.Backend, alpha MV, a *matrix.Sellp[MV, I], b *matrix.Dense[BV], beta XV, c *matrix.Dense[XV]) {
	if err := matrix.CheckApply(a.Size(), b.Size(), c.Size()); err != nil {
		panic("sellp.AdvancedSpmv: " + err.Error())
	}
	s := &scaling[MV, XV]{alpha: alpha, beta: beta}
	if numeric.AnyComplex[MV, BV, XV]() {
		spmv[complex128](exec, a, b, c, s)
		return
	}
	spmv[float64](exec, a, b, c, s)
}

func spmv[A numeric.Accumulator, MV, BV, XV numeric.Value, I numeric.Index](exec device.Backend, a *matrix.Sellp[MV, I], b *matrix.Dense[BV], c *matrix.Dense[XV], s *scaling[MV, XV]) {
	l := a.Layout()
	cols, vals := a.ColIdxs(), a.Values()
	launch.Run2D(exec, a.Size().Rows, b.Size().Cols, func(row, j int) {
		var sum A
		idx := l.RowBegin(row)
		for k := 0; k < l.RowLength(row); k, idx = k+1, idx+l.SliceSize {
			if numeric.IsNonzero(vals[idx]) {
				sum += numeric.Convert[A](vals[idx]) * numeric.Convert[A](b.At(int(cols[idx]), j))
			}
		}
		if s != nil {
			sum = numeric.Convert[A](s.alpha)*sum + numeric.Convert[A](s.beta)*numeric.Convert[A](c.At(row, j))
		}
		c.Set(row, j, numeric.Convert[XV](sum))
	})
}
