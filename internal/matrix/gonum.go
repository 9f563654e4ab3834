package matrix

import (
	"gonum.org/v1/gonum/mat"

	"github.com/23skdu/longbow-sparse/internal/numeric"
)

// ToGonum copies d into a gonum dense matrix. Complex values keep their real
// part; use ToGonumComplex for those.
func (d *Dense[V]) ToGonum() *mat.Dense {
	if d.size.Rows == 0 || d.size.Cols == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(d.size.Rows, d.size.Cols, nil)
	for r := 0; r < d.size.Rows; r++ {
		for c := 0; c < d.size.Cols; c++ {
			out.Set(r, c, numeric.ToFloat(d.At(r, c)))
		}
	}
	return out
}

// ToGonumComplex copies d into a gonum complex dense matrix.
func (d *Dense[V]) ToGonumComplex() *mat.CDense {
	if d.size.Rows == 0 || d.size.Cols == 0 {
		return &mat.CDense{}
	}
	out := mat.NewCDense(d.size.Rows, d.size.Cols, nil)
	for r := 0; r < d.size.Rows; r++ {
		for c := 0; c < d.size.Cols; c++ {
			out.Set(r, c, numeric.ToComplex(d.At(r, c)))
		}
	}
	return out
}

// DenseFromGonum copies a gonum matrix into a Dense of value type V.
func DenseFromGonum[V numeric.Value](m mat.Matrix) *Dense[V] {
	rows, cols := m.Dims()
	d := NewDense[V](Dim{Rows: rows, Cols: cols})
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			d.Set(r, c, numeric.FromComplex[V](complex(m.At(r, c), 0)))
		}
	}
	return d
}
