package matrix

import "github.com/23skdu/longbow-sparse/internal/numeric"

// Diagonal holds the main diagonal of a matrix, min(rows, cols) elements.
type Diagonal[V numeric.Value] struct {
	values []V
}

func NewDiagonal[V numeric.Value](n int) *Diagonal[V] {
	return &Diagonal[V]{values: make([]V, n)}
}

func (d *Diagonal[V]) Size() int { return len(d.values) }
func (d *Diagonal[V]) Values() []V { return d.values }
