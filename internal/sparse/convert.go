package sparse

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/23skdu/longbow-sparse/internal/components"
	"github.com/23skdu/longbow-sparse/internal/device"
	"github.com/23skdu/longbow-sparse/internal/kernels/csr"
	"github.com/23skdu/longbow-sparse/internal/kernels/ell"
	"github.com/23skdu/longbow-sparse/internal/kernels/sellp"
	"github.com/23skdu/longbow-sparse/internal/matrix"
	"github.com/23skdu/longbow-sparse/internal/numeric"
)

// EllToCsr converts m to CSR. Row lengths come from counting structural
// nonzeros, so the leading slots of every row must be exactly its nonzeros;
// matrices built with DropZeros satisfy this.
func EllToCsr[V numeric.Value, I numeric.Index](ctx context.Context, exec device.Backend, m *matrix.Ell[V, I]) *matrix.Csr[V, I] {
	_, span := start(ctx, "sparse.EllToCsr", exec, m.Size())
	defer span.End()

	out := matrix.NewCsr[V, I](m.Size(), 0)
	ell.CountNonzerosPerRow(exec, m, out.RowPtrs())
	components.PrefixSum(exec, out.RowPtrs())
	out.Resize(int(out.RowPtrs()[m.Size().Rows]))
	ell.ConvertToCsr(exec, m, out)

	span.SetAttributes(attribute.Int("nnz", out.NumStored()))
	log.Debug().Stringer("size", m.Size()).Int("nnz", out.NumStored()).Msg("Converted ELL to CSR")
	return out
}

// SellpToCsr converts m to CSR under the same conditions as EllToCsr.
func SellpToCsr[V numeric.Value, I numeric.Index](ctx context.Context, exec device.Backend, m *matrix.Sellp[V, I]) *matrix.Csr[V, I] {
	_, span := start(ctx, "sparse.SellpToCsr", exec, m.Size())
	defer span.End()

	out := matrix.NewCsr[V, I](m.Size(), 0)
	sellp.CountNonzerosPerRow(exec, m, out.RowPtrs())
	components.PrefixSum(exec, out.RowPtrs())
	out.Resize(int(out.RowPtrs()[m.Size().Rows]))
	sellp.ConvertToCsr(exec, m, out)

	span.SetAttributes(attribute.Int("nnz", out.NumStored()))
	log.Debug().Stringer("size", m.Size()).Int("nnz", out.NumStored()).Msg("Converted SELL-P to CSR")
	return out
}

// extract expands m into triplets in storage order, dropping explicit zeros
// when asked to.
func extract[V numeric.Value, I numeric.Index](exec device.Backend, m *matrix.Csr[V, I], dropZeros bool) ([]matrix.Entry[V, I], []int64) {
	nonzeros, rowPtrs := csr.ExtractNonzeros(exec, m)
	if !dropZeros {
		return nonzeros, rowPtrs
	}
	n := len(nonzeros)
	nonzeros = slices.DeleteFunc(nonzeros, func(e matrix.Entry[V, I]) bool {
		return !numeric.IsNonzero(e.Value)
	})
	if len(nonzeros) == n {
		return nonzeros, rowPtrs
	}
	return nonzeros, rowPointers(exec, nonzeros, m.Size().Rows)
}

// CsrToEll converts m to ELL. Entries keep their order within each row.
func CsrToEll[V numeric.Value, I numeric.Index](ctx context.Context, exec device.Backend, m *matrix.Csr[V, I], cfg EllConfig) (*matrix.Ell[V, I], error) {
	_, span := start(ctx, "sparse.CsrToEll", exec, m.Size())
	defer span.End()

	nonzeros, rowPtrs := extract(exec, m, cfg.DropZeros)
	return fillEll(exec, m.Size(), nonzeros, rowPtrs, cfg, span)
}

// CsrToSellp converts m to SELL-P. Entries keep their order within each row.
func CsrToSellp[V numeric.Value, I numeric.Index](ctx context.Context, exec device.Backend, m *matrix.Csr[V, I], cfg SellpConfig) (*matrix.Sellp[V, I], error) {
	_, span := start(ctx, "sparse.CsrToSellp", exec, m.Size())
	defer span.End()

	if err := cfg.Validate(); err != nil {
		return nil, fail(span, fmt.Errorf("csr to sellp: %w", err))
	}
	nonzeros, rowPtrs := extract(exec, m, cfg.DropZeros)
	return fillSellp(exec, m.Size(), nonzeros, rowPtrs, cfg, span)
}

// EllToDense materialises m.
func EllToDense[V numeric.Value, I numeric.Index](ctx context.Context, exec device.Backend, m *matrix.Ell[V, I]) *matrix.Dense[V] {
	_, span := start(ctx, "sparse.EllToDense", exec, m.Size())
	defer span.End()

	out := matrix.NewDense[V](m.Size())
	ell.FillInDense(exec, m, out)
	return out
}

// SellpToDense materialises m.
func SellpToDense[V numeric.Value, I numeric.Index](ctx context.Context, exec device.Backend, m *matrix.Sellp[V, I]) *matrix.Dense[V] {
	_, span := start(ctx, "sparse.SellpToDense", exec, m.Size())
	defer span.End()

	out := matrix.NewDense[V](m.Size())
	sellp.FillInDense(exec, m, out)
	return out
}

// CsrToDense materialises m.
func CsrToDense[V numeric.Value, I numeric.Index](ctx context.Context, exec device.Backend, m *matrix.Csr[V, I]) *matrix.Dense[V] {
	_, span := start(ctx, "sparse.CsrToDense", exec, m.Size())
	defer span.End()

	out := matrix.NewDense[V](m.Size())
	csr.FillInDense(exec, m, out)
	return out
}

// EllDiagonal extracts the main diagonal of m. If a row stores its diagonal
// more than once, the last nonzero copy wins.
func EllDiagonal[V numeric.Value, I numeric.Index](ctx context.Context, exec device.Backend, m *matrix.Ell[V, I]) *matrix.Diagonal[V] {
	_, span := start(ctx, "sparse.EllDiagonal", exec, m.Size())
	defer span.End()

	out := matrix.NewDiagonal[V](min(m.Size().Rows, m.Size().Cols))
	ell.ExtractDiagonal(exec, m, out)
	return out
}

// SellpDiagonal extracts the main diagonal of m. If a row stores its
// diagonal more than once, the first copy wins, even when it is zero.
func SellpDiagonal[V numeric.Value, I numeric.Index](ctx context.Context, exec device.Backend, m *matrix.Sellp[V, I]) *matrix.Diagonal[V] {
	_, span := start(ctx, "sparse.SellpDiagonal", exec, m.Size())
	defer span.End()

	out := matrix.NewDiagonal[V](min(m.Size().Rows, m.Size().Cols))
	sellp.ExtractDiagonal(exec, m, out)
	return out
}

// CsrDiagonal extracts the main diagonal of m; the first copy in a row wins.
func CsrDiagonal[V numeric.Value, I numeric.Index](ctx context.Context, exec device.Backend, m *matrix.Csr[V, I]) *matrix.Diagonal[V] {
	_, span := start(ctx, "sparse.CsrDiagonal", exec, m.Size())
	defer span.End()

	out := matrix.NewDiagonal[V](min(m.Size().Rows, m.Size().Cols))
	csr.ExtractDiagonal(exec, m, out)
	return out
}

// EllNonzerosPerRow counts the structural nonzeros of every row.
func EllNonzerosPerRow[V numeric.Value, I numeric.Index](ctx context.Context, exec device.Backend, m *matrix.Ell[V, I]) []I {
	_, span := start(ctx, "sparse.EllNonzerosPerRow", exec, m.Size())
	defer span.End()

	out := make([]I, m.Size().Rows)
	ell.CountNonzerosPerRow(exec, m, out)
	return out
}

// SellpNonzerosPerRow counts the structural nonzeros of every row.
func SellpNonzerosPerRow[V numeric.Value, I numeric.Index](ctx context.Context, exec device.Backend, m *matrix.Sellp[V, I]) []I {
	_, span := start(ctx, "sparse.SellpNonzerosPerRow", exec, m.Size())
	defer span.End()

	out := make([]I, m.Size().Rows)
	sellp.CountNonzerosPerRow(exec, m, out)
	return out
}

// EllAbsolute replaces every stored value of m with its magnitude.
func EllAbsolute[V numeric.Value, I numeric.Index](ctx context.Context, exec device.Backend, m *matrix.Ell[V, I]) {
	_, span := start(ctx, "sparse.EllAbsolute", exec, m.Size())
	defer span.End()

	ell.ComputeAbsoluteInplace(exec, m)
}

// SellpAbsolute replaces every stored value of m with its magnitude.
func SellpAbsolute[V numeric.Value, I numeric.Index](ctx context.Context, exec device.Backend, m *matrix.Sellp[V, I]) {
	_, span := start(ctx, "sparse.SellpAbsolute", exec, m.Size())
	defer span.End()

	sellp.ComputeAbsoluteInplace(exec, m)
}
