package sparse

import (
	"context"
	"fmt"

	"github.com/23skdu/longbow-sparse/internal/device"
	"github.com/23skdu/longbow-sparse/internal/kernels/csr"
	"github.com/23skdu/longbow-sparse/internal/kernels/ell"
	"github.com/23skdu/longbow-sparse/internal/kernels/sellp"
	"github.com/23skdu/longbow-sparse/internal/matrix"
	"github.com/23skdu/longbow-sparse/internal/numeric"
)

// ApplyEll computes c = A·b.
func ApplyEll[MV, BV, XV numeric.Value, I numeric.Index](ctx context.Context, exec device.Backend, a *matrix.Ell[MV, I], b *matrix.Dense[BV], c *matrix.Dense[XV]) error {
	_, span := start(ctx, "sparse.ApplyEll", exec, a.Size())
	defer span.End()

	if err := matrix.CheckApply(a.Size(), b.Size(), c.Size()); err != nil {
		return fail(span, fmt.Errorf("apply ell: %w", err))
	}
	ell.Spmv(exec, a, b, c)
	return nil
}

// AdvancedApplyEll computes c = alpha·A·b + beta·c.
func AdvancedApplyEll[MV, BV, XV numeric.Value, I numeric.Index](ctx context.Context, exec device.Backend, alpha MV, a *matrix.Ell[MV, I], b *matrix.Dense[BV], beta XV, c *matrix.Dense[XV]) error {
	_, span := start(ctx, "sparse.AdvancedApplyEll", exec, a.Size())
	defer span.End()

	if err := matrix.CheckApply(a.Size(), b.Size(), c.Size()); err != nil {
		return fail(span, fmt.Errorf("apply ell: %w", err))
	}
	ell.AdvancedSpmv(exec, alpha, a, b, beta, c)
	return nil
}

// ApplySellp computes c = A·b.
func ApplySellp[MV, BV, XV numeric.Value, I numeric.Index](ctx context.Context, exec device.Backend, a *matrix.Sellp[MV, I], b *matrix.Dense[BV], c *matrix.Dense[XV]) error {
	_, span := start(ctx, "sparse.ApplySellp", exec, a.Size())
	defer span.End()

	if err := matrix.CheckApply(a.Size(), b.Size(), c.Size()); err != nil {
		return fail(span, fmt.Errorf("apply sellp: %w", err))
	}
	sellp.Spmv(exec, a, b, c)
	return nil
}

// AdvancedApplySellp computes c = alpha·A·b + beta·c.
func AdvancedApplySellp[MV, BV, XV numeric.Value, I numeric.Index](ctx context.Context, exec device.Backend, alpha MV, a *matrix.Sellp[MV, I], b *matrix.Dense[BV], beta XV, c *matrix.Dense[XV]) error {
	_, span := start(ctx, "sparse.AdvancedApplySellp", exec, a.Size())
	defer span.End()

	if err := matrix.CheckApply(a.Size(), b.Size(), c.Size()); err != nil {
		return fail(span, fmt.Errorf("apply sellp: %w", err))
	}
	sellp.AdvancedSpmv(exec, alpha, a, b, beta, c)
	return nil
}

// ApplyCsr computes c = A·b.
func ApplyCsr[MV, BV, XV numeric.Value, I numeric.Index](ctx context.Context, exec device.Backend, a *matrix.Csr[MV, I], b *matrix.Dense[BV], c *matrix.Dense[XV]) error {
	_, span := start(ctx, "sparse.ApplyCsr", exec, a.Size())
	defer span.End()

	if err := matrix.CheckApply(a.Size(), b.Size(), c.Size()); err != nil {
		return fail(span, fmt.Errorf("apply csr: %w", err))
	}
	csr.Spmv(exec, a, b, c)
	return nil
}

// AdvancedApplyCsr computes c = alpha·A·b + beta·c.
func AdvancedApplyCsr[MV, BV, XV numeric.Value, I numeric.Index](ctx context.Context, exec device.Backend, alpha MV, a *matrix.Csr[MV, I], b *matrix.Dense[BV], beta XV, c *matrix.Dense[XV]) error {
	_, span := start(ctx, "sparse.AdvancedApplyCsr", exec, a.Size())
	defer span.End()

	if err := matrix.CheckApply(a.Size(), b.Size(), c.Size()); err != nil {
		return fail(span, fmt.Errorf("apply csr: %w", err))
	}
	csr.AdvancedSpmv(exec, alpha, a, b, beta, c)
	return nil
}
