package main

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/23skdu/longbow-sparse/internal/codec"
	"github.com/23skdu/longbow-sparse/internal/device"
	"github.com/23skdu/longbow-sparse/internal/matrix"
	"github.com/23skdu/longbow-sparse/internal/numeric"
	"github.com/23skdu/longbow-sparse/internal/sparse"
)

// ErrVerify is returned when a converted matrix does not reproduce its input.
var ErrVerify = errors.New("verification failed")

const verifyTolerance = 1e-9

// Converter turns conversion requests into stored matrices on one backend.
type Converter struct {
	exec device.Backend
	// wide selects int64 column indices instead of int32.
	wide bool
	// verify checks every result against a gonum dense oracle.
	verify bool
}

func NewConverter(exec device.Backend, wide, verify bool) *Converter {
	return &Converter{exec: exec, wide: wide, verify: verify}
}

// Convert builds the requested format from the request's triplets.
func (c *Converter) Convert(ctx context.Context, req *codec.ConvertRequest) (*codec.Converted, error) {
	format, err := codec.ParseFormat(string(req.Format))
	if err != nil {
		return nil, err
	}
	if c.wide {
		return convertAs[int64](ctx, c.exec, format, req, c.verify)
	}
	return convertAs[int32](ctx, c.exec, format, req, c.verify)
}

// Weight bounds the number of slots a conversion of req allocates: the
// triplets, the row pointers, the padded ELL or SELL-P storage and, when
// verifying, the dense oracle. Sums and products saturate at MaxInt64.
func (c *Converter) Weight(req *codec.ConvertRequest) int64 {
	t := &req.Matrix
	if t.Rows < 0 || t.Cols < 0 {
		return 1
	}
	rows, cols := int64(t.Rows), int64(t.Cols)
	w := satAdd(satAdd(int64(len(t.Values)), rows), 1)

	format, err := codec.ParseFormat(string(req.Format))
	if err != nil {
		return w
	}
	switch format {
	case codec.FormatEll:
		stride := max(int64(req.EllStride), rows)
		w = satAdd(w, satMul(stride, maxRowCount(t)))
	case codec.FormatSellp:
		cfg := sparse.DefaultSellpConfig()
		if req.SliceSize > 0 {
			cfg.SliceSize = req.SliceSize
		}
		if req.StrideFactor > 0 {
			cfg.StrideFactor = req.StrideFactor
		}
		ss, sf := int64(cfg.SliceSize), int64(cfg.StrideFactor)
		slices := rows/ss + 1
		length := satMul(maxRowCount(t)/sf+1, sf)
		w = satAdd(w, satMul(satMul(slices, ss), length))
	}
	if c.verify {
		w = satAdd(w, satMul(rows, cols))
	}
	return w
}

// maxRowCount is the largest number of triplets sharing a row.
func maxRowCount(t *codec.Triplets) int64 {
	counts := make(map[int64]int64)
	var most int64
	for _, r := range t.RowIdx {
		counts[r]++
		most = max(most, counts[r])
	}
	return most
}

func satAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

func satMul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}

func convertAs[I numeric.Index](ctx context.Context, exec device.Backend, format codec.Format, req *codec.ConvertRequest, check bool) (*codec.Converted, error) {
	data, err := codec.ToData[I](&req.Matrix)
	if err != nil {
		return nil, err
	}

	var (
		out   *codec.Converted
		dense *matrix.Dense[float64]
		apply func(b, x *matrix.Dense[float64]) error
	)
	switch format {
	case codec.FormatEll:
		cfg := sparse.DefaultEllConfig()
		cfg.Stride = req.EllStride
		m, err := sparse.ReadEll(ctx, exec, data, cfg)
		if err != nil {
			return nil, err
		}
		out = codec.FromEll(m, sparse.EllNonzerosPerRow(ctx, exec, m), sparse.EllDiagonal(ctx, exec, m))
		if check {
			dense = sparse.EllToDense(ctx, exec, m)
			apply = func(b, x *matrix.Dense[float64]) error { return sparse.ApplyEll(ctx, exec, m, b, x) }
		}
	case codec.FormatSellp:
		cfg := sparse.DefaultSellpConfig()
		if req.SliceSize > 0 {
			cfg.SliceSize = req.SliceSize
		}
		if req.StrideFactor > 0 {
			cfg.StrideFactor = req.StrideFactor
		}
		m, err := sparse.ReadSellp(ctx, exec, data, cfg)
		if err != nil {
			return nil, err
		}
		out = codec.FromSellp(m, sparse.SellpNonzerosPerRow(ctx, exec, m), sparse.SellpDiagonal(ctx, exec, m))
		if check {
			dense = sparse.SellpToDense(ctx, exec, m)
			apply = func(b, x *matrix.Dense[float64]) error { return sparse.ApplySellp(ctx, exec, m, b, x) }
		}
	case codec.FormatCsr:
		m, err := sparse.ReadCsr(ctx, exec, data, true)
		if err != nil {
			return nil, err
		}
		out = codec.FromCsr(m, sparse.CsrDiagonal(ctx, exec, m))
		if check {
			dense = sparse.CsrToDense(ctx, exec, m)
			apply = func(b, x *matrix.Dense[float64]) error { return sparse.ApplyCsr(ctx, exec, m, b, x) }
		}
	default:
		return nil, fmt.Errorf("%w: %q", codec.ErrUnknownFormat, format)
	}

	if check {
		if err := verify(&req.Matrix, dense, apply); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// verify compares the dense form and the product with a vector of ones
// against gonum computed straight from the triplets.
func verify(t *codec.Triplets, got *matrix.Dense[float64], apply func(b, x *matrix.Dense[float64]) error) error {
	if t.Rows == 0 || t.Cols == 0 {
		return nil
	}
	want := mat.NewDense(t.Rows, t.Cols, nil)
	for i, v := range t.Values {
		r, c := int(t.RowIdx[i]), int(t.ColIdx[i])
		want.Set(r, c, want.At(r, c)+v)
	}
	if !mat.EqualApprox(want, got.ToGonum(), verifyTolerance) {
		return fmt.Errorf("%w: dense form differs", ErrVerify)
	}

	b := matrix.NewDense[float64](matrix.Dim{Rows: t.Cols, Cols: 1})
	b.Fill(1)
	x := matrix.NewDense[float64](matrix.Dim{Rows: t.Rows, Cols: 1})
	if err := apply(b, x); err != nil {
		return err
	}
	var wantX mat.VecDense
	wantX.MulVec(want, mat.NewVecDense(t.Cols, b.Values()))
	if !mat.EqualApprox(&wantX, x.ToGonum(), verifyTolerance) {
		return fmt.Errorf("%w: product differs", ErrVerify)
	}
	return nil
}
