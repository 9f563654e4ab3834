package sparse

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/23skdu/longbow-sparse/internal/components"
	"github.com/23skdu/longbow-sparse/internal/device"
	"github.com/23skdu/longbow-sparse/internal/kernels/csr"
	"github.com/23skdu/longbow-sparse/internal/kernels/ell"
	"github.com/23skdu/longbow-sparse/internal/kernels/sellp"
	"github.com/23skdu/longbow-sparse/internal/launch"
	"github.com/23skdu/longbow-sparse/internal/layout"
	"github.com/23skdu/longbow-sparse/internal/matrix"
	"github.com/23skdu/longbow-sparse/internal/numeric"
)

// group validates data and returns a row-sorted copy of its entries together
// with the row pointers that delimit each row. data itself is not modified.
func group[V numeric.Value, I numeric.Index](exec device.Backend, data *matrix.Data[V, I], dropZeros bool) ([]matrix.Entry[V, I], []int64, error) {
	if err := data.Validate(); err != nil {
		return nil, nil, err
	}
	sorted := &matrix.Data[V, I]{Size: data.Size, Nonzeros: slices.Clone(data.Nonzeros)}
	sorted.SortRowMajor()
	if dropZeros {
		sorted.RemoveZeros()
	}
	return sorted.Nonzeros, rowPointers(exec, sorted.Nonzeros, data.Size.Rows), nil
}

// rowPointers compresses the row indices of row-sorted entries.
func rowPointers[V numeric.Value, I numeric.Index](exec device.Backend, nonzeros []matrix.Entry[V, I], numRows int) []int64 {
	rows := make([]I, len(nonzeros))
	launch.Run(exec, len(nonzeros), func(i int) {
		rows[i] = nonzeros[i].Row
	})
	rowPtrs := make([]int64, numRows+1)
	components.ConvertIdxsToPtrs(exec, rows, numRows, rowPtrs)
	return rowPtrs
}

// ReadEll builds an ELL matrix from unordered triplets. The row capacity is
// sized by a max reduction over the row lengths before the storage is filled.
func ReadEll[V numeric.Value, I numeric.Index](ctx context.Context, exec device.Backend, data *matrix.Data[V, I], cfg EllConfig) (*matrix.Ell[V, I], error) {
	_, span := start(ctx, "sparse.ReadEll", exec, data.Size)
	defer span.End()

	nonzeros, rowPtrs, err := group(exec, data, cfg.DropZeros)
	if err != nil {
		return nil, fail(span, fmt.Errorf("read ell: %w", err))
	}
	return fillEll(exec, data.Size, nonzeros, rowPtrs, cfg, span)
}

func fillEll[V numeric.Value, I numeric.Index](exec device.Backend, size matrix.Dim, nonzeros []matrix.Entry[V, I], rowPtrs []int64, cfg EllConfig, span trace.Span) (*matrix.Ell[V, I], error) {
	maxNnz := ell.ComputeMaxRowNnz(exec, rowPtrs)
	capacity := maxNnz
	if cfg.NumStoredPerRow != 0 {
		if cfg.NumStoredPerRow < maxNnz {
			return nil, fail(span, fmt.Errorf("read ell: %w: capacity %d below longest row %d",
				matrix.ErrBadLayout, cfg.NumStoredPerRow, maxNnz))
		}
		capacity = cfg.NumStoredPerRow
	}
	m, err := matrix.NewEll[V, I](size, capacity, cfg.Stride)
	if err != nil {
		return nil, fail(span, fmt.Errorf("read ell: %w", err))
	}
	ell.FillInMatrixData(exec, nonzeros, rowPtrs, m)

	span.SetAttributes(
		attribute.Int("nnz", len(nonzeros)),
		attribute.Int("capacity", capacity),
		attribute.Int("stride", m.Stride()),
	)
	log.Debug().
		Str("backend", exec.Name()).
		Stringer("size", size).
		Int("nnz", len(nonzeros)).
		Int("capacity", capacity).
		Int("stride", m.Stride()).
		Msg("Built ELL matrix")
	return m, nil
}

// ReadSellp builds a SELL-P matrix from unordered triplets. The slice lengths
// and slice sets are computed before the storage is allocated and filled.
func ReadSellp[V numeric.Value, I numeric.Index](ctx context.Context, exec device.Backend, data *matrix.Data[V, I], cfg SellpConfig) (*matrix.Sellp[V, I], error) {
	_, span := start(ctx, "sparse.ReadSellp", exec, data.Size)
	defer span.End()

	if err := cfg.Validate(); err != nil {
		return nil, fail(span, fmt.Errorf("read sellp: %w", err))
	}
	nonzeros, rowPtrs, err := group(exec, data, cfg.DropZeros)
	if err != nil {
		return nil, fail(span, fmt.Errorf("read sellp: %w", err))
	}
	return fillSellp(exec, data.Size, nonzeros, rowPtrs, cfg, span)
}

func fillSellp[V numeric.Value, I numeric.Index](exec device.Backend, size matrix.Dim, nonzeros []matrix.Entry[V, I], rowPtrs []int64, cfg SellpConfig, span trace.Span) (*matrix.Sellp[V, I], error) {
	numSlices := layout.NumSlices(size.Rows, cfg.SliceSize)
	sliceSets := make([]int, numSlices+1)
	sliceLengths := make([]int, numSlices)
	sellp.ComputeSliceSets(exec, rowPtrs, cfg.SliceSize, cfg.StrideFactor, sliceSets, sliceLengths)

	m, err := matrix.NewSellp[V, I](size, cfg.SliceSize, cfg.StrideFactor, sliceLengths, sliceSets)
	if err != nil {
		return nil, fail(span, fmt.Errorf("read sellp: %w", err))
	}
	sellp.FillInMatrixData(exec, nonzeros, rowPtrs, m)

	span.SetAttributes(
		attribute.Int("nnz", len(nonzeros)),
		attribute.Int("slices", numSlices),
		attribute.Int("stored", m.NumStored()),
	)
	log.Debug().
		Str("backend", exec.Name()).
		Stringer("size", size).
		Int("nnz", len(nonzeros)).
		Int("slices", numSlices).
		Int("stored", m.NumStored()).
		Msg("Built SELL-P matrix")
	return m, nil
}

// ReadCsr builds a CSR matrix from unordered triplets. Explicit zeros are
// kept when dropZeros is false.
func ReadCsr[V numeric.Value, I numeric.Index](ctx context.Context, exec device.Backend, data *matrix.Data[V, I], dropZeros bool) (*matrix.Csr[V, I], error) {
	_, span := start(ctx, "sparse.ReadCsr", exec, data.Size)
	defer span.End()

	nonzeros, rowPtrs, err := group(exec, data, dropZeros)
	if err != nil {
		return nil, fail(span, fmt.Errorf("read csr: %w", err))
	}
	m := matrix.NewCsr[V, I](data.Size, len(nonzeros))
	ptrs := m.RowPtrs()
	launch.Run(exec, len(rowPtrs), func(i int) {
		ptrs[i] = I(rowPtrs[i])
	})
	csr.FillInMatrixData(exec, nonzeros, m)

	span.SetAttributes(attribute.Int("nnz", len(nonzeros)))
	log.Debug().
		Str("backend", exec.Name()).
		Stringer("size", data.Size).
		Int("nnz", len(nonzeros)).
		Msg("Built CSR matrix")
	return m, nil
}
