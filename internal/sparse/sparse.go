// Package sparse composes the format kernels into complete operations:
// building ELL, SELL-P and CSR matrices from triplets, converting between the
// formats, materialising dense matrices and diagonals, and applying matrices
// to dense vectors.
//
// Every operation validates its input, then issues its kernels one after the
// other on the given backend and waits for each before starting the next. A
// sizing kernel therefore always completes before the kernel that fills the
// storage it sized. The context is only used for tracing.
package sparse

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/23skdu/longbow-sparse/internal/device"
	"github.com/23skdu/longbow-sparse/internal/matrix"
)

var tracer = otel.Tracer("github.com/23skdu/longbow-sparse/internal/sparse")

// EllConfig controls how an ELL matrix is laid out.
type EllConfig struct {
	// NumStoredPerRow is the row capacity. 0 uses the longest row; a
	// smaller non-zero value than the longest row is an error.
	NumStoredPerRow int
	// Stride is the distance between consecutive slots of a row. 0 uses the
	// row count.
	Stride int
	// DropZeros removes explicitly stored zeros from the input, so every
	// stored slot inside a row's length is a structural nonzero.
	DropZeros bool
}

// DefaultEllConfig returns the automatic layout.
func DefaultEllConfig() EllConfig {
	return EllConfig{DropZeros: true}
}

// SellpConfig controls how a SELL-P matrix is laid out.
type SellpConfig struct {
	// SliceSize is the number of rows per slice.
	SliceSize int
	// StrideFactor rounds every slice length up to one of its multiples.
	StrideFactor int
	// DropZeros removes explicitly stored zeros from the input.
	DropZeros bool
}

// DefaultSellpConfig returns slices of 64 rows without extra rounding.
func DefaultSellpConfig() SellpConfig {
	return SellpConfig{SliceSize: 64, StrideFactor: 1, DropZeros: true}
}

// Validate checks the slice parameters.
func (c SellpConfig) Validate() error {
	if c.SliceSize < 1 || c.StrideFactor < 1 {
		return fmt.Errorf("%w: slice size %d, stride factor %d", matrix.ErrBadLayout, c.SliceSize, c.StrideFactor)
	}
	return nil
}

func start(ctx context.Context, name string, exec device.Backend, size matrix.Dim) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("backend", exec.Name()),
		attribute.Int("rows", size.Rows),
		attribute.Int("cols", size.Cols),
	))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
