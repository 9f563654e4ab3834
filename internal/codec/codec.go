// Package codec defines the CBOR documents exchanged by the CLI and the
// conversion server: triplet matrices going in, converted matrices coming
// out.
package codec

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/23skdu/longbow-sparse/internal/matrix"
	"github.com/23skdu/longbow-sparse/internal/numeric"
)

// ErrUnknownFormat is returned for a storage format name that is not
// recognised.
var ErrUnknownFormat = errors.New("codec: unknown format")

// Format names a sparse storage format.
type Format string

const (
	FormatEll   Format = "ell"
	FormatSellp Format = "sellp"
	FormatCsr   Format = "csr"
)

// ParseFormat accepts the format names case-insensitively, including the
// spelling "sell-p".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "ell":
		return FormatEll, nil
	case "sellp", "sell-p":
		return FormatSellp, nil
	case "csr":
		return FormatCsr, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Triplets is a matrix in coordinate form. The three slices are parallel.
type Triplets struct {
	Rows   int       `cbor:"rows"`
	Cols   int       `cbor:"cols"`
	RowIdx []int64   `cbor:"row"`
	ColIdx []int64   `cbor:"col"`
	Values []float64 `cbor:"val"`
}

// ConvertRequest asks for a triplet matrix to be stored in Format.
type ConvertRequest struct {
	Format       Format   `cbor:"format"`
	SliceSize    int      `cbor:"slice_size,omitempty"`
	StrideFactor int      `cbor:"stride_factor,omitempty"`
	EllStride    int      `cbor:"ell_stride,omitempty"`
	Matrix       Triplets `cbor:"matrix"`
}

// Converted is a matrix in one of the storage formats together with the
// derived quantities every format can report.
type Converted struct {
	Format Format `cbor:"format"`
	Rows   int    `cbor:"rows"`
	Cols   int    `cbor:"cols"`

	NumStoredPerRow int     `cbor:"num_stored_per_row,omitempty"`
	Stride          int     `cbor:"stride,omitempty"`
	SliceSize       int     `cbor:"slice_size,omitempty"`
	StrideFactor    int     `cbor:"stride_factor,omitempty"`
	SliceSets       []int   `cbor:"slice_sets,omitempty"`
	RowPtrs         []int64 `cbor:"row_ptrs,omitempty"`

	ColIdxs []int64   `cbor:"col_idxs"`
	Values  []float64 `cbor:"values"`

	NonzerosPerRow []int64   `cbor:"nnz_per_row"`
	Diagonal       []float64 `cbor:"diagonal"`
}

// Decode reads one CBOR document from r into v.
func Decode(r io.Reader, v any) error {
	if err := cbor.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("cbor decode: %w", err)
	}
	return nil
}

// Encode writes v to w as one CBOR document.
func Encode(w io.Writer, v any) error {
	if err := cbor.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("cbor encode: %w", err)
	}
	return nil
}

// ToData turns t into triplet data with index type I. Indices are checked
// against the matrix size and the range of I before they are narrowed.
func ToData[I numeric.Index](t *Triplets) (*matrix.Data[float64, I], error) {
	if len(t.RowIdx) != len(t.Values) || len(t.ColIdx) != len(t.Values) {
		return nil, fmt.Errorf("%w: %d rows, %d columns, %d values",
			matrix.ErrDimensionMismatch, len(t.RowIdx), len(t.ColIdx), len(t.Values))
	}
	d := matrix.NewData[float64, I](matrix.Dim{Rows: t.Rows, Cols: t.Cols})
	if err := d.Size.Validate(); err != nil {
		return nil, err
	}
	d.Nonzeros = make([]matrix.Entry[float64, I], 0, len(t.Values))
	for i, v := range t.Values {
		row, okRow := narrow[I](t.RowIdx[i], t.Rows)
		col, okCol := narrow[I](t.ColIdx[i], t.Cols)
		if !okRow || !okCol {
			return nil, fmt.Errorf("%w: entry %d at (%d, %d) in %dx%d matrix",
				matrix.ErrOutOfRange, i, t.RowIdx[i], t.ColIdx[i], t.Rows, t.Cols)
		}
		d.Append(row, col, v)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// narrow converts idx to I if it lies in [0, extent) and I can hold it.
func narrow[I numeric.Index](idx int64, extent int) (I, bool) {
	if idx < 0 || idx >= int64(extent) || int64(I(idx)) != idx {
		return 0, false
	}
	return I(idx), true
}

// FromData is the inverse of ToData.
func FromData[I numeric.Index](d *matrix.Data[float64, I]) *Triplets {
	t := &Triplets{
		Rows:   d.Size.Rows,
		Cols:   d.Size.Cols,
		RowIdx: make([]int64, len(d.Nonzeros)),
		ColIdx: make([]int64, len(d.Nonzeros)),
		Values: make([]float64, len(d.Nonzeros)),
	}
	for i, e := range d.Nonzeros {
		t.RowIdx[i], t.ColIdx[i], t.Values[i] = int64(e.Row), int64(e.Column), e.Value
	}
	return t
}

func widen[I numeric.Index](idx []I) []int64 {
	out := make([]int64, len(idx))
	for i, v := range idx {
		out[i] = int64(v)
	}
	return out
}

// FromEll describes an ELL matrix. nnz and diag are its per-row nonzero
// counts and diagonal.
func FromEll[I numeric.Index](m *matrix.Ell[float64, I], nnz []I, diag *matrix.Diagonal[float64]) *Converted {
	return &Converted{
		Format:          FormatEll,
		Rows:            m.Size().Rows,
		Cols:            m.Size().Cols,
		NumStoredPerRow: m.NumStoredElementsPerRow(),
		Stride:          m.Stride(),
		ColIdxs:         widen(m.ColIdxs()),
		Values:          m.Values(),
		NonzerosPerRow:  widen(nnz),
		Diagonal:        diag.Values(),
	}
}

// FromSellp describes a SELL-P matrix.
func FromSellp[I numeric.Index](m *matrix.Sellp[float64, I], nnz []I, diag *matrix.Diagonal[float64]) *Converted {
	return &Converted{
		Format:         FormatSellp,
		Rows:           m.Size().Rows,
		Cols:           m.Size().Cols,
		SliceSize:      m.SliceSize(),
		StrideFactor:   m.StrideFactor(),
		SliceSets:      m.SliceSets(),
		ColIdxs:        widen(m.ColIdxs()),
		Values:         m.Values(),
		NonzerosPerRow: widen(nnz),
		Diagonal:       diag.Values(),
	}
}

// FromCsr describes a CSR matrix.
func FromCsr[I numeric.Index](m *matrix.Csr[float64, I], diag *matrix.Diagonal[float64]) *Converted {
	rowPtrs := widen(m.RowPtrs())
	nnz := make([]int64, m.Size().Rows)
	for r := range nnz {
		nnz[r] = rowPtrs[r+1] - rowPtrs[r]
	}
	return &Converted{
		Format:         FormatCsr,
		Rows:           m.Size().Rows,
		Cols:           m.Size().Cols,
		RowPtrs:        rowPtrs,
		ColIdxs:        widen(m.ColIdxs()),
		Values:         m.Values(),
		NonzerosPerRow: nnz,
		Diagonal:       diag.Values(),
	}
}
