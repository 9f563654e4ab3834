package codec

import (
	"bytes"
	"context"
	"testing"

	"github.com/23skdu/longbow-sparse/internal/device"
	"github.com/23skdu/longbow-sparse/internal/matrix"
	"github.com/23skdu/longbow-sparse/internal/sparse"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Triplets {
	return &Triplets{
		Rows:   3,
		Cols:   3,
		RowIdx: []int64{0, 0, 1, 2, 2},
		ColIdx: []int64{0, 2, 1, 0, 2},
		Values: []float64{5, 3, 7, 1, 2},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"ell": FormatEll, "ELL": FormatEll, "sellp": FormatSellp, "Sell-P": FormatSellp, "csr": FormatCsr} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("coo")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestRequestWireFormat(t *testing.T) {
	req := ConvertRequest{Format: FormatSellp, SliceSize: 2, Matrix: *sample()}
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, req))

	// field names are part of the wire contract
	var raw map[string]any
	require.NoError(t, cbor.Unmarshal(buf.Bytes(), &raw))
	assert.Equal(t, "sellp", raw["format"])
	assert.EqualValues(t, 2, raw["slice_size"])
	assert.NotContains(t, raw, "stride_factor")
	assert.Contains(t, raw["matrix"], "val")

	var got ConvertRequest
	require.NoError(t, Decode(&buf, &got))
	assert.Equal(t, req, got)
}

func TestDecode_Garbage(t *testing.T) {
	var req ConvertRequest
	assert.Error(t, Decode(bytes.NewReader([]byte{0xff, 0x00}), &req))
}

func TestToData(t *testing.T) {
	d, err := ToData[int32](sample())
	require.NoError(t, err)
	assert.Equal(t, matrix.Dim{Rows: 3, Cols: 3}, d.Size)
	assert.Equal(t, matrix.Entry[float64, int32]{Row: 1, Column: 1, Value: 7}, d.Nonzeros[2])
	assert.Equal(t, sample(), FromData(d))

	bad := sample()
	bad.Values = bad.Values[:4]
	_, err = ToData[int64](bad)
	assert.ErrorIs(t, err, matrix.ErrDimensionMismatch)

	bad = sample()
	bad.ColIdx[0] = 3
	_, err = ToData[int64](bad)
	assert.ErrorIs(t, err, matrix.ErrOutOfRange)
}

func TestToData_WideIndices(t *testing.T) {
	wide := &Triplets{Rows: 3, Cols: 3, RowIdx: []int64{1<<32 + 1}, ColIdx: []int64{1<<32 + 2}, Values: []float64{9}}
	_, err := ToData[int32](wide)
	assert.ErrorIs(t, err, matrix.ErrOutOfRange)
	_, err = ToData[int64](wide)
	assert.ErrorIs(t, err, matrix.ErrOutOfRange)

	neg := &Triplets{Rows: 3, Cols: 3, RowIdx: []int64{-1}, ColIdx: []int64{0}, Values: []float64{1}}
	_, err = ToData[int64](neg)
	assert.ErrorIs(t, err, matrix.ErrOutOfRange)

	// inside the matrix but beyond int32
	huge := &Triplets{Rows: 1 << 33, Cols: 1, RowIdx: []int64{1 << 32}, ColIdx: []int64{0}, Values: []float64{1}}
	_, err = ToData[int32](huge)
	assert.ErrorIs(t, err, matrix.ErrOutOfRange)
	d, err := ToData[int64](huge)
	require.NoError(t, err)
	assert.Equal(t, int64(1<<32), d.Nonzeros[0].Row)

	_, err = ToData[int32](&Triplets{Rows: -1, Cols: 3})
	assert.ErrorIs(t, err, matrix.ErrBadShape)
}

func TestConverted(t *testing.T) {
	ctx := context.Background()
	exec := device.NewReferenceBackend()
	d, err := ToData[int32](sample())
	require.NoError(t, err)

	e, err := sparse.ReadEll(ctx, exec, d, sparse.DefaultEllConfig())
	require.NoError(t, err)
	ce := FromEll(e, sparse.EllNonzerosPerRow(ctx, exec, e), sparse.EllDiagonal(ctx, exec, e))
	assert.Equal(t, FormatEll, ce.Format)
	assert.Equal(t, 2, ce.NumStoredPerRow)
	assert.Equal(t, []int64{0, 1, 0, 2, 0, 2}, ce.ColIdxs)
	assert.Equal(t, []int64{2, 1, 2}, ce.NonzerosPerRow)

	s, err := sparse.ReadSellp(ctx, exec, d, sparse.SellpConfig{SliceSize: 2, StrideFactor: 1, DropZeros: true})
	require.NoError(t, err)
	cs := FromSellp(s, sparse.SellpNonzerosPerRow(ctx, exec, s), sparse.SellpDiagonal(ctx, exec, s))
	assert.Equal(t, []int{0, 2, 4}, cs.SliceSets)
	assert.Len(t, cs.Values, 8)

	c, err := sparse.ReadCsr(ctx, exec, d, true)
	require.NoError(t, err)
	cc := FromCsr(c, sparse.CsrDiagonal(ctx, exec, c))
	assert.Equal(t, []int64{0, 2, 3, 5}, cc.RowPtrs)
	assert.Equal(t, []int64{2, 1, 2}, cc.NonzerosPerRow)
	assert.Equal(t, []float64{5, 7, 2}, cc.Diagonal)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, cc))
	var back Converted
	require.NoError(t, Decode(&buf, &back))
	assert.Equal(t, *cc, back)
}
