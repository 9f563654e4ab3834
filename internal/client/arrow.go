package client

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/23skdu/longbow-sparse/internal/codec"
)

// ErrBadSchema is returned for record batches that do not carry a matrix.
var ErrBadSchema = errors.New("client: unexpected record schema")

// Metadata keys of matrix record batches.
const (
	metaFormat          = "format"
	metaRows            = "rows"
	metaCols            = "cols"
	metaStride          = "stride"
	metaNumStoredPerRow = "num_stored_per_row"
	metaSliceSize       = "slice_size"
	metaStrideFactor    = "stride_factor"
	metaSliceSets       = "slice_sets"
	metaRowPtrs         = "row_ptrs"
)

// RecordBatchBuilder creates Arrow record batches from matrices.
type RecordBatchBuilder struct {
	mem memory.Allocator
}

// NewRecordBatchBuilder creates a new builder.
func NewRecordBatchBuilder(mem memory.Allocator) *RecordBatchBuilder {
	return &RecordBatchBuilder{mem: mem}
}

// BuildTriplets converts a coordinate matrix into a record batch with the
// columns row, col and val. The dimensions travel in the schema metadata.
func (b *RecordBatchBuilder) BuildTriplets(t *codec.Triplets) arrow.RecordBatch {
	md := arrow.NewMetadata(
		[]string{metaRows, metaCols},
		[]string{strconv.Itoa(t.Rows), strconv.Itoa(t.Cols)},
	)
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "row", Type: arrow.PrimitiveTypes.Int64},
		{Name: "col", Type: arrow.PrimitiveTypes.Int64},
		{Name: "val", Type: arrow.PrimitiveTypes.Float64},
	}, &md)

	rb := array.NewInt64Builder(b.mem)
	defer rb.Release()
	cb := array.NewInt64Builder(b.mem)
	defer cb.Release()
	vb := array.NewFloat64Builder(b.mem)
	defer vb.Release()

	rb.AppendValues(t.RowIdx, nil)
	cb.AppendValues(t.ColIdx, nil)
	vb.AppendValues(t.Values, nil)

	cols := []arrow.Array{rb.NewArray(), cb.NewArray(), vb.NewArray()}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	return array.NewRecordBatch(schema, cols, int64(len(t.Values)))
}

// ReadTriplets extracts a coordinate matrix from a record batch with row, col
// and val columns. Index columns may be int32 or int64 and values float32 or
// float64. Without dimension metadata the matrix is sized by its largest
// indices.
func ReadTriplets(rec arrow.RecordBatch) (*codec.Triplets, error) {
	rows, err := intColumn(rec, "row")
	if err != nil {
		return nil, err
	}
	cols, err := intColumn(rec, "col")
	if err != nil {
		return nil, err
	}
	vals, err := floatColumn(rec, "val")
	if err != nil {
		return nil, err
	}
	t := &codec.Triplets{RowIdx: rows, ColIdx: cols, Values: vals}

	md := rec.Schema().Metadata()
	if t.Rows, err = metaInt(md, metaRows, -1); err != nil {
		return nil, err
	}
	if t.Cols, err = metaInt(md, metaCols, -1); err != nil {
		return nil, err
	}
	if t.Rows < 0 {
		t.Rows = extent(rows)
	}
	if t.Cols < 0 {
		t.Cols = extent(cols)
	}
	return t, nil
}

// BuildStorage converts a matrix in one of the storage formats into a record
// batch holding its col_idx and value arrays, padding included. The layout
// parameters travel in the schema metadata.
func (b *RecordBatchBuilder) BuildStorage(c *codec.Converted) arrow.RecordBatch {
	keys := []string{metaFormat, metaRows, metaCols}
	values := []string{string(c.Format), strconv.Itoa(c.Rows), strconv.Itoa(c.Cols)}
	switch c.Format {
	case codec.FormatEll:
		keys = append(keys, metaStride, metaNumStoredPerRow)
		values = append(values, strconv.Itoa(c.Stride), strconv.Itoa(c.NumStoredPerRow))
	case codec.FormatSellp:
		keys = append(keys, metaSliceSize, metaStrideFactor, metaSliceSets)
		values = append(values, strconv.Itoa(c.SliceSize), strconv.Itoa(c.StrideFactor), joinInts(c.SliceSets))
	case codec.FormatCsr:
		keys = append(keys, metaRowPtrs)
		values = append(values, joinInts(c.RowPtrs))
	}
	md := arrow.NewMetadata(keys, values)
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "col_idx", Type: arrow.PrimitiveTypes.Int64},
		{Name: "value", Type: arrow.PrimitiveTypes.Float64},
	}, &md)

	cb := array.NewInt64Builder(b.mem)
	defer cb.Release()
	vb := array.NewFloat64Builder(b.mem)
	defer vb.Release()
	cb.AppendValues(c.ColIdxs, nil)
	vb.AppendValues(c.Values, nil)

	cols := []arrow.Array{cb.NewArray(), vb.NewArray()}
	defer func() {
		for _, a := range cols {
			a.Release()
		}
	}()
	return array.NewRecordBatch(schema, cols, int64(len(c.Values)))
}

// ReadStorage is the inverse of BuildStorage. Per-row counts and the
// diagonal are not part of the batch and stay empty.
func ReadStorage(rec arrow.RecordBatch) (*codec.Converted, error) {
	md := rec.Schema().Metadata()
	name, ok := md.GetValue(metaFormat)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s metadata", ErrBadSchema, metaFormat)
	}
	format, err := codec.ParseFormat(name)
	if err != nil {
		return nil, err
	}
	c := &codec.Converted{Format: format}
	if c.ColIdxs, err = intColumn(rec, "col_idx"); err != nil {
		return nil, err
	}
	if c.Values, err = floatColumn(rec, "value"); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		key string
		dst *int
	}{
		{metaRows, &c.Rows},
		{metaCols, &c.Cols},
		{metaStride, &c.Stride},
		{metaNumStoredPerRow, &c.NumStoredPerRow},
		{metaSliceSize, &c.SliceSize},
		{metaStrideFactor, &c.StrideFactor},
	} {
		if *f.dst, err = metaInt(md, f.key, 0); err != nil {
			return nil, err
		}
	}
	if s, ok := md.GetValue(metaSliceSets); ok {
		sets, err := splitInts(s)
		if err != nil {
			return nil, err
		}
		c.SliceSets = make([]int, len(sets))
		for i, v := range sets {
			c.SliceSets[i] = int(v)
		}
	}
	if s, ok := md.GetValue(metaRowPtrs); ok {
		if c.RowPtrs, err = splitInts(s); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func column(rec arrow.RecordBatch, name string) (arrow.Array, error) {
	idx := rec.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil, fmt.Errorf("%w: no %q column", ErrBadSchema, name)
	}
	return rec.Column(idx[0]), nil
}

func intColumn(rec arrow.RecordBatch, name string) ([]int64, error) {
	col, err := column(rec, name)
	if err != nil {
		return nil, err
	}
	switch a := col.(type) {
	case *array.Int64:
		return append([]int64(nil), a.Int64Values()...), nil
	case *array.Int32:
		out := make([]int64, a.Len())
		for i := range out {
			out[i] = int64(a.Value(i))
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: column %q has type %s", ErrBadSchema, name, col.DataType())
}

func floatColumn(rec arrow.RecordBatch, name string) ([]float64, error) {
	col, err := column(rec, name)
	if err != nil {
		return nil, err
	}
	switch a := col.(type) {
	case *array.Float64:
		return append([]float64(nil), a.Float64Values()...), nil
	case *array.Float32:
		out := make([]float64, a.Len())
		for i := range out {
			out[i] = float64(a.Value(i))
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: column %q has type %s", ErrBadSchema, name, col.DataType())
}

func metaInt(md arrow.Metadata, key string, def int) (int, error) {
	s, ok := md.GetValue(key)
	if !ok {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: metadata %s=%q", ErrBadSchema, key, s)
	}
	return v, nil
}

func extent(idx []int64) int {
	n := int64(0)
	for _, v := range idx {
		n = max(n, v+1)
	}
	return int(n)
}

func joinInts[T int | int64](v []T) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatInt(int64(x), 10)
	}
	return strings.Join(parts, ",")
}

func splitInts(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: offset %q", ErrBadSchema, p)
		}
		out[i] = v
	}
	return out, nil
}
