package main

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/23skdu/longbow-sparse/internal/client"
	"github.com/23skdu/longbow-sparse/internal/codec"
)

func TestFlightServer_DoPut(t *testing.T) {
	srv := newTestServer(nil, 1<<20)
	fs := NewSparseFlightServer(srv, codec.ConvertRequest{Format: codec.FormatEll})

	server := flight.NewServerWithMiddleware(nil)
	server.RegisterFlightService(fs)
	require.NoError(t, server.Init("localhost:0"))
	go func() {
		_ = server.Serve()
	}()
	defer server.Shutdown()

	fc, err := client.NewFlightClient(server.Addr().String())
	require.NoError(t, err)
	defer fc.Close()

	mem := memory.NewGoAllocator()
	triplets := sampleTriplets()
	rec := client.NewRecordBatchBuilder(mem).BuildTriplets(&triplets)
	defer rec.Release()

	require.NoError(t, fc.DoPut(context.Background(), "poisson", rec))
	assert.Equal(t, 1, srv.cache.Size())

	t.Run("BadSchema", func(t *testing.T) {
		schema := arrow.NewSchema([]arrow.Field{{Name: "f1", Type: arrow.PrimitiveTypes.Float32}}, nil)
		b := array.NewFloat32Builder(mem)
		defer b.Release()
		b.AppendValues([]float32{1, 2}, nil)
		a := b.NewArray()
		defer a.Release()
		bad := array.NewRecordBatch(schema, []arrow.Array{a}, 2)
		defer bad.Release()

		assert.Error(t, fc.DoPut(context.Background(), "poisson", bad))
	})
}
