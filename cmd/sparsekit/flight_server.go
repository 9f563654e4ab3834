package main

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rs/zerolog/log"

	"github.com/23skdu/longbow-sparse/internal/client"
	"github.com/23skdu/longbow-sparse/internal/codec"
)

// putAck is the CBOR application metadata acknowledging one DoPut.
type putAck struct {
	Dataset string       `cbor:"dataset"`
	Format  codec.Format `cbor:"format"`
	Rows    int          `cbor:"rows"`
	Cols    int          `cbor:"cols"`
	Stored  int          `cbor:"stored"`
}

// SparseFlightServer converts triplet matrices pushed with DoPut. Every
// stream is one matrix; its batches are chunks of the triplet list.
type SparseFlightServer struct {
	flight.BaseFlightServer
	srv   *Server
	proto codec.ConvertRequest
	alloc memory.Allocator
}

func NewSparseFlightServer(srv *Server, proto codec.ConvertRequest) *SparseFlightServer {
	return &SparseFlightServer{
		srv:   srv,
		proto: proto,
		alloc: memory.NewGoAllocator(),
	}
}

func (s *SparseFlightServer) DoExchange(stream flight.FlightService_DoExchangeServer) error {
	return fmt.Errorf("DoExchange not implemented")
}

func (s *SparseFlightServer) DoPut(stream flight.FlightService_DoPutServer) error {
	ctx, span := tracer.Start(stream.Context(), "DoPut")
	defer span.End()

	reader, err := flight.NewRecordReader(stream, ipc.WithAllocator(s.alloc))
	if err != nil {
		return err
	}
	defer reader.Release()

	dataset := ""
	if desc := reader.LatestFlightDescriptor(); desc != nil && len(desc.Path) > 0 {
		dataset = desc.Path[0]
	}

	req := s.proto
	req.Matrix = codec.Triplets{}
	for reader.Next() {
		rec := reader.Record()
		log.Debug().Str("dataset", dataset).Int64("rows", rec.NumRows()).Msg("DoPut received batch")
		t, err := client.ReadTriplets(rec)
		if err != nil {
			span.RecordError(err)
			return err
		}
		appendTriplets(&req.Matrix, t)
	}
	if err := reader.Err(); err != nil {
		span.RecordError(err)
		return err
	}

	out, _, err := s.srv.convert(ctx, &req)
	if err != nil {
		span.RecordError(err)
		return err
	}
	log.Info().
		Str("dataset", dataset).
		Str("format", string(out.Format)).
		Int("rows", out.Rows).
		Int("cols", out.Cols).
		Int("stored", len(out.Values)).
		Msg("Converted matrix")

	var buf bytes.Buffer
	ack := putAck{Dataset: dataset, Format: out.Format, Rows: out.Rows, Cols: out.Cols, Stored: len(out.Values)}
	if err := codec.Encode(&buf, ack); err != nil {
		return err
	}
	return stream.Send(&flight.PutResult{AppMetadata: buf.Bytes()})
}

func StartFlightServer(addr string, fs *SparseFlightServer) {
	server := flight.NewFlightServer()
	server.RegisterFlightService(fs)

	if err := server.Init(addr); err != nil {
		log.Fatal().Err(err).Msg("Failed to init Flight server")
	}

	log.Info().Str("addr", addr).Msg("Starting sparsekit Flight server")
	if err := server.Serve(); err != nil {
		log.Fatal().Err(err).Msg("Flight server failed")
	}
}
