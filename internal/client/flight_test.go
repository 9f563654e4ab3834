package client

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockFlightServer struct {
	flight.BaseFlightServer

	mu       sync.Mutex
	paths    []string
	received []arrow.RecordBatch
	fail     bool
}

func (s *mockFlightServer) DoPut(stream flight.FlightService_DoPutServer) error {
	s.mu.Lock()
	fail := s.fail
	s.mu.Unlock()
	if fail {
		return errors.New("rejected")
	}

	reader, err := flight.NewRecordReader(stream)
	if err != nil {
		return err
	}
	defer reader.Release()

	desc := reader.LatestFlightDescriptor()
	for reader.Next() {
		rec := reader.Record()
		rec.Retain()
		s.mu.Lock()
		s.received = append(s.received, rec)
		if desc != nil {
			s.paths = append(s.paths, desc.Path...)
		}
		s.mu.Unlock()
	}
	return reader.Err()
}

func (s *mockFlightServer) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.received {
		r.Release()
	}
}

func startMockServer(t *testing.T) (*mockFlightServer, string) {
	t.Helper()
	mock := &mockFlightServer{}
	server := flight.NewServerWithMiddleware(nil)
	server.RegisterFlightService(mock)
	require.NoError(t, server.Init("localhost:0"))
	go func() {
		_ = server.Serve()
	}()
	t.Cleanup(server.Shutdown)
	t.Cleanup(mock.release)
	return mock, server.Addr().String()
}

func TestFlightClient_DoPut(t *testing.T) {
	mock, addr := startMockServer(t)

	client, err := NewFlightClient(addr)
	require.NoError(t, err)
	defer client.Close()

	rec := NewRecordBatchBuilder(memory.NewGoAllocator()).BuildTriplets(sampleTriplets())
	defer rec.Release()

	require.NoError(t, client.DoPut(context.Background(), "poisson-3", rec))
	assert.Equal(t, StateClosed, client.State())

	mock.mu.Lock()
	defer mock.mu.Unlock()
	require.Len(t, mock.received, 1)
	assert.Equal(t, []string{"poisson-3"}, mock.paths)

	got, err := ReadTriplets(mock.received[0])
	require.NoError(t, err)
	assert.Equal(t, sampleTriplets(), got)
}

func TestFlightClient_BreakerOpens(t *testing.T) {
	mock, addr := startMockServer(t)
	mock.fail = true

	client, err := NewFlightClient(addr)
	require.NoError(t, err)
	defer client.Close()

	rec := NewRecordBatchBuilder(memory.NewGoAllocator()).BuildTriplets(sampleTriplets())
	defer rec.Release()

	for i := 0; i < 5; i++ {
		err := client.DoPut(context.Background(), "m", rec)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}
	assert.Equal(t, StateOpen, client.State())
	assert.ErrorIs(t, client.DoPut(context.Background(), "m", rec), ErrCircuitOpen)
}
