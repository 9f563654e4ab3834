package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"

	"github.com/23skdu/longbow-sparse/internal/cache"
	"github.com/23skdu/longbow-sparse/internal/client"
	"github.com/23skdu/longbow-sparse/internal/codec"
	"github.com/23skdu/longbow-sparse/internal/matrix"
)

var (
	conversions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sparse_conversions_total",
		Help: "The total number of matrices converted, by format",
	}, []string{"format"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sparse_request_duration_seconds",
		Help:    "Time spent processing conversion requests",
		Buckets: prometheus.DefBuckets,
	})
)

type ConverterInterface interface {
	Convert(ctx context.Context, req *codec.ConvertRequest) (*codec.Converted, error)
	// Weight is the admission weight of req, an upper bound on the slots
	// converting it allocates.
	Weight(req *codec.ConvertRequest) int64
}

type FlightClientInterface interface {
	DoPut(ctx context.Context, datasetName string, record arrow.RecordBatch) error
	Close() error
}

type Server struct {
	converter    ConverterInterface
	flightClient FlightClientInterface
	datasetName  string
	cache        cache.ConversionCache
	alloc        memory.Allocator
	sem          *semaphore.Weighted
	maxWeight    int64
}

// NewServer creates a conversion server. Conversions in flight together
// allocate at most maxInflightNnz slots.
func NewServer(conv ConverterInterface, fc FlightClientInterface, dataset string, c cache.ConversionCache, maxInflightNnz int64) *Server {
	return &Server{
		converter:    conv,
		flightClient: fc,
		datasetName:  dataset,
		cache:        c,
		alloc:        memory.NewGoAllocator(),
		sem:          semaphore.NewWeighted(maxInflightNnz),
		maxWeight:    maxInflightNnz,
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/convert", s.handleConvert)
	mux.HandleFunc("/convert/arrow", s.handleConvertArrow)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

func startServer(addr string, srv *Server) {
	log.Info().Str("addr", addr).Msg("Starting sparsekit server")
	if srv.flightClient != nil {
		log.Info().Str("dataset", srv.datasetName).Msg("Forwarding CSR results to Flight server")
	}
	if err := http.ListenAndServe(addr, srv.routes()); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

var tracer = otel.Tracer("sparsekit-server")

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "handleConvert")
	defer span.End()

	start := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(start).Seconds())
	}()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req codec.ConvertRequest
	if err := codec.Decode(r.Body, &req); err != nil {
		span.RecordError(err)
		http.Error(w, fmt.Sprintf("Bad Request (CBOR decode): %v", err), http.StatusBadRequest)
		return
	}
	span.SetAttributes(
		attribute.String("format", string(req.Format)),
		attribute.Int("nnz", len(req.Matrix.Values)),
	)

	out, status, err := s.convert(ctx, &req)
	if err != nil {
		span.RecordError(err)
		http.Error(w, err.Error(), status)
		return
	}

	var buf bytes.Buffer
	if err := codec.Encode(&buf, out); err != nil {
		span.RecordError(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/cbor")
	_, _ = w.Write(buf.Bytes())
}

// convert answers req from the cache or the converter, holding admission
// weight for the storage the conversion allocates. It returns the HTTP status to report
// on failure.
func (s *Server) convert(ctx context.Context, req *codec.ConvertRequest) (*codec.Converted, int, error) {
	key, err := cache.Key(req)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	if out, ok := s.cache.Get(key); ok {
		return out, http.StatusOK, nil
	}

	// Admission Control
	if req.Matrix.Rows < 0 || req.Matrix.Cols < 0 {
		return nil, http.StatusBadRequest, fmt.Errorf("%w: %dx%d", matrix.ErrBadShape, req.Matrix.Rows, req.Matrix.Cols)
	}
	weight := max(s.converter.Weight(req), 1)
	if weight > s.maxWeight {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("request weight %d exceeds the in-flight limit of %d", weight, s.maxWeight)
	}
	if err := s.sem.Acquire(ctx, weight); err != nil {
		log.Error().Err(err).Msg("Failed to acquire semaphore")
		return nil, http.StatusServiceUnavailable, fmt.Errorf("server busy")
	}
	defer s.sem.Release(weight)

	out, err := s.converter.Convert(ctx, req)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	conversions.WithLabelValues(string(out.Format)).Inc()
	s.cache.Put(key, out)

	if s.flightClient != nil {
		if err := s.forward(ctx, out); err != nil {
			log.Error().Err(err).Msg("Error forwarding result to Flight server")
		}
	}
	return out, http.StatusOK, nil
}

func (s *Server) forward(ctx context.Context, out *codec.Converted) error {
	rec := client.NewRecordBatchBuilder(s.alloc).BuildStorage(out)
	defer rec.Release()
	return s.flightClient.DoPut(ctx, s.datasetName, rec)
}

// handleConvertArrow reads a triplet matrix from an Arrow IPC stream and
// answers with its storage as a single record batch. The batches of the
// stream are chunks of one matrix. The target format and layout come from
// the query parameters.
func (s *Server) handleConvertArrow(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "handleConvertArrow")
	defer span.End()

	start := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(start).Seconds())
	}()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, err := requestFromQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reader, err := ipc.NewReader(r.Body, ipc.WithAllocator(s.alloc))
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to create IPC reader: %v", err), http.StatusBadRequest)
		return
	}
	defer reader.Release()

	batches := 0
	for reader.Next() {
		t, err := client.ReadTriplets(reader.Record())
		if err != nil {
			span.RecordError(err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		appendTriplets(&req.Matrix, t)
		batches++
	}
	if reader.Err() != nil {
		log.Error().Err(reader.Err()).Msg("Error reading Arrow stream")
		http.Error(w, "Stream error", http.StatusBadRequest)
		return
	}
	span.SetAttributes(
		attribute.String("format", string(req.Format)),
		attribute.Int("batches", batches),
		attribute.Int("nnz", len(req.Matrix.Values)),
	)

	out, status, err := s.convert(ctx, req)
	if err != nil {
		span.RecordError(err)
		http.Error(w, err.Error(), status)
		return
	}

	rec := client.NewRecordBatchBuilder(s.alloc).BuildStorage(out)
	defer rec.Release()
	var buf bytes.Buffer
	if err := writeArrowStream(&buf, rec); err != nil {
		span.RecordError(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.apache.arrow.stream")
	_, _ = w.Write(buf.Bytes())
}

// requestFromQuery reads format, slice_size, stride_factor and ell_stride.
func requestFromQuery(q url.Values) (*codec.ConvertRequest, error) {
	format, err := codec.ParseFormat(q.Get("format"))
	if err != nil {
		return nil, err
	}
	req := &codec.ConvertRequest{Format: format}
	for _, p := range []struct {
		key string
		dst *int
	}{
		{"slice_size", &req.SliceSize},
		{"stride_factor", &req.StrideFactor},
		{"ell_stride", &req.EllStride},
	} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		if *p.dst, err = strconv.Atoi(v); err != nil || *p.dst < 0 {
			return nil, fmt.Errorf("invalid %s %q", p.key, v)
		}
	}
	return req, nil
}

// appendTriplets adds the entries of src to dst and grows dst to cover it.
func appendTriplets(dst, src *codec.Triplets) {
	dst.Rows = max(dst.Rows, src.Rows)
	dst.Cols = max(dst.Cols, src.Cols)
	dst.RowIdx = append(dst.RowIdx, src.RowIdx...)
	dst.ColIdx = append(dst.ColIdx, src.ColIdx...)
	dst.Values = append(dst.Values, src.Values...)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
