package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/23skdu/longbow-sparse/internal/cache"
	"github.com/23skdu/longbow-sparse/internal/client"
	"github.com/23skdu/longbow-sparse/internal/codec"
	"github.com/23skdu/longbow-sparse/internal/device"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

var (
	inputPath      = flag.String("input", "", "Triplet matrix to convert (.cbor or .arrow)")
	formatName     = flag.String("format", "sellp", "Target format (ell, sellp, csr)")
	backendName    = flag.String("backend", "cpu", "Backend (reference, cpu, cuda, hip, metal)")
	numWorkers     = flag.Int("workers", 0, "Worker count of the cpu backend (0 = GOMAXPROCS)")
	sliceSize      = flag.Int("slice-size", 64, "SELL-P rows per slice")
	strideFactor   = flag.Int("stride-factor", 1, "SELL-P slice length multiple")
	ellStride      = flag.Int("ell-stride", 0, "ELL slot stride (0 = row count)")
	wideIndex      = flag.Bool("wide-index", false, "Use int64 column indices instead of int32")
	outputPath     = flag.String("output", "", "Write the converted matrix to file (.arrow for Arrow IPC, otherwise CBOR)")
	verifyResult   = flag.Bool("verify", false, "Check every conversion against a dense reference")
	listenAddr     = flag.String("listen", "", "Address to listen on for HTTP Server (e.g. :8080)")
	flightAddr     = flag.String("flight", "", "Address to listen on for Flight Server (e.g. :9090)")
	serverAddr     = flag.String("server", "", "Flight server receiving converted matrices (e.g. localhost:3000)")
	datasetName    = flag.String("dataset", "sparse_dataset", "Target dataset name on server")
	maxInflightNnz = flag.Int64("max-inflight-nnz", 1<<26, "Maximum number of storage slots allocated by concurrent server conversions")
	cacheSize      = flag.Int("cache-size", 256, "Converted matrices kept by the server (0 = unbounded)")
	enableOTel     = flag.Bool("otel", false, "Enable OpenTelemetry tracing (stdout)")
	logLevel       = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	cpuProfile     = flag.String("cpuprofile", "", "Write cpu profile to file")
)

func main() {
	// Initialize logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	if *enableOTel {
		shutdown, err := initTracer()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize tracer")
		}
		defer shutdown(context.Background())
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create CPU profile file")
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("Could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
	}

	kind, err := device.ParseKind(*backendName)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid backend")
	}
	cfg := device.DefaultConfig()
	if *numWorkers > 0 {
		cfg.NumWorkers = *numWorkers
	}
	exec, err := device.New(kind, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create backend")
	}
	defer exec.Close()

	format, err := codec.ParseFormat(*formatName)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid format")
	}
	proto := codec.ConvertRequest{
		Format:       format,
		SliceSize:    *sliceSize,
		StrideFactor: *strideFactor,
		EllStride:    *ellStride,
	}
	conv := NewConverter(exec, *wideIndex, *verifyResult)

	var fc *client.FlightClient
	if *serverAddr != "" {
		fc, err = client.NewFlightClient(*serverAddr)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create flight client")
		}
		defer func() {
			if err := fc.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close flight client")
			}
		}()
		log.Info().Str("addr", *serverAddr).Msg("Connected to Flight Server")
	}

	// Server Mode
	if *listenAddr != "" || *flightAddr != "" {
		var fcInterface FlightClientInterface
		if fc != nil {
			fcInterface = fc
		}
		srv := NewServer(conv, fcInterface, *datasetName, cache.NewMapCache(*cacheSize), *maxInflightNnz)
		if *listenAddr != "" {
			go startServer(*listenAddr, srv)
		}
		if *flightAddr != "" {
			StartFlightServer(*flightAddr, NewSparseFlightServer(srv, proto))
			return
		}
		select {}
	}

	if *inputPath == "" {
		log.Fatal().Msg("One of -input, -listen or -flight is required")
	}
	t, err := loadTriplets(*inputPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *inputPath).Msg("Failed to load matrix")
	}

	req := proto
	req.Matrix = *t
	start := time.Now()
	out, err := conv.Convert(context.Background(), &req)
	if err != nil {
		log.Fatal().Err(err).Msg("Conversion failed")
	}
	elapsed := time.Since(start)
	printSummary(os.Stderr, out, elapsed)
	if *verifyResult {
		log.Info().Msg("Verified against dense reference")
	}

	if *outputPath != "" {
		if err := writeOutput(*outputPath, out); err != nil {
			log.Fatal().Err(err).Str("path", *outputPath).Msg("Failed to write output")
		}
	}

	if fc != nil {
		rec := client.NewRecordBatchBuilder(memory.NewGoAllocator()).BuildStorage(out)
		defer rec.Release()

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		if err := fc.DoPut(ctx, *datasetName, rec); err != nil {
			log.Fatal().Err(err).Msg("Flight DoPut failed")
		}
		log.Info().Str("dataset", *datasetName).Msg("Successfully sent matrix to Flight server")
	}
}

// loadTriplets reads a triplet matrix from a CBOR document or an Arrow IPC
// stream, chosen by file extension.
func loadTriplets(path string) (*codec.Triplets, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cbor":
		var t codec.Triplets
		if err := codec.Decode(f, &t); err != nil {
			return nil, err
		}
		return &t, nil
	case ".arrow", ".arrows", ".ipc":
		return readArrowTriplets(f)
	}
	return nil, errors.New("unsupported input extension, want .cbor or .arrow")
}

func readArrowTriplets(r io.Reader) (*codec.Triplets, error) {
	reader, err := ipc.NewReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, err
	}
	defer reader.Release()

	t := &codec.Triplets{}
	for reader.Next() {
		batch, err := client.ReadTriplets(reader.Record())
		if err != nil {
			return nil, err
		}
		appendTriplets(t, batch)
	}
	return t, reader.Err()
}

func writeOutput(path string, out *codec.Converted) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if filepath.Ext(path) == ".arrow" {
		rec := client.NewRecordBatchBuilder(memory.NewGoAllocator()).BuildStorage(out)
		defer rec.Release()
		err = writeArrowStream(f, rec)
	} else {
		err = codec.Encode(f, out)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func writeArrowStream(w io.Writer, rec arrow.RecordBatch) error {
	writer := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()))
	if err := writer.Write(rec); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

func printSummary(w io.Writer, out *codec.Converted, elapsed time.Duration) {
	nnz := int64(0)
	for _, n := range out.NonzerosPerRow {
		nnz += n
	}
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "%s %d x %d: %d nonzeros, %d stored slots", out.Format, out.Rows, out.Cols, nnz, len(out.Values))
	switch out.Format {
	case codec.FormatEll:
		p.Fprintf(w, ", %d per row, stride %d", out.NumStoredPerRow, out.Stride)
	case codec.FormatSellp:
		p.Fprintf(w, ", %d slices of %d rows", max(len(out.SliceSets)-1, 0), out.SliceSize)
	}
	p.Fprintf(w, " (%v)\n", elapsed.Round(time.Microsecond))
}

func initTracer() (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("sparsekit"),
		)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp.Shutdown, nil
}
