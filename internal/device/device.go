package device

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	// ErrUnsupported is returned when a backend kind exists but its runtime is
	// not compiled into this build.
	ErrUnsupported = errors.New("device: backend not supported on this platform")

	// ErrUnknownKind is returned by ParseKind for names that match no backend.
	ErrUnknownKind = errors.New("device: unknown backend kind")
)

// Kind identifies a family of backends.
type Kind uint8

const (
	Reference Kind = iota
	CPU
	CUDA
	HIP
	Metal
)

func (k Kind) String() string {
	names := [...]string{"reference", "cpu", "cuda", "hip", "metal"}
	if int(k) < len(names) {
		return names[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// ParseKind maps a flag value such as "cpu" onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "reference", "ref":
		return Reference, nil
	case "cpu", "omp":
		return CPU, nil
	case "cuda":
		return CUDA, nil
	case "hip":
		return HIP, nil
	case "metal":
		return Metal, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Backend executes data-parallel work. Every kernel in this module is written
// once against this interface.
type Backend interface {
	Name() string
	Kind() Kind

	// NumWorkers is the number of work items that may run at the same time.
	NumWorkers() int

	// ParallelFor covers [0, n) with disjoint contiguous chunks and calls fn
	// once per chunk. It blocks until every chunk has returned.
	ParallelFor(n int, fn func(start, end int))

	// Synchronize blocks until all queued operations are complete.
	Synchronize()

	// Close releases workers. A closed backend still runs work, sequentially.
	Close()
}

// Config controls backend construction.
type Config struct {
	// NumWorkers is the worker count of concurrent backends; <= 0 uses GOMAXPROCS.
	NumWorkers int
	// SerialCutoff is the index-space size below which work runs on the
	// calling goroutine.
	SerialCutoff int
}

// DefaultConfig returns the configuration used when no flags are given.
func DefaultConfig() Config {
	return Config{
		NumWorkers:   runtime.GOMAXPROCS(0),
		SerialCutoff: 256,
	}
}

// New creates a backend of the given kind.
func New(kind Kind, cfg Config) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch kind {
	case Reference:
		b = NewReferenceBackend()
	case CPU:
		b = NewCPUBackend(cfg)
	case CUDA:
		b, err = NewCudaBackend()
	case HIP:
		b, err = NewHipBackend()
	case Metal:
		b, err = NewMetalBackend()
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if err != nil {
		return nil, err
	}
	log.Debug().Str("backend", b.Name()).Int("workers", b.NumWorkers()).Msg("Backend created")
	return b, nil
}
