package device

import (
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
)

// ensure interface compliance
var _ Backend = (*CPUBackend)(nil)

// CPUBackend spreads index spaces over a fixed set of persistent worker
// goroutines. Workers are spawned once and reused across kernel launches.
type CPUBackend struct {
	numWorkers   int
	serialCutoff int
	workC        chan workItem

	// mu is held shared by launches that feed workC and exclusively by
	// Close, so workC is never closed under a pending send.
	mu     sync.RWMutex
	closed bool
}

type workItem struct {
	fn      func()
	barrier *sync.WaitGroup
}

func NewCPUBackend(cfg Config) *CPUBackend {
	def := DefaultConfig()
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = def.NumWorkers
	}
	if cfg.SerialCutoff < 0 {
		cfg.SerialCutoff = 0
	}

	b := &CPUBackend{
		numWorkers:   cfg.NumWorkers,
		serialCutoff: cfg.SerialCutoff,
		// Buffer enough for every worker to have pending work
		workC: make(chan workItem, cfg.NumWorkers*2),
	}
	for range cfg.NumWorkers {
		go b.worker()
	}
	poolWorkers.Add(float64(cfg.NumWorkers))
	return b
}

func (b *CPUBackend) worker() {
	for item := range b.workC {
		item.fn()
		item.barrier.Done()
	}
}

func (b *CPUBackend) Name() string {
	return "cpu-" + strconv.Itoa(b.numWorkers)
}

func (b *CPUBackend) Kind() Kind {
	return CPU
}

func (b *CPUBackend) NumWorkers() int {
	return b.numWorkers
}

func (b *CPUBackend) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}

	workers := min(b.numWorkers, n)
	if workers == 1 || n < b.serialCutoff {
		serialRuns.Inc()
		fn(0, n)
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		serialRuns.Inc()
		fn(0, n)
		return
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		if start >= n {
			break
		}
		end := min(start+chunkSize, n)

		wg.Add(1)
		b.workC <- workItem{
			fn: func() {
				fn(start, end)
			},
			barrier: &wg,
		}
		poolTasks.Inc()
	}
	wg.Wait()
}

func (b *CPUBackend) Synchronize() {
	// ParallelFor already waits for its chunks
}

// Close waits for running launches and stops the workers. Later launches
// run serially. Calling Close more than once is safe.
func (b *CPUBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.workC)
	poolWorkers.Sub(float64(b.numWorkers))
	log.Debug().Str("backend", b.Name()).Msg("Backend closed")
}
