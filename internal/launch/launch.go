// Package launch runs kernels over index spaces on any device.Backend.
//
// A kernel is a plain Go closure of the index (or index pair). The closure
// captures its inputs and outputs; the launch functions only decide which
// goroutine evaluates which indices. Work items of one launch run in no
// particular order, so a kernel may only write locations owned by its own
// index. Every launch blocks until all work items have returned.
//
// Malformed index spaces are programming errors: they panic before any work
// item runs. Zero-sized index spaces are valid and do nothing.
package launch

import (
	"fmt"
	"time"

	"github.com/23skdu/longbow-sparse/internal/device"
)

// Run invokes fn once for every i in [0, size).
func Run(exec device.Backend, size int, fn func(i int)) {
	checkSize("Run", size)
	defer observe(exec, "plain", time.Now())

	exec.ParallelFor(size, func(start, end int) {
		for i := start; i < end; i++ {
			fn(i)
		}
	})
}

// Run2D invokes fn once for every (row, col) of a rows x cols index space.
func Run2D(exec device.Backend, rows, cols int, fn func(row, col int)) {
	checkSize("Run2D", rows)
	checkSize("Run2D", cols)
	defer observe(exec, "plain2d", time.Now())

	if cols == 0 {
		return
	}
	exec.ParallelFor(rows*cols, func(start, end int) {
		row, col := start/cols, start%cols
		for i := start; i < end; i++ {
			fn(row, col)
			col++
			if col == cols {
				col = 0
				row++
			}
		}
	})
}

func checkSize(fn string, size int) {
	if size < 0 {
		panic(fmt.Sprintf("launch.%s: negative index space size %d", fn, size))
	}
}

func observe(exec device.Backend, variant string, start time.Time) {
	launches.WithLabelValues(exec.Name(), variant).Inc()
	launchDuration.WithLabelValues(exec.Name(), variant).Observe(time.Since(start).Seconds())
}
