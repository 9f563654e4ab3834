package launch

import (
	"testing"

	"github.com/23skdu/longbow-sparse/internal/device"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

func backends(t *testing.T) []device.Backend {
	t.Helper()
	cpu := device.NewCPUBackend(device.Config{NumWorkers: 4})
	t.Cleanup(cpu.Close)
	return []device.Backend{device.NewReferenceBackend(), cpu}
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	_ = c.Write(&m)
	return m.GetCounter().GetValue()
}

func TestRun(t *testing.T) {
	for _, exec := range backends(t) {
		t.Run(exec.Name(), func(t *testing.T) {
			out := make([]int, 1000)
			Run(exec, len(out), func(i int) {
				out[i] = i * i
			})
			for i, v := range out {
				assert.Equal(t, i*i, v)
			}
		})
	}
}

func TestRun_EmptyIsNoOp(t *testing.T) {
	for _, exec := range backends(t) {
		called := false
		Run(exec, 0, func(int) { called = true })
		Run2D(exec, 0, 5, func(int, int) { called = true })
		Run2D(exec, 5, 0, func(int, int) { called = true })
		assert.False(t, called)
	}
}

func TestRun2D(t *testing.T) {
	for _, exec := range backends(t) {
		t.Run(exec.Name(), func(t *testing.T) {
			rows, cols := 37, 11
			out := make([]int, rows*cols)
			Run2D(exec, rows, cols, func(r, c int) {
				out[r*cols+c] += r*100 + c
			})
			for r := 0; r < rows; r++ {
				for c := 0; c < cols; c++ {
					assert.Equal(t, r*100+c, out[r*cols+c])
				}
			}
		})
	}
}

func TestMalformedIndexSpacePanics(t *testing.T) {
	exec := device.NewReferenceBackend()
	called := false
	fn := func(int) { called = true }

	assert.Panics(t, func() { Run(exec, -1, fn) })
	assert.Panics(t, func() { Run2D(exec, 3, -2, func(int, int) { called = true }) })
	assert.Panics(t, func() {
		RunRowReduction(exec, Sum[int](), make([]int, 2), 1, Overwrite, 3, 1, func(int, int) int { called = true; return 0 })
	})
	assert.Panics(t, func() {
		RunRowReduction(exec, Sum[int](), make([]int, 8), 0, Overwrite, 3, 1, func(int, int) int { called = true; return 0 })
	})
	assert.Panics(t, func() {
		RunColReduction(exec, Sum[int](), make([]int, 1), Overwrite, 1, 2, func(int, int) int { called = true; return 0 })
	})
	assert.False(t, called, "no work item may run for a malformed launch")
}

func TestRunReduction(t *testing.T) {
	for _, exec := range backends(t) {
		t.Run(exec.Name(), func(t *testing.T) {
			sum := RunReduction(exec, Sum[int64](), 10001, func(i int) int64 { return int64(i) })
			assert.Equal(t, int64(10001*10000/2), sum)

			maxVal := RunReduction(exec, Max[int](), 5000, func(i int) int { return (i * 7919) % 4999 })
			assert.Equal(t, 4998, maxVal)

			assert.Equal(t, 0, RunReduction(exec, Max[int](), 0, func(int) int { return 7 }))
			assert.Equal(t, 0.0, RunReduction(exec, Sum[float64](), 0, func(int) float64 { return 1 }))
		})
	}
}

func TestRunReduction_FloatWithinRounding(t *testing.T) {
	bs := backends(t)
	fn := func(i int) float64 { return 1.0 / float64(i+1) }
	ref := RunReduction(bs[0], Sum[float64](), 100000, fn)
	par := RunReduction(bs[1], Sum[float64](), 100000, fn)
	assert.InDelta(t, ref, par, 1e-12)
}

func TestRunRowReduction(t *testing.T) {
	for _, exec := range backends(t) {
		t.Run(exec.Name(), func(t *testing.T) {
			rows, cols := 9, 4
			fn := func(r, c int) int { return r*10 + c }

			t.Run("Overwrite with stride", func(t *testing.T) {
				result := []int{-1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1}
				RunRowReduction(exec, Sum[int](), result, 2, Overwrite, rows, cols, fn)
				for r := 0; r < rows; r++ {
					assert.Equal(t, 40*r+6, result[2*r])
					assert.Equal(t, -1, result[2*r+1])
				}
			})

			t.Run("Accumulate", func(t *testing.T) {
				result := make([]int, rows)
				for i := range result {
					result[i] = 1000
				}
				RunRowReduction(exec, Sum[int](), result, 1, Accumulate, rows, cols, fn)
				for r := 0; r < rows; r++ {
					assert.Equal(t, 1000+40*r+6, result[r])
				}
			})

			t.Run("Max", func(t *testing.T) {
				result := make([]int, rows)
				RunRowReduction(exec, Max[int](), result, 1, Overwrite, rows, cols, fn)
				for r := 0; r < rows; r++ {
					assert.Equal(t, r*10+3, result[r])
				}
			})
		})
	}
}

func TestRunColReduction(t *testing.T) {
	for _, exec := range backends(t) {
		t.Run(exec.Name(), func(t *testing.T) {
			rows, cols := 5, 300
			result := make([]int32, cols)
			RunColReduction(exec, Sum[int32](), result, Overwrite, rows, cols, func(r, c int) int32 {
				if (r+c)%2 == 0 {
					return 1
				}
				return 0
			})
			for c, v := range result {
				if c%2 == 0 {
					assert.Equal(t, int32(3), v)
				} else {
					assert.Equal(t, int32(2), v)
				}
			}

			RunColReduction(exec, Sum[int32](), result, Accumulate, rows, cols, func(int, int) int32 { return 1 })
			assert.Equal(t, int32(8), result[0])
		})
	}
}

func TestLaunchMetrics(t *testing.T) {
	exec := device.NewReferenceBackend()
	c := launches.WithLabelValues(exec.Name(), "plain")
	before := counterValue(c)
	Run(exec, 3, func(int) {})
	Run(exec, 0, func(int) {})
	assert.Equal(t, 2.0, counterValue(c)-before)
}
