package launch

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/23skdu/longbow-sparse/internal/device"
)

// Reducer is an associative, commutative binary operator together with its
// identity element.
type Reducer[T any] struct {
	Identity T
	Op       func(a, b T) T
}

// Summable are the types Sum can combine.
type Summable interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64 | ~complex64 | ~complex128
}

// Sum adds partial results, seeded with zero.
func Sum[T Summable]() Reducer[T] {
	return Reducer[T]{
		Op: func(a, b T) T { return a + b },
	}
}

// Max keeps the largest partial result, seeded with the zero value. Results
// are therefore never below zero, which matches the sizes and counts it is
// used for.
func Max[T cmp.Ordered]() Reducer[T] {
	return Reducer[T]{
		Op: func(a, b T) T { return max(a, b) },
	}
}

// Output selects how a row or column reduction writes its results.
type Output int

const (
	// Overwrite stores each reduced value, discarding what was there.
	Overwrite Output = iota
	// Accumulate combines each reduced value with the existing one using the
	// reduction operator.
	Accumulate
)

// RunReduction evaluates fn for every i in [0, size) and combines the results
// into one scalar. Partial results of a chunk are combined in index order and
// chunk results in chunk order, so the outcome only depends on how the
// backend splits the index space.
func RunReduction[T any](exec device.Backend, op Reducer[T], size int, fn func(i int) T) T {
	checkSize("RunReduction", size)
	defer observe(exec, "reduction", time.Now())

	type partial struct {
		start int
		value T
	}
	var (
		mu       sync.Mutex
		partials []partial
	)
	exec.ParallelFor(size, func(start, end int) {
		acc := op.Identity
		for i := start; i < end; i++ {
			acc = op.Op(acc, fn(i))
		}
		mu.Lock()
		partials = append(partials, partial{start: start, value: acc})
		mu.Unlock()
	})

	slices.SortFunc(partials, func(a, b partial) int { return cmp.Compare(a.start, b.start) })
	result := op.Identity
	for _, p := range partials {
		result = op.Op(result, p.value)
	}
	return result
}

// RunRowReduction reduces a rows x cols index space along cols. The value for
// row r is written to result[r*resultStride].
func RunRowReduction[T any](exec device.Backend, op Reducer[T], result []T, resultStride int, mode Output, rows, cols int, fn func(row, col int) T) {
	checkSize("RunRowReduction", rows)
	checkSize("RunRowReduction", cols)
	if resultStride < 1 {
		panic(fmt.Sprintf("launch.RunRowReduction: result stride %d < 1", resultStride))
	}
	if rows > 0 && len(result) < (rows-1)*resultStride+1 {
		panic(fmt.Sprintf("launch.RunRowReduction: result of length %d too small for %d rows with stride %d",
			len(result), rows, resultStride))
	}
	defer observe(exec, "row_reduction", time.Now())

	exec.ParallelFor(rows, func(start, end int) {
		for row := start; row < end; row++ {
			acc := op.Identity
			for col := 0; col < cols; col++ {
				acc = op.Op(acc, fn(row, col))
			}
			store(op, mode, &result[row*resultStride], acc)
		}
	})
}

// RunColReduction reduces a rows x cols index space along rows. The value for
// column c is written to result[c].
func RunColReduction[T any](exec device.Backend, op Reducer[T], result []T, mode Output, rows, cols int, fn func(row, col int) T) {
	checkSize("RunColReduction", rows)
	checkSize("RunColReduction", cols)
	if len(result) < cols {
		panic(fmt.Sprintf("launch.RunColReduction: result of length %d too small for %d columns", len(result), cols))
	}
	defer observe(exec, "col_reduction", time.Now())

	exec.ParallelFor(cols, func(start, end int) {
		for col := start; col < end; col++ {
			acc := op.Identity
			for row := 0; row < rows; row++ {
				acc = op.Op(acc, fn(row, col))
			}
			store(op, mode, &result[col], acc)
		}
	})
}

func store[T any](op Reducer[T], mode Output, dst *T, v T) {
	if mode == Accumulate {
		*dst = op.Op(*dst, v)
		return
	}
	*dst = v
}
