// Package components holds the small building blocks shared by the format
// kernels: prefix sums and index-to-pointer compression.
package components

import (
	"fmt"

	"github.com/23skdu/longbow-sparse/internal/device"
	"github.com/23skdu/longbow-sparse/internal/launch"
	"github.com/23skdu/longbow-sparse/internal/numeric"
)

// Integer is the set of element types PrefixSum accepts.
type Integer interface {
	~int | ~int32 | ~int64
}

// prefixSumBlock is the number of elements one work item scans.
const prefixSumBlock = 1024

// PrefixSum replaces data with its exclusive prefix sum:
// data[i] = data[0] + ... + data[i-1], data[0] = 0. With a trailing slot
// appended to the counts, the last element ends up holding the total.
func PrefixSum[T Integer](exec device.Backend, data []T) {
	n := len(data)
	if n == 0 {
		return
	}
	numBlocks := (n + prefixSumBlock - 1) / prefixSumBlock
	totals := make([]T, numBlocks)

	launch.Run(exec, numBlocks, func(b int) {
		start := b * prefixSumBlock
		end := min(start+prefixSumBlock, n)
		var carry T
		for i := start; i < end; i++ {
			v := data[i]
			data[i] = carry
			carry += v
		}
		totals[b] = carry
	})

	var carry T
	for b, v := range totals {
		totals[b] = carry
		carry += v
	}

	launch.Run(exec, numBlocks, func(b int) {
		if totals[b] == 0 {
			return
		}
		start := b * prefixSumBlock
		end := min(start+prefixSumBlock, n)
		for i := start; i < end; i++ {
			data[i] += totals[b]
		}
	})
}

// ConvertIdxsToPtrs compresses the sorted row indices idxs of a matrix with
// numRows rows into row pointers: ptrs[r] is the number of entries whose row
// is below r. ptrs must hold numRows+1 elements.
func ConvertIdxsToPtrs[I numeric.Index, P Integer](exec device.Backend, idxs []I, numRows int, ptrs []P) {
	if len(ptrs) < numRows+1 {
		panic(fmt.Sprintf("components.ConvertIdxsToPtrs: ptrs of length %d too small for %d rows", len(ptrs), numRows))
	}
	n := len(idxs)
	launch.Run(exec, n+1, func(i int) {
		lo := 0
		if i > 0 {
			lo = int(idxs[i-1]) + 1
		}
		hi := numRows
		if i < n {
			hi = int(idxs[i])
		}
		for r := lo; r <= hi; r++ {
			ptrs[r] = P(i)
		}
	})
}
