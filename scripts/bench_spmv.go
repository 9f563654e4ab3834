//go:build ignore

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/23skdu/longbow-sparse/internal/device"
	"github.com/23skdu/longbow-sparse/internal/matrix"
	"github.com/23skdu/longbow-sparse/internal/sparse"
)

// poisson returns the 5-point Laplacian on an n x n grid.
func poisson(n int) *matrix.Data[float64, int32] {
	d := matrix.NewData[float64, int32](matrix.Dim{Rows: n * n, Cols: n * n})
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			row := int32(i*n + j)
			d.Append(row, row, 4)
			if i > 0 {
				d.Append(row, row-int32(n), -1)
			}
			if i < n-1 {
				d.Append(row, row+int32(n), -1)
			}
			if j > 0 {
				d.Append(row, row-1, -1)
			}
			if j < n-1 {
				d.Append(row, row+1, -1)
			}
		}
	}
	return d
}

func main() {
	ctx := context.Background()
	data := poisson(512)
	size := data.Size
	const iters = 50

	backends := []device.Backend{
		device.NewReferenceBackend(),
		device.NewCPUBackend(device.DefaultConfig()),
	}
	for _, exec := range backends {
		ellM, err := sparse.ReadEll(ctx, exec, data, sparse.DefaultEllConfig())
		if err != nil {
			panic(err)
		}
		sellpM, err := sparse.ReadSellp(ctx, exec, data, sparse.DefaultSellpConfig())
		if err != nil {
			panic(err)
		}
		csrM, err := sparse.ReadCsr(ctx, exec, data, true)
		if err != nil {
			panic(err)
		}

		b := matrix.NewDense[float64](matrix.Dim{Rows: size.Cols, Cols: 1})
		b.Fill(1)
		x := matrix.NewDense[float64](matrix.Dim{Rows: size.Rows, Cols: 1})

		for _, bench := range []struct {
			name  string
			apply func() error
		}{
			{"ell", func() error { return sparse.ApplyEll(ctx, exec, ellM, b, x) }},
			{"sellp", func() error { return sparse.ApplySellp(ctx, exec, sellpM, b, x) }},
			{"csr", func() error { return sparse.ApplyCsr(ctx, exec, csrM, b, x) }},
		} {
			if err := bench.apply(); err != nil {
				panic(err)
			}
			start := time.Now()
			for i := 0; i < iters; i++ {
				_ = bench.apply()
			}
			elapsed := time.Since(start)
			gflops := 2 * float64(data.NumStored()) * iters / elapsed.Seconds() / 1e9
			fmt.Printf("%-9s %-5s %s: %.2f ms/spmv (%.2f GFLOP/s)\n",
				exec.Name(), bench.name, size, elapsed.Seconds()*1e3/iters, gflops)
		}
		exec.Close()
	}
}
