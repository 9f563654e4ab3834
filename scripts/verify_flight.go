//go:build ignore

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/23skdu/longbow-sparse/internal/client"
	"github.com/23skdu/longbow-sparse/internal/codec"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	addr := "localhost:9090"
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}

	log.Info().Str("addr", addr).Msg("Connecting to sparsekit Flight server")
	c, err := client.NewFlightClient(addr)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect")
	}
	defer c.Close()

	// tridiagonal 1-D Laplacian
	const n = 1000
	t := &codec.Triplets{Rows: n, Cols: n}
	for i := 0; i < n; i++ {
		for _, j := range []int{i - 1, i, i + 1} {
			if j < 0 || j >= n {
				continue
			}
			v := -1.0
			if j == i {
				v = 2
			}
			t.RowIdx = append(t.RowIdx, int64(i))
			t.ColIdx = append(t.ColIdx, int64(j))
			t.Values = append(t.Values, v)
		}
	}
	rec := client.NewRecordBatchBuilder(memory.NewGoAllocator()).BuildTriplets(t)
	defer rec.Release()

	var lastErr error
	for i := 0; i < 10; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		start := time.Now()
		lastErr = c.DoPut(ctx, "laplacian-1d", rec)
		cancel()
		if lastErr == nil {
			log.Info().Dur("elapsed", time.Since(start)).Int("nnz", len(t.Values)).Msg("Matrix accepted")
			fmt.Println("VERIFICATION PASSED")
			return
		}
		log.Warn().Err(lastErr).Str("breaker", c.State().String()).Msg("DoPut failed, retrying...")
		time.Sleep(time.Second)
	}
	log.Fatal().Err(lastErr).Msg("Failed after retries")
}
