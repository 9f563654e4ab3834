//go:build cgo && netlib

package matrix

import (
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/netlib/blas/netlib"
)

// Routes the gonum products used for verification through the system BLAS.
func init() {
	blas64.Use(netlib.Implementation{})
	log.Debug().Msg("netlib BLAS enabled")
}
