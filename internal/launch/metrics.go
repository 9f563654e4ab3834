package launch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	launches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sparse_kernel_launches_total",
		Help: "Total number of kernel launches",
	}, []string{"backend", "variant"})

	launchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sparse_kernel_duration_seconds",
		Help:    "Wall time of kernel launches",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
	}, []string{"backend", "variant"})
)
