package device

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	poolTasks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparse_cpu_pool_tasks_total",
		Help: "Total number of chunks dispatched to CPU backend workers",
	})

	serialRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparse_cpu_serial_runs_total",
		Help: "Total number of index spaces the CPU backend ran on the calling goroutine",
	})

	poolWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sparse_cpu_pool_workers",
		Help: "Current number of live CPU backend workers",
	})
)
