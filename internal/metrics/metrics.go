package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline phase metrics
	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_phase_duration_ms",
		Help:    "Duration of one phase operation in milliseconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 20), // 10us to ~5s
	}, []string{"phase"})

	SlotState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pipeline_slots",
		Help: "Number of slots currently in each state",
	}, []string{"state"})

	AcquireWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipeline_acquire_wait_ms",
		Help:    "Time the producer spent blocked waiting for a free slot in milliseconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 20),
	})

	RequestsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_requests_completed_total",
		Help: "Total number of requests drained from the pipeline",
	})

	RequestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_request_failures_total",
		Help: "Total number of failed requests by failure kind",
	}, []string{"kind"})

	RunThroughput = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_run_throughput_elements_per_second",
		Help: "Throughput of the last completed run in elements per second",
	})

	RunElapsed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_run_elapsed_seconds",
		Help: "Wall time of the last completed run in seconds",
	})

	// Device metrics
	DeviceMemoryUsedBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "device_memory_used_bytes",
		Help: "Device-visible memory held by slot regions in bytes",
	})
)
