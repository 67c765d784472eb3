// Package observability holds the dicing pipeline's Prometheus metrics.
package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dicer_records_total",
			Help: "Records handled by the dicer, by outcome.",
		},
		[]string{"outcome"},
	)

	fragmentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dicer_fragments_total",
			Help: "Tile fragments handed to the sink.",
		},
	)

	recordSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dicer_record_seconds",
			Help:    "Time spent decoding, repairing and clipping one record.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16), // 100µs to ~3s
		},
	)

	sinkOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dicer_sink_ops_total",
			Help: "Sink operations by sink and result.",
		},
		[]string{"sink", "result"},
	)

	runState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dicer_run_state",
			Help: "Current orchestrator state (0 idle, 1 loading, 2 repairing, 3 clipping, 4 emitting).",
		},
	)
)

func Collectors() []prometheus.Collector {
	return []prometheus.Collector{recordsTotal, fragmentsTotal, recordSeconds, sinkOpsTotal, runState}
}

// Register adds the dicer metrics to reg. Registering twice with the same
// registry is not an error.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRecord counts one record under outcome. Zero seconds skips the
// latency histogram.
func ObserveRecord(outcome string, seconds float64) {
	if outcome == "" {
		outcome = "unknown"
	}
	recordsTotal.WithLabelValues(outcome).Inc()
	if seconds > 0 {
		recordSeconds.Observe(seconds)
	}
}

func AddFragments(n int) {
	if n > 0 {
		fragmentsTotal.Add(float64(n))
	}
}

func ObserveSinkOp(sink string, err error) {
	res := "ok"
	if err != nil {
		res = "error"
	}
	sinkOpsTotal.WithLabelValues(sink, res).Inc()
}

func SetRunState(s int) {
	runState.Set(float64(s))
}
