// Package metrics mirrors the shape of op-service/txmgr/metrics: a narrow
// recording interface, a Prometheus-backed implementation, and a Noop
// implementation for tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetricer is the set of measurements the Driver and Submitter
// record as they work. Namespaced under "pipeline" the way TxMetricer is
// namespaced under "txmgr".
type PipelineMetricer interface {
	RecordTickDuration(time.Duration)
	RecordSubmitted()
	RecordConfirmed()
	RecordPermanentReject()
	RecordResign()
	RecordFatal()
	RPCError()
	RecordSubmittedUnconfirmedDepth(depth int)
	RecordSequenceCursor(next int64)
}

// PipelineMetrics is the Prometheus-backed PipelineMetricer.
type PipelineMetrics struct {
	tickDuration         prometheus.Histogram
	submittedCount       prometheus.Counter
	confirmedCount       prometheus.Counter
	permanentRejectCount prometheus.Counter
	resignCount          prometheus.Counter
	fatalCount           prometheus.Counter
	rpcErrorCount        prometheus.Counter

	submittedUnconfirmedDepth prometheus.Gauge
	sequenceCursor            prometheus.Gauge
}

var _ PipelineMetricer = (*PipelineMetrics)(nil)

// NewPipelineMetrics registers the pipeline's series against the given
// registerer, under the given namespace (e.g. the service name).
func NewPipelineMetrics(ns string, reg prometheus.Registerer) *PipelineMetrics {
	factory := promauto.With(reg)
	const subsystem = "pipeline"

	m := &PipelineMetrics{
		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: subsystem,
			Name:      "tick_duration_seconds",
			Help:      "Duration of a single Driver tick",
			Buckets:   prometheus.DefBuckets,
		}),
		submittedCount: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: subsystem,
			Name:      "submitted_total",
			Help:      "Count of payments successfully submitted to the ledger",
		}),
		confirmedCount: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: subsystem,
			Name:      "confirmed_total",
			Help:      "Count of payments confirmed by the ledger",
		}),
		permanentRejectCount: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: subsystem,
			Name:      "permanent_reject_total",
			Help:      "Count of payments permanently rejected without invalidating the sequence chain",
		}),
		resignCount: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: subsystem,
			Name:      "resign_total",
			Help:      "Count of resign-recovery runs",
		}),
		fatalCount: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: subsystem,
			Name:      "fatal_total",
			Help:      "Count of errors promoted to fatal",
		}),
		rpcErrorCount: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: subsystem,
			Name:      "rpc_error_total",
			Help:      "Count of ledger RPC errors (timeouts, connection failures)",
		}),
		submittedUnconfirmedDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: subsystem,
			Name:      "submitted_unconfirmed_depth",
			Help:      "Number of Submitted-but-unconfirmed rows at the start of the last tick",
		}),
		sequenceCursor: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: subsystem,
			Name:      "sequence_cursor",
			Help:      "The Signer's current next-sequence cursor",
		}),
	}
	return m
}

func (m *PipelineMetrics) RecordTickDuration(d time.Duration) { m.tickDuration.Observe(d.Seconds()) }
func (m *PipelineMetrics) RecordSubmitted()                   { m.submittedCount.Inc() }
func (m *PipelineMetrics) RecordConfirmed()                   { m.confirmedCount.Inc() }
func (m *PipelineMetrics) RecordPermanentReject()             { m.permanentRejectCount.Inc() }
func (m *PipelineMetrics) RecordResign()                      { m.resignCount.Inc() }
func (m *PipelineMetrics) RecordFatal()                       { m.fatalCount.Inc() }
func (m *PipelineMetrics) RPCError()                          { m.rpcErrorCount.Inc() }

func (m *PipelineMetrics) RecordSubmittedUnconfirmedDepth(depth int) {
	m.submittedUnconfirmedDepth.Set(float64(depth))
}

func (m *PipelineMetrics) RecordSequenceCursor(next int64) {
	m.sequenceCursor.Set(float64(next))
}
