package metrics

import "time"

// NoopPipelineMetrics is a PipelineMetricer that discards every
// measurement. Used in tests the way metrics.NoopTxMetrics is used in
// txmgr_test.go.
type NoopPipelineMetrics struct{}

var _ PipelineMetricer = (*NoopPipelineMetrics)(nil)

func (*NoopPipelineMetrics) RecordTickDuration(time.Duration)           {}
func (*NoopPipelineMetrics) RecordSubmitted()                           {}
func (*NoopPipelineMetrics) RecordConfirmed()                           {}
func (*NoopPipelineMetrics) RecordPermanentReject()                     {}
func (*NoopPipelineMetrics) RecordResign()                              {}
func (*NoopPipelineMetrics) RecordFatal()                               {}
func (*NoopPipelineMetrics) RPCError()                                  {}
func (*NoopPipelineMetrics) RecordSubmittedUnconfirmedDepth(int) {}
func (*NoopPipelineMetrics) RecordSequenceCursor(int64)          {}
