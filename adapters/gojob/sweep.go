package gojob

import (
	"context"
	"fmt"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-botflow/core"
)

// StateSweeper evicts idle conversation state. flow.StateTable is the
// default implementation.
type StateSweeper interface {
	Sweep(now time.Time) int
}

// NewStateSweepMessage builds the periodic sweep job message. Sweeps dedupe
// on the job id so overlapping schedules collapse to one run.
func NewStateSweepMessage() *core.JobExecutionMessage {
	return &core.JobExecutionMessage{
		JobID:          JobIDStateSweep,
		IdempotencyKey: JobIDStateSweep,
	}
}

// StateSweepHandler runs one sweep pass over the in-memory conversation
// state table.
type StateSweepHandler struct {
	states  StateSweeper
	logger  core.Logger
	metrics core.MetricsRecorder
	Now     func() time.Time
}

type SweepOption func(*StateSweepHandler)

func WithSweepLogger(logger core.Logger) SweepOption {
	return func(h *StateSweepHandler) { h.logger = logger }
}

func WithSweepLoggerProvider(provider core.LoggerProvider) SweepOption {
	return func(h *StateSweepHandler) { _, h.logger = glog.Resolve("botflow.sweep", provider, h.logger) }
}

func WithSweepMetrics(recorder core.MetricsRecorder) SweepOption {
	return func(h *StateSweepHandler) { h.metrics = recorder }
}

func NewStateSweepHandler(states StateSweeper, options ...SweepOption) *StateSweepHandler {
	handler := &StateSweepHandler{
		states:  states,
		metrics: core.NopMetricsRecorder{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(handler)
	}
	_, handler.logger = glog.Resolve("botflow.sweep", nil, handler.logger)
	if handler.metrics == nil {
		handler.metrics = core.NopMetricsRecorder{}
	}
	return handler
}

func (h *StateSweepHandler) Execute(ctx context.Context, msg *core.JobExecutionMessage) error {
	if h == nil || h.states == nil {
		return fmt.Errorf("gojob: state sweeper is not configured")
	}
	jobID := JobIDStateSweep
	if msg != nil && msg.JobID != "" {
		jobID = msg.JobID
	}

	evicted := h.states.Sweep(h.now())
	h.logger.Debug("conversation state sweep complete",
		"job_id", jobID,
		"evicted", evicted,
	)
	h.metrics.Counter(ctx, "botflow_state_swept", int64(evicted), map[string]string{
		"job_id": jobID,
	})
	return nil
}

func (h *StateSweepHandler) now() time.Time {
	if h != nil && h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}
