// Package effects runs best-effort side effects (reputation increments,
// notification records) apart from the primary transition that triggered
// them. A failed effect is logged, counted and written to a failure log; it
// never reaches the caller of the business operation.
package effects

import (
	"context"
	"time"

	"agora/metrics"
	"agora/util"
	"agora/util/goroutine"
	"go.uber.org/zap"
)

// Task is a single side effect
type Task func(ctx context.Context) error

// Dispatcher accepts side effects. Dispatch never returns an error and never
// blocks on the effect's own failure.
type Dispatcher interface {
	Dispatch(name string, task Task)
}

// DefaultTaskTimeout bounds a single side effect
const DefaultTaskTimeout = 5 * time.Second

// Inline runs each effect synchronously on the caller's goroutine. Failures
// are still isolated from the caller.
type Inline struct {
	failures FailureLog
	logger   *zap.SugaredLogger
	timeout  time.Duration
}

// NewInline creates an inline dispatcher. failures may be nil.
func NewInline(failures FailureLog, logger *zap.SugaredLogger) *Inline {
	return &Inline{
		failures: failures,
		logger:   logger,
		timeout:  DefaultTaskTimeout,
	}
}

// Dispatch runs the task now
func (d *Inline) Dispatch(name string, task Task) {
	execute(context.Background(), d.timeout, name, task, d.failures, d.logger)
}

// execute runs one task with a timeout, converts panics to errors and records
// any failure.
func execute(parent context.Context, timeout time.Duration, name string, task Task, failures FailureLog, logger *zap.SugaredLogger) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	err := runTask(ctx, name, task, logger)
	if err == nil {
		return
	}

	metrics.SideEffectFailures.WithLabelValues(name).Inc()
	message := util.SanitizeError(err)
	logger.Warnw("Side effect failed",
		"effect", name,
		"error", message)

	if failures == nil {
		return
	}
	// The log write gets its own context: ctx may be the one that timed out.
	recordCtx, recordCancel := context.WithTimeout(context.Background(), time.Second)
	defer recordCancel()
	if rerr := failures.Record(recordCtx, Failure{Effect: name, Error: message, At: time.Now().UTC()}); rerr != nil {
		logger.Errorw("Failed to record side effect failure",
			"effect", name,
			"error", rerr)
	}
}

func runTask(ctx context.Context, name string, task Task, logger *zap.SugaredLogger) (err error) {
	defer goroutine.RecoverInto(name, logger, &err)
	return task(ctx)
}
