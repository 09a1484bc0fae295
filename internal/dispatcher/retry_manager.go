package dispatcher

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/timeseer-ai/kukur-go/internal/metrics"
	"github.com/timeseer-ai/kukur-go/pkg/errkind"
	"github.com/timeseer-ai/kukur-go/pkg/metadata"
)

// withRetry wraps one adapter call in the dispatch contract's recovery
// policy: up to QueryRetryCount+1 total attempts, a fixed QueryRetryDelay
// between them, retrying only Timeout and Transient failures. A call that
// exceeds QueryTimeout is itself reported as Timeout so it participates in
// the same retry budget.
func (w *SourceWrapper) withRetry(ctx context.Context, operation string, selector metadata.SeriesSelector, fn func(ctx context.Context) error) error {
	attempts := w.options.QueryRetryCount + 1
	started := time.Now()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if w.options.QueryTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, w.options.QueryTimeout)
		}
		err := fn(callCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			metrics.RecordDispatchCall(w.name, operation, "success", time.Since(started))
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = errkind.TimeoutError(component, operation, "adapter call exceeded its configured timeout").Wrap(err)
		}
		lastErr = err
		if kind, ok := errkind.Of(err); ok {
			metrics.RecordDispatchError(w.name, operation, string(kind))
		}

		if !errkind.IsRetryable(err) {
			metrics.RecordDispatchCall(w.name, operation, "failure", time.Since(started))
			return err
		}
		w.logger.WithFields(logrus.Fields{
			"component": component,
			"operation": operation,
			"source":    w.name,
			"selector":  selector.String(),
			"attempt":   attempt,
			"attempts":  attempts,
		}).WithError(err).Warn("adapter call failed, retrying")

		if attempt == attempts {
			break
		}
		metrics.RecordDispatchRetry(w.name, operation)
		if w.options.QueryRetryDelay <= 0 {
			continue
		}
		timer := time.NewTimer(w.options.QueryRetryDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	metrics.RecordDispatchCall(w.name, operation, "failure", time.Since(started))
	return lastErr
}
