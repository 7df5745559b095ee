// Package task schedules background units of work with observable completion
// and error reporting, replacing bare fire-and-forget goroutines so failures
// cannot be silently dropped.
package task

import (
	"context"
	"log/slog"

	"github.com/sourcegraph/conc"
)

// Runner runs labeled background tasks. Errors and panics are reported to
// the OnError hook (slog by default) instead of being lost.
type Runner struct {
	wg conc.WaitGroup

	// OnError observes every task failure. Defaults to structured logging.
	OnError func(label string, err error)
}

func NewRunner() *Runner {
	return &Runner{
		OnError: func(label string, err error) {
			slog.Error("background task failed", "task", label, "error", err)
		},
	}
}

// Go schedules fn on its own goroutine. The caller returns immediately; the
// task's error surfaces through OnError.
func (r *Runner) Go(label string, fn func(ctx context.Context) error) {
	r.wg.Go(func() {
		// Background tasks outlive the request that scheduled them, so they
		// get a fresh root context; fn bounds its own collaborator calls.
		if err := fn(context.Background()); err != nil {
			r.OnError(label, err)
		}
	})
}

// Wait blocks until every scheduled task has finished. Tests use it as the
// observable join point; servers call it on shutdown.
func (r *Runner) Wait() {
	if recovered := r.wg.WaitAndRecover(); recovered != nil {
		r.OnError("panic", recovered.AsError())
	}
}
