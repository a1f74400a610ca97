// Package poller reconciles an eventually-consistent remote predicate
// against a terminal condition with a bounded number of fixed-delay
// attempts.
package poller

import (
	"context"
	"log/slog"
	"time"
)

// CheckFunc reports whether the remote predicate is satisfied. A returned
// error counts toward the attempt budget exactly like an unsatisfied
// result: both simply warrant another attempt.
type CheckFunc func(ctx context.Context) (bool, error)

type Poller struct {
	MaxAttempts int
	Delay       time.Duration
}

// New returns a poller with the default budget: 5 attempts, 3s apart,
// bounding the worst-case reconciliation window to ~15s.
func New() Poller {
	return Poller{MaxAttempts: 5, Delay: 3 * time.Second}
}

type Result struct {
	Satisfied bool
	Attempts  int
}

// Poll invokes check on a fixed schedule until it is satisfied or the
// budget is exhausted. If ctx is cancelled no further attempts are
// scheduled and ctx.Err() is returned; callers must not apply effects in
// that case.
func (p Poller) Poll(ctx context.Context, check CheckFunc) (Result, error) {
	timer := time.NewTimer(p.Delay)
	defer timer.Stop()

	var res Result
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-timer.C:
		}

		res.Attempts = attempt
		ok, err := check(ctx)
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if err != nil {
			slog.Warn("reconciliation check failed", "attempt", attempt, "error", err)
		} else if ok {
			res.Satisfied = true
			return res, nil
		}

		timer.Reset(p.Delay)
	}

	return res, nil
}
