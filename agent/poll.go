package agent

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// PollPolicy bounds a poll loop. The upstream job duration is roughly known,
// so the cadence is a fixed interval rather than exponential backoff.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultPollPolicy checks every 5 seconds for up to 60 attempts, about five
// minutes of wall clock.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{Interval: 5 * time.Second, MaxAttempts: 60}
}

// Poller drives a submitted job to a terminal status. The clock is injected
// so tests run without real waits.
type Poller struct {
	checker StatusChecker
	policy  PollPolicy
	clock   clockwork.Clock
	logger  *zap.Logger
}

func NewPoller(checker StatusChecker, policy PollPolicy, clock clockwork.Clock, logger *zap.Logger) *Poller {
	if policy.Interval <= 0 || policy.MaxAttempts <= 0 {
		policy = DefaultPollPolicy()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{checker: checker, policy: policy, clock: clock, logger: logger}
}

// Wait polls until the job reaches a terminal status or the attempt budget is
// exhausted. A transient check failure counts as "still pending" and is
// retried on the next tick; "failed" stops immediately and is never retried;
// exhausting the budget yields TimeoutError.
func (p *Poller) Wait(ctx context.Context, handle JobHandle) (RawResult, error) {
	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		status, err := p.checker.Status(ctx, handle.RequestID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return RawResult{}, &TransportError{Op: "poll", Err: ctx.Err()}
			}
			p.logger.Debug("status check failed, treating as pending",
				zap.String("request_id", handle.RequestID),
				zap.Int("attempt", attempt),
				zap.Error(err))
		case status == nil:
			// Still pending.
		case status.Status == StatusCompleted:
			return status.RawContent(), nil
		case status.Status == StatusFailed:
			return RawResult{}, &JobFailedError{RequestID: handle.RequestID, Detail: status.Error}
		}

		if attempt == p.policy.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return RawResult{}, &TransportError{Op: "poll", Err: ctx.Err()}
		case <-p.clock.After(p.policy.Interval):
		}
	}
	return RawResult{}, &TimeoutError{RequestID: handle.RequestID, Attempts: p.policy.MaxAttempts}
}
