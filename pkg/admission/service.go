package admission

import (
	"context"
	"log/slog"
	"time"

	"taskgate-hq/taskgate/pkg/tasklog"
)

// Service is the admission front door. Submit applies the rate limit and
// either executes the task immediately, defers it to the user's backlog, or
// rejects the request outright.
type Service struct {
	limiter *Limiter
	backlog *Backlog
	drainer *Drainer
	sink    tasklog.Sink
	metrics *Metrics
	logger  *slog.Logger
}

// NewService wires the admission pipeline. metrics may be nil.
func NewService(limiter *Limiter, backlog *Backlog, drainer *Drainer, sink tasklog.Sink, metrics *Metrics) *Service {
	return &Service{
		limiter: limiter,
		backlog: backlog,
		drainer: drainer,
		sink:    sink,
		metrics: metrics,
		logger:  slog.Default().With("component", "admission"),
	}
}

// Submit admits one task for user.
//
// Outcomes:
//   - OutcomeCompleted: the task ran synchronously within the limit.
//   - OutcomeDeferred: the user is over a limit; the task was queued and a
//     background drain was triggered.
//   - OutcomeRejected: the request itself is invalid (blank user). Nothing
//     is recorded and no store call is made.
//   - OutcomeUnavailable: the store or the execution sink failed; the
//     caller should retry later.
func (s *Service) Submit(ctx context.Context, user string) (Outcome, error) {
	if user == "" {
		s.metrics.RecordTaskOutcome(string(OutcomeRejected), "submit")
		return OutcomeRejected, ErrMissingUser
	}

	admitted, err := s.limiter.TryAdmit(ctx, user)
	if err != nil {
		s.logger.Error("admission check failed",
			"user", user,
			"error", err)
		s.metrics.RecordTaskOutcome(string(OutcomeUnavailable), "submit")
		return OutcomeUnavailable, err
	}

	if admitted {
		if err := s.sink.Execute(ctx, user); err != nil {
			// The admission slot is already spent; the window still
			// counts it. Surface the failure rather than queueing a
			// duplicate.
			s.logger.Error("task execution failed",
				"user", user,
				"error", err)
			s.metrics.RecordTaskOutcome(string(OutcomeUnavailable), "submit")
			return OutcomeUnavailable, err
		}
		s.metrics.RecordTaskOutcome(string(OutcomeCompleted), "submit")
		return OutcomeCompleted, nil
	}

	if err := s.backlog.Enqueue(ctx, user, time.Now().UnixMilli()); err != nil {
		s.logger.Error("backlog enqueue failed",
			"user", user,
			"error", err)
		s.metrics.RecordTaskOutcome(string(OutcomeUnavailable), "submit")
		return OutcomeUnavailable, err
	}
	s.drainer.Trigger(user)

	s.metrics.RecordTaskOutcome(string(OutcomeDeferred), "submit")
	return OutcomeDeferred, nil
}
