package notify

import (
	"context"
	"errors"
	"time"

	"DerivBot/internal/domain/repository"
	"DerivBot/internal/service/ratelimit"
	"DerivBot/pkg/logger"
)

// Multi fans a message out to every notifier and joins their errors.
type Multi struct {
	notifiers []repository.Notifier
	timeout   time.Duration
}

// NewMulti drops nil notifiers. A zero timeout means no per-message deadline.
func NewMulti(timeout time.Duration, notifiers ...repository.Notifier) *Multi {
	m := &Multi{timeout: timeout}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

func (m *Multi) Notify(ctx context.Context, subject, body string) error {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, subject, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Throttled drops messages once a subject exhausts its token bucket.
type Throttled struct {
	next    repository.Notifier
	limiter *ratelimit.Limiter
	logger  *logger.Logger
}

func NewThrottled(next repository.Notifier, limiter *ratelimit.Limiter, log *logger.Logger) *Throttled {
	if log == nil {
		log = logger.NewNop()
	}
	return &Throttled{next: next, limiter: limiter, logger: log}
}

func (t *Throttled) Notify(ctx context.Context, subject, body string) error {
	if !t.limiter.Allow(subject) {
		t.logger.Warn("notification throttled", logger.String("subject", subject))
		return nil
	}
	return t.next.Notify(ctx, subject, body)
}
