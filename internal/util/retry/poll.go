package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/utils/clock"
)

// Outcome classifies a single observation made while polling.
type Outcome int

const (
	// Continue means the observed state is not final yet.
	Continue Outcome = iota
	// Succeed stops polling with success.
	Succeed
	// Fail stops polling with the observation error.
	Fail
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case Succeed:
		return "succeed"
	case Fail:
		return "fail"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// ErrExhausted is returned by Poll when every attempt ended in Continue.
var ErrExhausted = errors.New("polling attempts exhausted")

// ObserveFunc performs one observation. attempt starts at 1. A non-nil error
// with Continue is treated as transient and polling goes on.
type ObserveFunc func(ctx context.Context, attempt int) (Outcome, error)

// Policy is a fixed-interval, bounded polling policy.
type Policy struct {
	MaxAttempts int
	Interval    time.Duration
	Clock       clock.Clock
}

// NewPolicy returns a policy on the real clock.
func NewPolicy(maxAttempts int, interval time.Duration) Policy {
	return Policy{MaxAttempts: maxAttempts, Interval: interval, Clock: clock.RealClock{}}
}

// WithClock returns a copy of the policy using c.
func (p Policy) WithClock(c clock.Clock) Policy {
	p.Clock = c
	return p
}

// Budget is the worst-case time spent sleeping.
func (p Policy) Budget() time.Duration {
	if p.MaxAttempts <= 1 {
		return 0
	}
	return time.Duration(p.MaxAttempts-1) * p.Interval
}

// Poll calls observe until it returns Succeed or Fail, or MaxAttempts
// observations returned Continue. Attempts are Interval apart and run on
// wait.BackoffUntilWithContext; there is no wait after the last one.
// Cancelling ctx stops polling, including between attempts.
func (p Policy) Poll(ctx context.Context, observe ObserveFunc) error {
	c := p.Clock
	if c == nil {
		c = clock.RealClock{}
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	pollCtx, stop := context.WithCancel(ctx)
	defer stop()

	var (
		attempt  int
		finished bool
		result   error
		lastErr  error
	)
	delays := &intervalManager{
		ctx:   pollCtx,
		clock: c,
		delay: wait.Backoff{Duration: p.Interval, Factor: 1}.DelayWithReset(c, 0),
	}
	wait.BackoffUntilWithContext(pollCtx, func(ctx context.Context) {
		attempt++
		outcome, err := observe(ctx, attempt)
		switch outcome {
		case Succeed:
			finished = true
		case Fail:
			if err == nil {
				err = fmt.Errorf("observation failed on attempt %d", attempt)
			}
			finished, result = true, err
		default:
			lastErr = err
		}
		if finished || attempt >= attempts {
			stop()
		}
	}, delays, true)

	switch {
	case finished:
		return result
	case attempt < attempts:
		// Stopped by the caller's context.
		return ctx.Err()
	case lastErr != nil:
		return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
	default:
		return fmt.Errorf("%w after %d attempts", ErrExhausted, attempts)
	}
}

// intervalManager hands out the delays of a wait.DelayFunc as timers on the
// policy clock. Once polling is over it returns an expired timer.
type intervalManager struct {
	ctx   context.Context
	clock clock.Clock
	delay wait.DelayFunc
	timer clock.Timer
}

var _ wait.BackoffManager = &intervalManager{}

func (m *intervalManager) Backoff() clock.Timer {
	d := m.delay()
	if m.ctx.Err() != nil {
		d = 0
	}
	if m.timer == nil {
		m.timer = m.clock.NewTimer(d)
	} else {
		m.timer.Reset(d)
	}
	return m.timer
}
