// Package retrytest provides a fake clock for driving retry.Policy in tests.
package retrytest

import (
	"time"

	"k8s.io/utils/clock"
	clocktesting "k8s.io/utils/clock/testing"
)

// Clock is a fake clock whose timers fire as soon as they are armed. Arming a
// timer advances the clock by its duration, so polling runs without real waits
// and the elapsed fake time equals the sum of the requested delays.
type Clock struct {
	*clocktesting.FakeClock
}

var _ clock.Clock = &Clock{}

// NewClock returns a Clock set to t.
func NewClock(t time.Time) *Clock {
	return &Clock{FakeClock: clocktesting.NewFakeClock(t)}
}

// NewTimer returns a timer that has already fired.
func (c *Clock) NewTimer(d time.Duration) clock.Timer {
	t := &timer{Timer: c.FakeClock.NewTimer(d), clock: c.FakeClock}
	c.Step(d)
	return t
}

type timer struct {
	clock.Timer
	clock *clocktesting.FakeClock
}

func (t *timer) Reset(d time.Duration) bool {
	active := t.Timer.Reset(d)
	t.clock.Step(d)
	return active
}
