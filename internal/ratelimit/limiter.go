// Package ratelimit throttles commit units with two nested rolling windows.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/Kamar-Folarin/commit-painter/internal/config"
)

// WaitFunc is notified before the limiter suspends a caller.
type WaitFunc func(window string, wait time.Duration)

// Window is a rolling interval holding at most Ceiling admitted units.
type Window struct {
	Name    string
	Length  time.Duration
	Ceiling int

	log []admission
}

type admission struct {
	at    time.Time
	units int
}

func (w *Window) prune(now time.Time) {
	i := 0
	for i < len(w.log) && !w.log[i].at.Add(w.Length).After(now) {
		i++
	}
	w.log = w.log[i:]
}

func (w *Window) used() int {
	total := 0
	for _, a := range w.log {
		total += a.units
	}
	return total
}

// waitFor returns how long until n more units fit, or 0 when they fit now.
func (w *Window) waitFor(now time.Time, n int) time.Duration {
	excess := w.used() + n - w.Ceiling
	if excess <= 0 {
		return 0
	}
	for _, a := range w.log {
		excess -= a.units
		if excess <= 0 {
			return a.at.Add(w.Length).Sub(now)
		}
	}
	return w.Length
}

// Limiter admits units so that neither window is ever exceeded.
// Admit is safe for concurrent use; callers are served one at a time.
type Limiter struct {
	mu      sync.Mutex
	windows []*Window
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
	onWait  WaitFunc
}

// Option configures a Limiter
type Option func(*Limiter)

// WithClock replaces the time source and the sleep used while throttled.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Limiter) {
		l.now = now
		l.sleep = sleep
	}
}

// WithWaitHook registers a callback invoked before every suspension.
func WithWaitHook(fn WaitFunc) Option {
	return func(l *Limiter) {
		l.onWait = fn
	}
}

// NewLimiter creates a limiter with a 1s window capped at config.PerSecondCeiling
// and a 60s window capped at perMinute, clamped to the supported range.
func NewLimiter(perMinute int, opts ...Option) *Limiter {
	l := &Limiter{
		windows: []*Window{
			{Name: "second", Length: time.Second, Ceiling: config.PerSecondCeiling},
			{Name: "minute", Length: time.Minute, Ceiling: config.ClampRateLimit(perMinute)},
		},
		now:   time.Now,
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MaxAdmission is the largest number of units a single window can ever hold.
func (l *Limiter) MaxAdmission() int {
	smallest := 0
	for _, w := range l.windows {
		if smallest == 0 || w.Ceiling < smallest {
			smallest = w.Ceiling
		}
	}
	return smallest
}

// PerMinute returns the effective 60-second ceiling.
func (l *Limiter) PerMinute() int {
	return l.windows[len(l.windows)-1].Ceiling
}

// Admit blocks until n units fit in every window and records them.
// Requests larger than MaxAdmission are admitted in chunks.
// The only error is ctx's, returned when ctx ends while waiting.
func (l *Limiter) Admit(ctx context.Context, n int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit := l.MaxAdmission()
	for n > 0 {
		chunk := min(n, limit)
		if err := l.admit(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

func (l *Limiter) admit(ctx context.Context, n int) error {
	for {
		now := l.now()
		var wait time.Duration
		var blocking string
		for _, w := range l.windows {
			w.prune(now)
			if d := w.waitFor(now, n); d > wait {
				wait = d
				blocking = w.Name
			}
		}

		if wait <= 0 {
			for _, w := range l.windows {
				w.log = append(w.log, admission{at: now, units: n})
			}
			return nil
		}

		if l.onWait != nil {
			l.onWait(blocking, wait)
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
