package clock

import "time"

// Clock abstracts time readings and delayed callbacks so that components
// which re-arm timers, like the lobby retry sweep, can be tested without
// waiting for real time to pass.
type Clock interface {
	Now() time.Time

	// AfterFunc calls f in its own goroutine after d has elapsed. The
	// returned Timer can be stopped before it fires.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a handle to a pending AfterFunc callback.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call
	// stopped the timer before it fired.
	Stop() bool
}

// New returns a Clock backed by the time package.
func New() Clock {
	return systemClock{}
}

type systemClock struct{}

func (c systemClock) Now() time.Time {
	return time.Now()
}

func (c systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return systemTimer{time.AfterFunc(d, f)}
}

type systemTimer struct {
	timer *time.Timer
}

func (t systemTimer) Stop() bool {
	return t.timer.Stop()
}

var _ Clock = systemClock{}
