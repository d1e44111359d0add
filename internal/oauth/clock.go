package oauth

import "time"

// Clock abstracts time for the polling loop and the retry backoff so tests
// can simulate elapsed time without real waiting.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// systemClock is the real-time Clock used outside of tests.
type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock returns a Clock backed by the wall clock.
func SystemClock() Clock { return systemClock{} }
