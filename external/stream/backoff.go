package stream

import "time"

const DefaultMinInterval = 10 * time.Second

// BackoffPolicy enforces a floor between the starts of two consecutive
// connection attempts.
type BackoffPolicy struct {
	MinInterval time.Duration
}

// Delay returns how long to wait before the next attempt, given the time
// elapsed since the current attempt started.
func (p BackoffPolicy) Delay(elapsed time.Duration) time.Duration {
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= p.MinInterval {
		return 0
	}
	return p.MinInterval - elapsed
}
