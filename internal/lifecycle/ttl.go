package lifecycle

import "time"

// NewStateTTL bounds how long a record may sit in NEW before the sweeper
// retires it, so the queue stays bounded even with the consumer offline.
const NewStateTTL = 7 * 24 * time.Hour

// IsStale reports whether a record that entered NEW at enteredNewAt has
// outlived the TTL at now.
func IsStale(enteredNewAt, now time.Time) bool {
	return now.Sub(enteredNewAt) > NewStateTTL
}

// StaleCutoff returns the enteredNewAt threshold below which NEW records are
// stale at now.
func StaleCutoff(now time.Time) time.Time {
	return now.Add(-NewStateTTL)
}
