// Package clock abstracts wall-clock access so that expiration and lateness
// computations are deterministic under test.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System reads the real wall clock in UTC.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Fixed always returns the same instant. Test double.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T }
