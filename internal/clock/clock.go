package clock

import "time"

// Clock supplies the current time. Injected so time-window logic can be
// tested against fixed instants.
type Clock interface {
	Now() time.Time
}

// Real reads the system clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Fixed always returns the same instant. Intended for tests.
type Fixed struct {
	Time time.Time
}

func (f Fixed) Now() time.Time { return f.Time }
