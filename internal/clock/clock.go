// Package clock provides the time source injected into services, jobs and the
// bot so scheduling decisions can be reproduced in tests.
package clock

import "time"

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Func adapts a plain function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// System returns a Clock backed by time.Now in UTC.
func System() Clock {
	return Func(func() time.Time { return time.Now().UTC() })
}

// Fixed returns a Clock that always reports t.
func Fixed(t time.Time) Clock {
	return Func(func() time.Time { return t })
}
