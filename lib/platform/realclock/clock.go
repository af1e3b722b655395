package realclock

import (
	"time"

	"example.com/peerwire/lib/core/adapter/clock"
)

// Clock reads the wall clock. Sessions use it for retry deadlines and the
// progress sampler for its interval.
type Clock struct{}

var _ clock.Clock = Clock{}

func (Clock) Now() time.Time { return time.Now() }

func (Clock) After(d time.Duration) <-chan time.Time { return time.After(d) }
