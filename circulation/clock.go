package circulation

import (
	"time"
)

// Clock supplies "today" to the Engine. Injecting it instead of reading the
// wall clock at the point of use keeps borrow dates and fine computations
// deterministic under test.
type Clock interface {
	Today() Date
	Now() time.Time
}

// SystemClock reads the server-local wall clock; Today truncates it to day
// granularity.
type SystemClock struct{}

// Today returns the current server-local calendar date.
func (SystemClock) Today() Date {
	return DateOf(time.Now())
}

// Now returns the current instant, used to stamp journal entries.
func (SystemClock) Now() time.Time {
	return time.Now()
}
