package core

import "time"

// Clock abstracts "now" so that window math and deadline checks are
// deterministic under test. The production clock pins a fixed timezone:
// every scheduled-time comparison in the system happens in program-local
// time, never in server-local or UTC.
type Clock interface {
	Now() time.Time
}

type zoneClock struct {
	loc *time.Location
}

func NewZoneClock(loc *time.Location) Clock {
	return zoneClock{loc: loc}
}

func (c zoneClock) Now() time.Time {
	return time.Now().In(c.loc)
}
