// Package clock provides an injectable time source so that streak and
// session logic can be tested deterministically across day boundaries.
package clock

import "time"

// DateLayout is the calendar-day format used everywhere a date (not a
// timestamp) is stored: reading sessions and the profile's last-read day.
const DateLayout = "2006-01-02"

// Clock provides "now" and "today" in the reader's local timezone.
type Clock interface {
	Now() time.Time
	Today() string
}

// System is the production clock backed by time.Now.
type System struct{}

func NewSystem() System {
	return System{}
}

func (System) Now() time.Time {
	return time.Now()
}

func (System) Today() string {
	return time.Now().Format(DateLayout)
}

// DaysBetween returns the number of calendar days from one date string to
// another. Malformed dates count as an arbitrarily large gap, which makes
// the streak logic reset rather than crash on corrupted state.
func DaysBetween(from, to string) int {
	a, errA := time.Parse(DateLayout, from)
	b, errB := time.Parse(DateLayout, to)
	if errA != nil || errB != nil {
		return 1 << 20
	}
	return int(b.Sub(a).Hours() / 24)
}
