package course

import "time"

// WindowStatus classifies "now" against a course's daily submission window.
type WindowStatus string

const (
	WindowEarly  WindowStatus = "early"
	WindowOpen   WindowStatus = "open"
	WindowClosed WindowStatus = "closed"
)

// CheckWindow classifies now against the window [intake-before, intake+after].
//
// Because `after` may exceed the remainder of the day, yesterday's window is
// checked with the same offsets: intake 23:30 with after=2h keeps the window
// open until 01:30. When the result is WindowEarly the second return value is
// the instant today's window opens; otherwise it is the zero time.
//
// Pure function: now's location decides the calendar day.
func CheckWindow(intake TimeOfDay, now time.Time, before, after time.Duration) (WindowStatus, time.Time) {
	scheduledToday := intake.On(now)

	todayStart := scheduledToday.Add(-before)
	todayEnd := scheduledToday.Add(after)
	if !now.Before(todayStart) && !now.After(todayEnd) {
		return WindowOpen, time.Time{}
	}

	// midnight wraparound: still inside yesterday's window?
	scheduledYesterday := scheduledToday.AddDate(0, 0, -1)
	yesterdayStart := scheduledYesterday.Add(-before)
	yesterdayEnd := scheduledYesterday.Add(after)
	if !now.Before(yesterdayStart) && !now.After(yesterdayEnd) {
		return WindowOpen, time.Time{}
	}

	if now.Before(todayStart) {
		return WindowEarly, todayStart
	}
	return WindowClosed, time.Time{}
}

// ScheduledFor returns the scheduled instant a submission at now counts
// against: today's occurrence of intake, or yesterday's when now still
// precedes today's window start (a post-midnight submission for an evening
// schedule).
func ScheduledFor(intake TimeOfDay, now time.Time, before time.Duration) time.Time {
	scheduledToday := intake.On(now)
	if now.Before(scheduledToday.Add(-before)) {
		return scheduledToday.AddDate(0, 0, -1)
	}
	return scheduledToday
}

// NextDeadline returns the next occurrence of intake minus leeway that is
// still ahead of now. Used for appeal deadlines: the member must act before
// the run-up to her next scheduled submission.
func NextDeadline(intake *TimeOfDay, now time.Time, leeway time.Duration) time.Time {
	if intake == nil {
		return now.Add(24 * time.Hour)
	}
	todayDeadline := intake.On(now).Add(-leeway)
	if now.Before(todayDeadline) {
		return todayDeadline
	}
	return intake.On(now.AddDate(0, 0, 1)).Add(-leeway)
}

// DeadlineTomorrow returns tomorrow's occurrence of intake minus leeway.
// Used for review and reshoot deadlines: the reviewer (or the member) has
// until shortly before the next scheduled submission.
func DeadlineTomorrow(intake *TimeOfDay, now time.Time, leeway time.Duration) time.Time {
	tomorrow := now.AddDate(0, 0, 1)
	if intake == nil {
		t := TimeOfDay{Hour: now.Hour(), Minute: now.Minute()}
		return t.On(tomorrow).Add(-leeway)
	}
	return intake.On(tomorrow).Add(-leeway)
}
