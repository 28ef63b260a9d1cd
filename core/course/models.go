package course

import (
	"errors"
	"fmt"
	"time"
)

var (
	// errors
	ErrNotFound     = errors.New("course not found")
	ErrInviteUsed   = errors.New("enrollment link already used")
	ErrCourseExists = errors.New("member already has an open course")
)

// Status is the course lifecycle state. Transitions happen only through the
// guarded repository operations; see Service.
type Status string

const (
	StatusSetup     Status = "setup"
	StatusActive    Status = "active"
	StatusAppeal    Status = "appeal"
	StatusRefused   Status = "refused"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// OpenStatuses are the non-terminal states; a member holds at most one
// course in any of them.
var OpenStatuses = []Status{StatusSetup, StatusActive, StatusAppeal}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

// RemovalReason records why a course was refused.
type RemovalReason string

const (
	ReasonNoVideo        RemovalReason = "no_video"
	ReasonMaxStrikes     RemovalReason = "max_strikes"
	ReasonReviewerReject RemovalReason = "reviewer_reject"
	ReasonReviewDeadline RemovalReason = "review_deadline"
	ReasonReshootExpired RemovalReason = "reshoot_expired"
	ReasonAppealDeclined RemovalReason = "appeal_declined"
	ReasonAppealExpired  RemovalReason = "appeal_expired"
)

// Appealable reports whether this removal grants the member an appeal.
func (r RemovalReason) Appealable() bool {
	return r == ReasonNoVideo || r == ReasonMaxStrikes
}

// TimeOfDay is a wall-clock time without a date, the member's chosen daily
// submission time.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (seconds tolerated and ignored).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("parsing time of day %q: %w", s, err)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return t, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On pins the time of day onto the calendar date of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

// Before compares two times of day.
func (t TimeOfDay) Before(o TimeOfDay) bool {
	return t.Hour < o.Hour || (t.Hour == o.Hour && t.Minute < o.Minute)
}

// Course is one member's enrollment in the compliance program.
// CurrentDay counts claimed days; 0 means not yet started. IntakeAt is nil
// until the member picks a schedule during setup.
type Course struct {
	ID       int
	MemberID int
	Status   Status

	InviteCode string
	InviteUsed bool

	CycleDay  int // day of the member's cycle at program start, 1..28
	IntakeAt  *TimeOfDay
	StartDate time.Time // date only, program-local midnight

	CurrentDay int
	TotalDays  int
	Extended   bool

	LateCount int
	LateDates []time.Time

	AppealCount    int
	AppealVideo    string
	AppealText     string
	AppealDeadline *time.Time

	RemovalReason RemovalReason

	RegistrationMessageID int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Done reports whether every program day has been claimed.
func (c Course) Done() bool {
	return c.CurrentDay >= c.TotalDays
}
