package intake

import (
	"errors"
	"time"
)

var (
	// errors
	ErrNotFound  = errors.New("intake log not found")
	ErrLogExists = errors.New("intake already logged for this day")
)

// LogStatus is the per-day verification state of a submission.
type LogStatus string

const (
	// StatusTaken is the happy path: the video was accepted, the day counts.
	StatusTaken LogStatus = "taken"
	// StatusPendingReview means automatic verification did not settle it and
	// a human decision is outstanding.
	StatusPendingReview LogStatus = "pending_review"
	// StatusReshoot means the reviewer asked for a new video before the
	// reshoot deadline.
	StatusReshoot  LogStatus = "reshoot"
	StatusRejected LogStatus = "rejected"
	StatusMissed   LogStatus = "missed"
)

// Log is one program-day's submission record for a course. Day is 1-based.
// ScheduledAt is the instant the submission counted against, which is
// yesterday's occurrence for post-midnight submissions on evening schedules.
type Log struct {
	ID       int
	CourseID int
	Day      int

	ScheduledAt time.Time
	TakenAt     time.Time
	Status      LogStatus

	DelayMinutes int
	MediaRef     string
	VerifiedBy   string
	Confidence   float64

	ReviewStartedAt *time.Time
	ReviewDeadline  *time.Time
	ReshootDeadline *time.Time

	// ReviewMessageID references the review-request message in the member's
	// thread, so closure can strip its buttons later.
	ReviewMessageID int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Verifiers recorded in VerifiedBy.
const (
	VerifierClassifier = "classifier"
	VerifierReviewer   = "reviewer"
)
