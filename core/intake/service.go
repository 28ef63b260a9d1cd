package intake

import (
	"fmt"
	"time"

	"github.com/aktamov/davomat/core"
	"github.com/aktamov/davomat/core/course"
)

type (
	// Repository stores per-day submission logs. Guarded methods return
	// false when the expected prior status no longer holds; see
	// course.Repository for the convention.
	Repository interface {
		GetLog(id int) (Log, error)
		GetLogByCourseDay(courseID, day int) (Log, error)
		// GetLogByCourseStatus finds the course's single log in the given
		// status, if any (at most one log per course is ever in
		// pending_review or reshoot).
		GetLogByCourseStatus(courseID int, status LogStatus) (Log, error)
		HasLog(courseID, day int) (bool, error)
		CreateLog(l Log) (Log, error)

		UpdateLogStatusIf(id int, expected, next LogStatus, verifiedBy string) (bool, error)
		// SetReshoot: pending_review → reshoot with a deadline.
		SetReshoot(id int, deadline time.Time) (bool, error)
		// UpdateAfterReshoot: reshoot → taken or back to pending_review,
		// replacing the media and timestamps.
		UpdateAfterReshoot(id int, mediaRef string, takenAt time.Time, next LogStatus, reviewDeadline *time.Time) (bool, error)
		SetReviewMessage(id int, messageID int64) error

		QueryExpiredReviews(now time.Time) ([]Log, error)
		QueryExpiredReshoots(now time.Time) ([]Log, error)
		DeleteLogsByCourse(courseID int) error
	}

	// Service records daily submissions and drives the per-day review and
	// reshoot transitions.
	Service struct {
		repo   Repository
		clock  core.Clock
		prog   core.ProgramConfig
		logger core.Logger
	}
)

func NewService(repo Repository, clock core.Clock, prog core.ProgramConfig, logger core.Logger) *Service {
	return &Service{repo: repo, clock: clock, prog: prog, logger: logger}
}

func (svc *Service) Get(id int) (Log, error) {
	return svc.repo.GetLog(id)
}

// TodayLog returns the log for the course's next unclaimed day, if one was
// already recorded.
func (svc *Service) TodayLog(c course.Course) (Log, error) {
	return svc.repo.GetLogByCourseDay(c.ID, c.CurrentDay+1)
}

func (svc *Service) ByStatus(c course.Course, status LogStatus) (Log, error) {
	return svc.repo.GetLogByCourseStatus(c.ID, status)
}

func (svc *Service) HasLog(courseID, day int) (bool, error) {
	return svc.repo.HasLog(courseID, day)
}

// SubmittedToday reports whether the course's last claimed day was logged
// against today's scheduled instant. Needed because after an approval the
// day counter has moved on, so a same-day duplicate would otherwise look
// like the next day's submission.
func (svc *Service) SubmittedToday(c course.Course) (bool, error) {
	if c.IntakeAt == nil || c.CurrentDay == 0 {
		return false, nil
	}
	l, err := svc.repo.GetLogByCourseDay(c.ID, c.CurrentDay)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	scheduled := course.ScheduledFor(*c.IntakeAt, svc.clock.Now(), svc.prog.WindowBefore)
	return l.ScheduledAt.Equal(scheduled), nil
}

// RecordIntake logs a submission for the course's next day. The scheduled
// instant is today's occurrence of the intake time, or yesterday's for a
// post-midnight submission. Approved videos are logged taken; everything
// else goes to pending_review with a review deadline.
func (svc *Service) RecordIntake(c course.Course, mediaRef string, d Decision) (Log, error) {
	if c.IntakeAt == nil {
		return Log{}, fmt.Errorf("course %d has no intake schedule", c.ID)
	}

	day := c.CurrentDay + 1
	if exists, err := svc.repo.HasLog(c.ID, day); err != nil {
		return Log{}, err
	} else if exists {
		return Log{}, ErrLogExists
	}

	now := svc.clock.Now()
	scheduledAt := course.ScheduledFor(*c.IntakeAt, now, svc.prog.WindowBefore)
	delay := int(now.Sub(scheduledAt).Minutes())
	if delay < 0 {
		delay = 0
	}

	l := Log{
		CourseID:     c.ID,
		Day:          day,
		ScheduledAt:  scheduledAt,
		TakenAt:      now,
		DelayMinutes: delay,
		MediaRef:     mediaRef,
		Confidence:   d.Confidence,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if d.Approved {
		l.Status = StatusTaken
		l.VerifiedBy = VerifierClassifier
	} else {
		l.Status = StatusPendingReview
		l.ReviewStartedAt = &now
		deadline := course.DeadlineTomorrow(c.IntakeAt, now, svc.prog.DeadlineLeeway)
		l.ReviewDeadline = &deadline
	}

	l, err := svc.repo.CreateLog(l)
	if err != nil {
		return Log{}, err
	}
	svc.logger.Info(fmt.Sprintf("intake recorded: course=%d day=%d status=%s delay=%dm", c.ID, day, l.Status, delay))
	return l, nil
}

// Late reports whether the submission exceeded the lateness threshold.
func (svc *Service) Late(l Log) bool {
	return time.Duration(l.DelayMinutes)*time.Minute > svc.prog.LateThreshold
}

// Confirm settles a pending review as accepted. Exactly one of Confirm and
// Reject can win for a given log.
func (svc *Service) Confirm(id int) error {
	return svc.settleReview(id, StatusTaken)
}

// Reject settles a pending review as refused.
func (svc *Service) Reject(id int) error {
	return svc.settleReview(id, StatusRejected)
}

func (svc *Service) settleReview(id int, next LogStatus) error {
	ok, err := svc.repo.UpdateLogStatusIf(id, StatusPendingReview, next, VerifierReviewer)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrAlreadyHandled
	}
	svc.logger.Info(fmt.Sprintf("review settled: log=%d status=%s", id, next))
	return nil
}

// RequestReshoot gives the member until shortly before her next scheduled
// submission to send a replacement video.
func (svc *Service) RequestReshoot(c course.Course, logID int) (time.Time, error) {
	deadline := course.DeadlineTomorrow(c.IntakeAt, svc.clock.Now(), svc.prog.DeadlineLeeway)
	ok, err := svc.repo.SetReshoot(logID, deadline)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, core.ErrAlreadyHandled
	}
	return deadline, nil
}

// AcceptReshoot replaces the media on a reshoot log and marks the day taken.
func (svc *Service) AcceptReshoot(logID int, mediaRef string) error {
	ok, err := svc.repo.UpdateAfterReshoot(logID, mediaRef, svc.clock.Now(), StatusTaken, nil)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrAlreadyHandled
	}
	return nil
}

// ReshootPendingReview replaces the media but sends the log back to human
// review with a fresh deadline.
func (svc *Service) ReshootPendingReview(c course.Course, logID int, mediaRef string) error {
	now := svc.clock.Now()
	deadline := course.DeadlineTomorrow(c.IntakeAt, now, svc.prog.DeadlineLeeway)
	ok, err := svc.repo.UpdateAfterReshoot(logID, mediaRef, now, StatusPendingReview, &deadline)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrAlreadyHandled
	}
	return nil
}

// ExpireReview marks an undecided review missed.
func (svc *Service) ExpireReview(id int) error {
	ok, err := svc.repo.UpdateLogStatusIf(id, StatusPendingReview, StatusMissed, "")
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrAlreadyHandled
	}
	return nil
}

// ExpireReshoot marks a reshoot that never arrived missed.
func (svc *Service) ExpireReshoot(id int) error {
	ok, err := svc.repo.UpdateLogStatusIf(id, StatusReshoot, StatusMissed, "")
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrAlreadyHandled
	}
	return nil
}

func (svc *Service) SetReviewMessage(id int, messageID int64) error {
	return svc.repo.SetReviewMessage(id, messageID)
}

func (svc *Service) ExpiredReviews() ([]Log, error) {
	return svc.repo.QueryExpiredReviews(svc.clock.Now())
}

func (svc *Service) ExpiredReshoots() ([]Log, error) {
	return svc.repo.QueryExpiredReshoots(svc.clock.Now())
}
