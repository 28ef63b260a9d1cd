package course

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aktamov/davomat/core"
)

type (
	// Repository is the persistent store for courses. Every method that
	// guards on an expected prior state returns a bool: false means the
	// guard did not match (someone else already handled it) and nothing
	// was written. That outcome is benign, not an error.
	Repository interface {
		GetCourse(id int) (Course, error)
		GetCourseByInvite(code string) (Course, error)
		// GetOpenCourseByMember finds the member's course in a
		// non-terminal status (setup/active/appeal), if any.
		GetOpenCourseByMember(memberID int) (Course, error)
		CreateCourse(c Course) (Course, error)

		// ActivateCourse consumes the enrollment link:
		// setup → active, guarded on status=setup.
		ActivateCourse(id, cycleDay int, intake TimeOfDay, startDate time.Time) (bool, error)
		SetRegistrationMessage(id int, messageID int64) error

		UpdateCurrentDay(id, day int) error
		RecordLate(id, lateCount int, lateDates []time.Time) error
		// ExtendCourse bumps total_days once, guarded on
		// status=active AND extended=false.
		ExtendCourse(id, newTotal int) (bool, error)

		// CompleteIfActive: active → completed.
		CompleteIfActive(id int) (bool, error)
		// RefuseIfActive: active → refused with a reason and an optional
		// appeal deadline.
		RefuseIfActive(id int, reason RemovalReason, appealDeadline *time.Time) (bool, error)
		// RefuseWithDayRollback refuses an active course and rolls
		// current_day back in the same conditional update, so a crash can
		// never leave the day advanced on a refused course.
		RefuseWithDayRollback(id, day int, reason RemovalReason, appealDeadline *time.Time) (bool, error)

		// StartAppeal: refused → appeal, clearing the appeal deadline.
		StartAppeal(id int) (bool, error)
		SaveAppealEvidence(id int, video, text string) error
		// AcceptAppeal: appeal → active; sets appeal_count, clears
		// evidence, removal reason and deadline.
		AcceptAppeal(id, newAppealCount int) (bool, error)
		// DeclineAppeal: appeal → refused; sets appeal_count and the
		// removal reason, clears evidence.
		DeclineAppeal(id, newAppealCount int, reason RemovalReason) (bool, error)

		QueryActiveInWindow(day time.Time, from, to TimeOfDay) ([]Course, error)
		QueryCoursesByStatus(status Status) ([]Course, error)
		QueryRefusedWithExpiredAppeal(now time.Time) ([]Course, error)
		// QueryEndedMemberIDs returns the ids of members whose course
		// reached refused/completed before the cutoff.
		QueryEndedMemberIDs(memberIDs []int, before time.Time) (map[int]bool, error)

		QueryAbandonedSetup(before time.Time) ([]Course, error)
		CountCoursesByMember(memberID int) (int, error)
		DeleteCourse(id int) error
		ExpireCourses(ids []int) error
	}

	// Service drives the course lifecycle state machine and the
	// strike/appeal policy.
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

func (svc *Service) Get(id int) (Course, error) {
	return svc.repo.GetCourse(id)
}

func (svc *Service) GetByInvite(code string) (Course, error) {
	return svc.repo.GetCourseByInvite(core.CleanString(code, true))
}

func (svc *Service) OpenByMember(memberID int) (Course, error) {
	return svc.repo.GetOpenCourseByMember(memberID)
}

// Enroll creates a setup course with a fresh one-shot enrollment link.
// A member with an open course cannot enroll again.
func (svc *Service) Enroll(memberID int) (Course, error) {
	if _, err := svc.repo.GetOpenCourseByMember(memberID); err == nil {
		return Course{}, ErrCourseExists
	} else if err != ErrNotFound {
		return Course{}, err
	}

	now := svc.clock.Now()
	c := Course{
		MemberID:   memberID,
		Status:     StatusSetup,
		InviteCode: uuid.NewString(),
		TotalDays:  svc.prog.TotalDays,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateCourse(c)
}

// Activate consumes the enrollment link and starts the program: the member
// picked a cycle day and a daily time. Racing activations lose benignly.
func (svc *Service) Activate(c Course, cycleDay int, intake TimeOfDay, startDate time.Time) error {
	if c.InviteUsed {
		return ErrInviteUsed
	}
	ok, err := svc.repo.ActivateCourse(c.ID, cycleDay, intake, startDate)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrAlreadyHandled
	}
	svc.logger.Info(fmt.Sprintf("course activated: id=%d member=%d intake=%s", c.ID, c.MemberID, intake))
	return nil
}

// CheckWindow classifies now against the course's daily window.
func (svc *Service) CheckWindow(c Course) (WindowStatus, time.Time) {
	if c.IntakeAt == nil {
		return WindowClosed, time.Time{}
	}
	return CheckWindow(*c.IntakeAt, svc.clock.Now(), svc.prog.WindowBefore, svc.prog.WindowAfter)
}

// ClaimDay advances progress by one day and returns the new day number.
// Rollback on a final strike is the repository's single-update concern; see
// RemoveForStrikes.
func (svc *Service) ClaimDay(c Course) (int, error) {
	day := c.CurrentDay + 1
	if err := svc.repo.UpdateCurrentDay(c.ID, day); err != nil {
		return 0, err
	}
	return day, nil
}

// MaxStrikes is the dynamic removal threshold: every accepted appeal buys
// one extra strike.
func (svc *Service) MaxStrikes(c Course) int {
	return svc.prog.BaseMaxStrikes + c.AppealCount
}

// RecordLate appends one lateness strike. Returns the new count and dates.
func (svc *Service) RecordLate(c Course) (int, []time.Time, error) {
	now := svc.clock.Now()
	count := c.LateCount + 1
	dates := append(append([]time.Time(nil), c.LateDates...), now)
	if err := svc.repo.RecordLate(c.ID, count, dates); err != nil {
		return 0, nil, err
	}
	svc.logger.Info(fmt.Sprintf("late strike %d recorded for course id=%d", count, c.ID))
	return count, dates, nil
}

// LateToday reports whether a strike has already been recorded on now's
// calendar date (the submission handler and the scheduler sweep can both
// observe the same late day).
func (svc *Service) LateToday(c Course) bool {
	y, m, d := svc.clock.Now().Date()
	for _, t := range c.LateDates {
		ty, tm, td := t.Date()
		if ty == y && tm == m && td == d {
			return true
		}
	}
	return false
}

// RemoveForStrikes refuses the course for hitting the strike threshold,
// rolling current_day back to originalDay in the same atomic update: the
// strike day does not count toward progress. Sets the appeal deadline.
func (svc *Service) RemoveForStrikes(c Course, originalDay int) error {
	deadline := svc.NextDeadline(c)
	ok, err := svc.repo.RefuseWithDayRollback(c.ID, originalDay, ReasonMaxStrikes, &deadline)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrAlreadyHandled
	}
	svc.logger.Info(fmt.Sprintf("final strike: course id=%d refused, day rolled back to %d", c.ID, originalDay))
	return nil
}

// Complete marks the course completed, only if it is still active (a
// scheduler sweep may have refused it in the meantime).
func (svc *Service) Complete(id int) error {
	ok, err := svc.repo.CompleteIfActive(id)
	if err != nil {
		return err
	}
	if !ok {
		svc.logger.Warn(fmt.Sprintf("course not completed (no longer active): id=%d", id))
		return core.ErrAlreadyHandled
	}
	svc.logger.Info(fmt.Sprintf("course completed: id=%d", id))
	return nil
}

// Refuse removes an active course for the given reason. Appealable reasons
// get an appeal deadline so the member knows how long the button lives.
func (svc *Service) Refuse(c Course, reason RemovalReason) error {
	var deadline *time.Time
	if reason.Appealable() {
		d := svc.NextDeadline(c)
		deadline = &d
	}
	ok, err := svc.repo.RefuseIfActive(c.ID, reason, deadline)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrAlreadyHandled
	}
	svc.logger.Info(fmt.Sprintf("course refused: id=%d reason=%s", c.ID, reason))
	return nil
}

// StartAppeal moves refused → appeal. The appeal-count cap is deliberately
// not enforced here; eligibility decides whether the button is offered at
// all (see CanAppeal).
func (svc *Service) StartAppeal(id int) error {
	ok, err := svc.repo.StartAppeal(id)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrAlreadyHandled
	}
	svc.logger.Info(fmt.Sprintf("appeal started for course id=%d", id))
	return nil
}

// CanAppeal reports whether the appeal affordance should be offered.
func (svc *Service) CanAppeal(c Course) bool {
	return c.AppealCount < svc.prog.MaxAppeals
}

func (svc *Service) SaveAppealEvidence(id int, video, text string) error {
	return svc.repo.SaveAppealEvidence(id, video, text)
}

func (svc *Service) SetRegistrationMessage(id int, messageID int64) error {
	return svc.repo.SetRegistrationMessage(id, messageID)
}

// AcceptAppeal reinstates the course: appeal → active, appeal_count+1,
// stored evidence cleared.
func (svc *Service) AcceptAppeal(c Course) error {
	ok, err := svc.repo.AcceptAppeal(c.ID, c.AppealCount+1)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrAlreadyHandled
	}
	svc.logger.Info(fmt.Sprintf("appeal accepted for course id=%d (count=%d)", c.ID, c.AppealCount+1))
	return nil
}

// DeclineAppeal sends the course back to refused; the attempt is consumed.
func (svc *Service) DeclineAppeal(c Course) error {
	return svc.closeAppeal(c, ReasonAppealDeclined)
}

// ExpireAppeal handles a reviewer who never responded: same transition as a
// decline, and the attempt is consumed here too (one consistent rule).
func (svc *Service) ExpireAppeal(c Course) error {
	return svc.closeAppeal(c, ReasonAppealExpired)
}

func (svc *Service) closeAppeal(c Course, reason RemovalReason) error {
	ok, err := svc.repo.DeclineAppeal(c.ID, c.AppealCount+1, reason)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrAlreadyHandled
	}
	svc.logger.Info(fmt.Sprintf("appeal closed for course id=%d reason=%s", c.ID, reason))
	return nil
}

// Extend lengthens the program once (21 → 28 days by default).
func (svc *Service) Extend(c Course) error {
	ok, err := svc.repo.ExtendCourse(c.ID, svc.prog.ExtendedDays)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrAlreadyHandled
	}
	svc.logger.Info(fmt.Sprintf("course extended: id=%d total=%d", c.ID, svc.prog.ExtendedDays))
	return nil
}

// ActiveInWindow lists active courses whose daily time falls in [from, to),
// wrapping past midnight when to precedes from.
func (svc *Service) ActiveInWindow(from, to TimeOfDay) ([]Course, error) {
	return svc.repo.QueryActiveInWindow(svc.clock.Now(), from, to)
}

func (svc *Service) ByStatus(status Status) ([]Course, error) {
	return svc.repo.QueryCoursesByStatus(status)
}

func (svc *Service) RefusedWithExpiredAppeal() ([]Course, error) {
	return svc.repo.QueryRefusedWithExpiredAppeal(svc.clock.Now())
}

// Expire finalizes refused courses whose appeal window lapsed unused.
func (svc *Service) Expire(ids []int) error {
	return svc.repo.ExpireCourses(ids)
}

// AbandonedSetup lists enrollments that never finished setup before the
// retention cutoff.
func (svc *Service) AbandonedSetup() ([]Course, error) {
	return svc.repo.QueryAbandonedSetup(svc.clock.Now().Add(-svc.prog.SetupRetention))
}

// Purge removes an abandoned setup course and reports whether the member
// has any other course left.
func (svc *Service) Purge(c Course) (bool, error) {
	if err := svc.repo.DeleteCourse(c.ID); err != nil {
		return false, err
	}
	n, err := svc.repo.CountCoursesByMember(c.MemberID)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// EndedMembers filters memberIDs down to those whose course ended before
// the cleanup cutoff.
func (svc *Service) EndedMembers(memberIDs []int) (map[int]bool, error) {
	return svc.repo.QueryEndedMemberIDs(memberIDs, svc.clock.Now().Add(-svc.prog.CleanupAfter))
}

// NextDeadline is the next scheduled-time-minus-leeway ahead of now.
func (svc *Service) NextDeadline(c Course) time.Time {
	return NextDeadline(c.IntakeAt, svc.clock.Now(), svc.prog.DeadlineLeeway)
}

// ResponseDeadline is tomorrow's scheduled time minus leeway, the time
// budget for reviewer decisions and reshoots.
func (svc *Service) ResponseDeadline(c Course) time.Time {
	return DeadlineTomorrow(c.IntakeAt, svc.clock.Now(), svc.prog.DeadlineLeeway)
}
