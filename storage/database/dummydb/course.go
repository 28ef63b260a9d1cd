package dummydb

import (
	"time"

	"github.com/aktamov/davomat/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) query() []course.Course {
	courses := make([]course.Course, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		courses = append(courses, *c)
	}
	return courses
}

func (repo *courseRepository) GetCourse(id int) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.table[id]; ok {
		return *c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetCourseByInvite(code string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.query() {
		if c.InviteCode == code {
			return c, nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetOpenCourseByMember(memberID int) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.query() {
		if c.MemberID != memberID {
			continue
		}
		for _, s := range course.OpenStatuses {
			if c.Status == s {
				return c, nil
			}
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) CreateCourse(c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pk++
	c.ID = repo.db.pk
	repo.db.table[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) ActivateCourse(id, cycleDay int, intakeAt course.TimeOfDay, startDate time.Time) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.table[id]
	if !ok || c.Status != course.StatusSetup || c.InviteUsed {
		return false, nil
	}
	c.Status = course.StatusActive
	c.InviteUsed = true
	c.CycleDay = cycleDay
	c.IntakeAt = &intakeAt
	c.StartDate = startDate
	c.UpdatedAt = time.Now()
	return true, nil
}

func (repo *courseRepository) SetRegistrationMessage(id int, messageID int64) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.table[id]
	if !ok {
		return course.ErrNotFound
	}
	c.RegistrationMessageID = messageID
	return nil
}

func (repo *courseRepository) UpdateCurrentDay(id, day int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.table[id]
	if !ok {
		return course.ErrNotFound
	}
	c.CurrentDay = day
	c.UpdatedAt = time.Now()
	return nil
}

func (repo *courseRepository) RecordLate(id, lateCount int, lateDates []time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.table[id]
	if !ok {
		return course.ErrNotFound
	}
	c.LateCount = lateCount
	c.LateDates = lateDates
	c.UpdatedAt = time.Now()
	return nil
}

func (repo *courseRepository) ExtendCourse(id, newTotal int) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.table[id]
	if !ok || c.Status != course.StatusActive || c.Extended {
		return false, nil
	}
	c.TotalDays = newTotal
	c.Extended = true
	c.UpdatedAt = time.Now()
	return true, nil
}

func (repo *courseRepository) CompleteIfActive(id int) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.table[id]
	if !ok || c.Status != course.StatusActive {
		return false, nil
	}
	c.Status = course.StatusCompleted
	c.UpdatedAt = time.Now()
	return true, nil
}

func (repo *courseRepository) RefuseIfActive(id int, reason course.RemovalReason, appealDeadline *time.Time) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.table[id]
	if !ok || c.Status != course.StatusActive {
		return false, nil
	}
	c.Status = course.StatusRefused
	c.RemovalReason = reason
	c.AppealDeadline = appealDeadline
	c.UpdatedAt = time.Now()
	return true, nil
}

func (repo *courseRepository) RefuseWithDayRollback(id, day int, reason course.RemovalReason, appealDeadline *time.Time) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.table[id]
	if !ok || c.Status != course.StatusActive {
		return false, nil
	}
	c.Status = course.StatusRefused
	c.RemovalReason = reason
	c.AppealDeadline = appealDeadline
	c.CurrentDay = day
	c.UpdatedAt = time.Now()
	return true, nil
}

func (repo *courseRepository) StartAppeal(id int) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.table[id]
	if !ok || c.Status != course.StatusRefused {
		return false, nil
	}
	c.Status = course.StatusAppeal
	c.AppealDeadline = nil
	c.UpdatedAt = time.Now()
	return true, nil
}

func (repo *courseRepository) SaveAppealEvidence(id int, video, text string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.table[id]
	if !ok {
		return course.ErrNotFound
	}
	c.AppealVideo = video
	c.AppealText = text
	c.UpdatedAt = time.Now()
	return nil
}

func (repo *courseRepository) AcceptAppeal(id, newAppealCount int) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.table[id]
	if !ok || c.Status != course.StatusAppeal {
		return false, nil
	}
	c.Status = course.StatusActive
	c.AppealCount = newAppealCount
	c.AppealVideo = ""
	c.AppealText = ""
	c.AppealDeadline = nil
	c.RemovalReason = ""
	c.UpdatedAt = time.Now()
	return true, nil
}

func (repo *courseRepository) DeclineAppeal(id, newAppealCount int, reason course.RemovalReason) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.table[id]
	if !ok || c.Status != course.StatusAppeal {
		return false, nil
	}
	c.Status = course.StatusRefused
	c.AppealCount = newAppealCount
	c.AppealVideo = ""
	c.AppealText = ""
	c.AppealDeadline = nil
	c.RemovalReason = reason
	c.UpdatedAt = time.Now()
	return true, nil
}

func (repo *courseRepository) QueryActiveInWindow(day time.Time, from, to course.TimeOfDay) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var courses []course.Course
	for _, c := range repo.query() {
		if c.Status != course.StatusActive || c.IntakeAt == nil {
			continue
		}
		if c.StartDate.After(day) {
			continue
		}
		if inRange(*c.IntakeAt, from, to) {
			courses = append(courses, c)
		}
	}
	return courses, nil
}

// inRange reports from <= t < to, wrapping past midnight when to < from.
func inRange(t, from, to course.TimeOfDay) bool {
	if to.Before(from) {
		return !t.Before(from) || t.Before(to)
	}
	return !t.Before(from) && t.Before(to)
}

func (repo *courseRepository) QueryCoursesByStatus(status course.Status) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var courses []course.Course
	for _, c := range repo.query() {
		if c.Status == status {
			courses = append(courses, c)
		}
	}
	return courses, nil
}

func (repo *courseRepository) QueryRefusedWithExpiredAppeal(now time.Time) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var courses []course.Course
	for _, c := range repo.query() {
		if c.Status == course.StatusRefused && c.AppealDeadline != nil && c.AppealDeadline.Before(now) {
			courses = append(courses, c)
		}
	}
	return courses, nil
}

func (repo *courseRepository) QueryEndedMemberIDs(memberIDs []int, before time.Time) (map[int]bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wanted := make(map[int]bool, len(memberIDs))
	for _, id := range memberIDs {
		wanted[id] = true
	}

	ended := make(map[int]bool)
	for _, c := range repo.query() {
		if !wanted[c.MemberID] {
			continue
		}
		switch c.Status {
		case course.StatusRefused, course.StatusCompleted, course.StatusExpired:
			if c.UpdatedAt.Before(before) {
				ended[c.MemberID] = true
			}
		}
	}
	return ended, nil
}

func (repo *courseRepository) QueryAbandonedSetup(before time.Time) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var courses []course.Course
	for _, c := range repo.query() {
		if c.Status == course.StatusSetup && c.CreatedAt.Before(before) {
			courses = append(courses, c)
		}
	}
	return courses, nil
}

func (repo *courseRepository) CountCoursesByMember(memberID int) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var n int
	for _, c := range repo.query() {
		if c.MemberID == memberID {
			n++
		}
	}
	return n, nil
}

func (repo *courseRepository) DeleteCourse(id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.table, id)
	return nil
}

func (repo *courseRepository) ExpireCourses(ids []int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		if c, ok := repo.db.table[id]; ok {
			c.Status = course.StatusExpired
			c.UpdatedAt = time.Now()
		}
	}
	return nil
}
