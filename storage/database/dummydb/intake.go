package dummydb

import (
	"time"

	"github.com/aktamov/davomat/core/intake"
)

type intakeRepository struct {
	db *intakeTable
}

var _ intake.Repository = (*intakeRepository)(nil) // interface compliance check

func NewIntakeRepository(db *DB) intake.Repository {
	return &intakeRepository{db: db.intake}
}

func (repo *intakeRepository) query() []intake.Log {
	logs := make([]intake.Log, 0, len(repo.db.table))
	for _, l := range repo.db.table {
		logs = append(logs, *l)
	}
	return logs
}

func (repo *intakeRepository) GetLog(id int) (intake.Log, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if l, ok := repo.db.table[id]; ok {
		return *l, nil
	}
	return intake.Log{}, intake.ErrNotFound
}

func (repo *intakeRepository) GetLogByCourseDay(courseID, day int) (intake.Log, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, l := range repo.query() {
		if l.CourseID == courseID && l.Day == day {
			return l, nil
		}
	}
	return intake.Log{}, intake.ErrNotFound
}

func (repo *intakeRepository) GetLogByCourseStatus(courseID int, status intake.LogStatus) (intake.Log, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, l := range repo.query() {
		if l.CourseID == courseID && l.Status == status {
			return l, nil
		}
	}
	return intake.Log{}, intake.ErrNotFound
}

func (repo *intakeRepository) HasLog(courseID, day int) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, l := range repo.query() {
		if l.CourseID == courseID && l.Day == day {
			return true, nil
		}
	}
	return false, nil
}

func (repo *intakeRepository) CreateLog(l intake.Log) (intake.Log, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pk++
	l.ID = repo.db.pk
	repo.db.table[l.ID] = &l
	return l, nil
}

func (repo *intakeRepository) UpdateLogStatusIf(id int, expected, next intake.LogStatus, verifiedBy string) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	l, ok := repo.db.table[id]
	if !ok || l.Status != expected {
		return false, nil
	}
	l.Status = next
	if verifiedBy != "" {
		l.VerifiedBy = verifiedBy
	}
	l.UpdatedAt = time.Now()
	return true, nil
}

func (repo *intakeRepository) SetReshoot(id int, deadline time.Time) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	l, ok := repo.db.table[id]
	if !ok || l.Status != intake.StatusPendingReview {
		return false, nil
	}
	l.Status = intake.StatusReshoot
	l.ReshootDeadline = &deadline
	l.UpdatedAt = time.Now()
	return true, nil
}

func (repo *intakeRepository) UpdateAfterReshoot(id int, mediaRef string, takenAt time.Time, next intake.LogStatus, reviewDeadline *time.Time) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	l, ok := repo.db.table[id]
	if !ok || l.Status != intake.StatusReshoot {
		return false, nil
	}
	l.Status = next
	l.MediaRef = mediaRef
	l.TakenAt = takenAt
	l.ReshootDeadline = nil
	l.ReviewDeadline = reviewDeadline
	if next == intake.StatusPendingReview {
		l.ReviewStartedAt = &takenAt
	}
	l.UpdatedAt = time.Now()
	return true, nil
}

func (repo *intakeRepository) SetReviewMessage(id int, messageID int64) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	l, ok := repo.db.table[id]
	if !ok {
		return intake.ErrNotFound
	}
	l.ReviewMessageID = messageID
	return nil
}

func (repo *intakeRepository) QueryExpiredReviews(now time.Time) ([]intake.Log, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var logs []intake.Log
	for _, l := range repo.query() {
		if l.Status == intake.StatusPendingReview && l.ReviewDeadline != nil && l.ReviewDeadline.Before(now) {
			logs = append(logs, l)
		}
	}
	return logs, nil
}

func (repo *intakeRepository) QueryExpiredReshoots(now time.Time) ([]intake.Log, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var logs []intake.Log
	for _, l := range repo.query() {
		if l.Status == intake.StatusReshoot && l.ReshootDeadline != nil && l.ReshootDeadline.Before(now) {
			logs = append(logs, l)
		}
	}
	return logs, nil
}

func (repo *intakeRepository) DeleteLogsByCourse(courseID int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, l := range repo.db.table {
		if l.CourseID == courseID {
			delete(repo.db.table, id)
		}
	}
	return nil
}
