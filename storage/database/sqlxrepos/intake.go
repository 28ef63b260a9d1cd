package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aktamov/davomat/core/intake"
)

const logCols = `id, course_id, day, scheduled_at, taken_at, status, delay_minutes, media_ref,
	verified_by, confidence, review_started_at, review_deadline, reshoot_deadline,
	review_message_id, created_at, updated_at`

type logRow struct {
	ID              int       `db:"id"`
	CourseID        int       `db:"course_id"`
	Day             int       `db:"day"`
	ScheduledAt     time.Time `db:"scheduled_at"`
	TakenAt         time.Time `db:"taken_at"`
	Status          string    `db:"status"`
	DelayMinutes    int       `db:"delay_minutes"`
	MediaRef        string    `db:"media_ref"`
	VerifiedBy      string    `db:"verified_by"`
	Confidence      float64   `db:"confidence"`
	ReviewStartedAt null.Time `db:"review_started_at"`
	ReviewDeadline  null.Time `db:"review_deadline"`
	ReshootDeadline null.Time `db:"reshoot_deadline"`
	ReviewMessageID int64     `db:"review_message_id"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

type intakeRepository struct {
	db *sqlx.DB
}

var _ intake.Repository = (*intakeRepository)(nil) // interface compliance check

func NewIntakeRepository(db *sqlx.DB) *intakeRepository {
	return &intakeRepository{db: db}
}

func (repo intakeRepository) unrow(r logRow) intake.Log {
	return intake.Log{
		ID:              r.ID,
		CourseID:        r.CourseID,
		Day:             r.Day,
		ScheduledAt:     r.ScheduledAt,
		TakenAt:         r.TakenAt,
		Status:          intake.LogStatus(r.Status),
		DelayMinutes:    r.DelayMinutes,
		MediaRef:        r.MediaRef,
		VerifiedBy:      r.VerifiedBy,
		Confidence:      r.Confidence,
		ReviewStartedAt: r.ReviewStartedAt.Ptr(),
		ReviewDeadline:  r.ReviewDeadline.Ptr(),
		ReshootDeadline: r.ReshootDeadline.Ptr(),
		ReviewMessageID: r.ReviewMessageID,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (repo intakeRepository) get(query string, args ...interface{}) (intake.Log, error) {
	var r logRow
	if err := repo.db.Get(&r, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return intake.Log{}, intake.ErrNotFound
		}
		return intake.Log{}, errors.Wrap(err, "querying intake log")
	}
	return repo.unrow(r), nil
}

func (repo intakeRepository) list(query string, args ...interface{}) ([]intake.Log, error) {
	var rows []logRow
	if err := repo.db.Select(&rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying intake logs")
	}
	logs := make([]intake.Log, 0, len(rows))
	for _, r := range rows {
		logs = append(logs, repo.unrow(r))
	}
	return logs, nil
}

func (repo intakeRepository) GetLog(id int) (intake.Log, error) {
	return repo.get(`SELECT `+logCols+` FROM intake_logs WHERE id = $1`, id)
}

func (repo intakeRepository) GetLogByCourseDay(courseID, day int) (intake.Log, error) {
	return repo.get(`SELECT `+logCols+` FROM intake_logs WHERE course_id = $1 AND day = $2`, courseID, day)
}

func (repo intakeRepository) GetLogByCourseStatus(courseID int, status intake.LogStatus) (intake.Log, error) {
	return repo.get(`SELECT `+logCols+` FROM intake_logs WHERE course_id = $1 AND status = $2`, courseID, status)
}

func (repo intakeRepository) HasLog(courseID, day int) (bool, error) {
	var exists bool
	err := repo.db.Get(&exists,
		`SELECT EXISTS (SELECT 1 FROM intake_logs WHERE course_id = $1 AND day = $2)`,
		courseID, day,
	)
	return exists, errors.Wrap(err, "checking intake log")
}

func (repo intakeRepository) CreateLog(l intake.Log) (intake.Log, error) {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = l.CreatedAt
	}

	err := repo.db.QueryRow(
		`INSERT INTO intake_logs (course_id, day, scheduled_at, taken_at, status, delay_minutes,
		   media_ref, verified_by, confidence, review_started_at, review_deadline, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`,
		l.CourseID, l.Day, l.ScheduledAt, l.TakenAt, l.Status, l.DelayMinutes,
		l.MediaRef, l.VerifiedBy, l.Confidence,
		null.TimeFromPtr(l.ReviewStartedAt), null.TimeFromPtr(l.ReviewDeadline),
		l.CreatedAt, l.UpdatedAt,
	).Scan(&l.ID)
	if err != nil {
		// the (course_id, day) unique constraint settles racing submissions
		if isUniqueViolation(err) {
			return intake.Log{}, intake.ErrLogExists
		}
		return intake.Log{}, errors.Wrap(err, "inserting intake log")
	}
	return l, nil
}

func (repo intakeRepository) UpdateLogStatusIf(id int, expected, next intake.LogStatus, verifiedBy string) (bool, error) {
	res, err := repo.db.Exec(
		`UPDATE intake_logs
		 SET status = $3,
		     verified_by = CASE WHEN $4 <> '' THEN $4 ELSE verified_by END,
		     updated_at = now()
		 WHERE id = $1 AND status = $2`,
		id, expected, next, verifiedBy,
	)
	if err != nil {
		return false, errors.Wrap(err, "updating intake log status")
	}
	return affected(res)
}

func (repo intakeRepository) SetReshoot(id int, deadline time.Time) (bool, error) {
	res, err := repo.db.Exec(
		`UPDATE intake_logs SET status = 'reshoot', reshoot_deadline = $2, updated_at = now()
		 WHERE id = $1 AND status = 'pending_review'`,
		id, deadline,
	)
	if err != nil {
		return false, errors.Wrap(err, "requesting reshoot")
	}
	return affected(res)
}

func (repo intakeRepository) UpdateAfterReshoot(id int, mediaRef string, takenAt time.Time, next intake.LogStatus, reviewDeadline *time.Time) (bool, error) {
	res, err := repo.db.Exec(
		`UPDATE intake_logs
		 SET status = $2, media_ref = $3, taken_at = $4, reshoot_deadline = NULL,
		     review_deadline = $5,
		     review_started_at = CASE WHEN $2 = 'pending_review' THEN $4 ELSE review_started_at END,
		     updated_at = now()
		 WHERE id = $1 AND status = 'reshoot'`,
		id, next, mediaRef, takenAt, null.TimeFromPtr(reviewDeadline),
	)
	if err != nil {
		return false, errors.Wrap(err, "settling reshoot")
	}
	return affected(res)
}

func (repo intakeRepository) SetReviewMessage(id int, messageID int64) error {
	_, err := repo.db.Exec(
		`UPDATE intake_logs SET review_message_id = $2, updated_at = now() WHERE id = $1`,
		id, messageID,
	)
	return errors.Wrap(err, "saving review message")
}

func (repo intakeRepository) QueryExpiredReviews(now time.Time) ([]intake.Log, error) {
	return repo.list(
		`SELECT `+logCols+` FROM intake_logs
		 WHERE status = 'pending_review' AND review_deadline IS NOT NULL AND review_deadline < $1`,
		now,
	)
}

func (repo intakeRepository) QueryExpiredReshoots(now time.Time) ([]intake.Log, error) {
	return repo.list(
		`SELECT `+logCols+` FROM intake_logs
		 WHERE status = 'reshoot' AND reshoot_deadline IS NOT NULL AND reshoot_deadline < $1`,
		now,
	)
}

func (repo intakeRepository) DeleteLogsByCourse(courseID int) error {
	_, err := repo.db.Exec(`DELETE FROM intake_logs WHERE course_id = $1`, courseID)
	return errors.Wrap(err, "deleting intake logs")
}
