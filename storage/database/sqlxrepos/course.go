package sqlxrepos

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aktamov/davomat/core/course"
)

const courseCols = `id, member_id, status, invite_code, invite_used, cycle_day, intake_at,
	start_date, current_day, total_days, extended, late_count, late_dates, appeal_count,
	appeal_video, appeal_text, appeal_deadline, removal_reason, registration_message_id,
	created_at, updated_at`

type courseRow struct {
	ID                    int         `db:"id"`
	MemberID              int         `db:"member_id"`
	Status                string      `db:"status"`
	InviteCode            string      `db:"invite_code"`
	InviteUsed            bool        `db:"invite_used"`
	CycleDay              int         `db:"cycle_day"`
	IntakeAt              null.String `db:"intake_at"`
	StartDate             null.Time   `db:"start_date"`
	CurrentDay            int         `db:"current_day"`
	TotalDays             int         `db:"total_days"`
	Extended              bool        `db:"extended"`
	LateCount             int         `db:"late_count"`
	LateDates             timeArray   `db:"late_dates"`
	AppealCount           int         `db:"appeal_count"`
	AppealVideo           string      `db:"appeal_video"`
	AppealText            string      `db:"appeal_text"`
	AppealDeadline        null.Time   `db:"appeal_deadline"`
	RemovalReason         string      `db:"removal_reason"`
	RegistrationMessageID int64       `db:"registration_message_id"`
	CreatedAt             time.Time   `db:"created_at"`
	UpdatedAt             time.Time   `db:"updated_at"`
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) unrow(r courseRow) (course.Course, error) {
	c := course.Course{
		ID:                    r.ID,
		MemberID:              r.MemberID,
		Status:                course.Status(r.Status),
		InviteCode:            r.InviteCode,
		InviteUsed:            r.InviteUsed,
		CycleDay:              r.CycleDay,
		CurrentDay:            r.CurrentDay,
		TotalDays:             r.TotalDays,
		Extended:              r.Extended,
		LateCount:             r.LateCount,
		LateDates:             r.LateDates,
		AppealCount:           r.AppealCount,
		AppealVideo:           r.AppealVideo,
		AppealText:            r.AppealText,
		RemovalReason:         course.RemovalReason(r.RemovalReason),
		RegistrationMessageID: r.RegistrationMessageID,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
	if r.IntakeAt.Valid && r.IntakeAt.String != "" {
		t, err := course.ParseTimeOfDay(r.IntakeAt.String)
		if err != nil {
			return course.Course{}, errors.Wrapf(err, "course %d intake_at", r.ID)
		}
		c.IntakeAt = &t
	}
	if r.StartDate.Valid {
		c.StartDate = r.StartDate.Time
	}
	if r.AppealDeadline.Valid {
		t := r.AppealDeadline.Time
		c.AppealDeadline = &t
	}
	return c, nil
}

func (repo courseRepository) get(query string, args ...interface{}) (course.Course, error) {
	var r courseRow
	if err := repo.db.Get(&r, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "querying course")
	}
	return repo.unrow(r)
}

func (repo courseRepository) list(query string, args ...interface{}) ([]course.Course, error) {
	var rows []courseRow
	if err := repo.db.Select(&rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		c, err := repo.unrow(r)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, nil
}

func (repo courseRepository) GetCourse(id int) (course.Course, error) {
	return repo.get(`SELECT `+courseCols+` FROM courses WHERE id = $1`, id)
}

func (repo courseRepository) GetCourseByInvite(code string) (course.Course, error) {
	return repo.get(`SELECT `+courseCols+` FROM courses WHERE invite_code = $1`, code)
}

func (repo courseRepository) GetOpenCourseByMember(memberID int) (course.Course, error) {
	return repo.get(
		`SELECT `+courseCols+` FROM courses WHERE member_id = $1 AND status IN ('setup', 'active', 'appeal')`,
		memberID,
	)
}

func (repo courseRepository) CreateCourse(c course.Course) (course.Course, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}

	err := repo.db.QueryRow(
		`INSERT INTO courses (member_id, status, invite_code, total_days, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		c.MemberID, c.Status, c.InviteCode, c.TotalDays, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		// the partial unique index on open courses backstops the service check
		if isUniqueViolation(err) {
			return course.Course{}, course.ErrCourseExists
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo courseRepository) ActivateCourse(id, cycleDay int, intakeAt course.TimeOfDay, startDate time.Time) (bool, error) {
	res, err := repo.db.Exec(
		`UPDATE courses
		 SET status = 'active', invite_used = true, cycle_day = $2, intake_at = $3, start_date = $4, updated_at = now()
		 WHERE id = $1 AND status = 'setup' AND NOT invite_used`,
		id, cycleDay, intakeAt.String(), startDate,
	)
	if err != nil {
		return false, errors.Wrap(err, "activating course")
	}
	return affected(res)
}

func (repo courseRepository) SetRegistrationMessage(id int, messageID int64) error {
	_, err := repo.db.Exec(
		`UPDATE courses SET registration_message_id = $2, updated_at = now() WHERE id = $1`,
		id, messageID,
	)
	return errors.Wrap(err, "saving registration message")
}

func (repo courseRepository) UpdateCurrentDay(id, day int) error {
	_, err := repo.db.Exec(
		`UPDATE courses SET current_day = $2, updated_at = now() WHERE id = $1`,
		id, day,
	)
	return errors.Wrap(err, "updating current day")
}

func (repo courseRepository) RecordLate(id, lateCount int, lateDates []time.Time) error {
	_, err := repo.db.Exec(
		`UPDATE courses SET late_count = $2, late_dates = $3, updated_at = now() WHERE id = $1`,
		id, lateCount, timeArray(lateDates),
	)
	return errors.Wrap(err, "recording late strike")
}

func (repo courseRepository) ExtendCourse(id, newTotal int) (bool, error) {
	res, err := repo.db.Exec(
		`UPDATE courses SET total_days = $2, extended = true, updated_at = now()
		 WHERE id = $1 AND status = 'active' AND NOT extended`,
		id, newTotal,
	)
	if err != nil {
		return false, errors.Wrap(err, "extending course")
	}
	return affected(res)
}

func (repo courseRepository) CompleteIfActive(id int) (bool, error) {
	res, err := repo.db.Exec(
		`UPDATE courses SET status = 'completed', updated_at = now() WHERE id = $1 AND status = 'active'`,
		id,
	)
	if err != nil {
		return false, errors.Wrap(err, "completing course")
	}
	return affected(res)
}

func (repo courseRepository) RefuseIfActive(id int, reason course.RemovalReason, appealDeadline *time.Time) (bool, error) {
	res, err := repo.db.Exec(
		`UPDATE courses SET status = 'refused', removal_reason = $2, appeal_deadline = $3, updated_at = now()
		 WHERE id = $1 AND status = 'active'`,
		id, reason, null.TimeFromPtr(appealDeadline),
	)
	if err != nil {
		return false, errors.Wrap(err, "refusing course")
	}
	return affected(res)
}

func (repo courseRepository) RefuseWithDayRollback(id, day int, reason course.RemovalReason, appealDeadline *time.Time) (bool, error) {
	// single statement: a crash can never leave the day advanced on a
	// refused course
	res, err := repo.db.Exec(
		`UPDATE courses
		 SET status = 'refused', current_day = $2, removal_reason = $3, appeal_deadline = $4, updated_at = now()
		 WHERE id = $1 AND status = 'active'`,
		id, day, reason, null.TimeFromPtr(appealDeadline),
	)
	if err != nil {
		return false, errors.Wrap(err, "refusing course with rollback")
	}
	return affected(res)
}

func (repo courseRepository) StartAppeal(id int) (bool, error) {
	res, err := repo.db.Exec(
		`UPDATE courses SET status = 'appeal', appeal_deadline = NULL, updated_at = now()
		 WHERE id = $1 AND status = 'refused'`,
		id,
	)
	if err != nil {
		return false, errors.Wrap(err, "starting appeal")
	}
	return affected(res)
}

func (repo courseRepository) SaveAppealEvidence(id int, video, text string) error {
	_, err := repo.db.Exec(
		`UPDATE courses SET appeal_video = $2, appeal_text = $3, updated_at = now() WHERE id = $1`,
		id, video, text,
	)
	return errors.Wrap(err, "saving appeal evidence")
}

func (repo courseRepository) AcceptAppeal(id, newAppealCount int) (bool, error) {
	res, err := repo.db.Exec(
		`UPDATE courses
		 SET status = 'active', appeal_count = $2, appeal_video = '', appeal_text = '',
		     appeal_deadline = NULL, removal_reason = '', updated_at = now()
		 WHERE id = $1 AND status = 'appeal'`,
		id, newAppealCount,
	)
	if err != nil {
		return false, errors.Wrap(err, "accepting appeal")
	}
	return affected(res)
}

func (repo courseRepository) DeclineAppeal(id, newAppealCount int, reason course.RemovalReason) (bool, error) {
	res, err := repo.db.Exec(
		`UPDATE courses
		 SET status = 'refused', appeal_count = $2, removal_reason = $3,
		     appeal_video = '', appeal_text = '', appeal_deadline = NULL, updated_at = now()
		 WHERE id = $1 AND status = 'appeal'`,
		id, newAppealCount, reason,
	)
	if err != nil {
		return false, errors.Wrap(err, "declining appeal")
	}
	return affected(res)
}

func (repo courseRepository) QueryActiveInWindow(day time.Time, from, to course.TimeOfDay) ([]course.Course, error) {
	// intake_at is zero-padded HH:MM, so string comparison orders it; a to
	// before from means the range wraps midnight
	cond := `intake_at >= $2 AND intake_at < $3`
	if to.Before(from) {
		cond = `(intake_at >= $2 OR intake_at < $3)`
	}
	query := fmt.Sprintf(
		`SELECT %s FROM courses
		 WHERE status = 'active' AND intake_at IS NOT NULL
		   AND (start_date IS NULL OR start_date <= $1) AND %s`,
		courseCols, cond,
	)
	return repo.list(query, day, from.String(), to.String())
}

func (repo courseRepository) QueryCoursesByStatus(status course.Status) ([]course.Course, error) {
	return repo.list(`SELECT `+courseCols+` FROM courses WHERE status = $1`, status)
}

func (repo courseRepository) QueryRefusedWithExpiredAppeal(now time.Time) ([]course.Course, error) {
	return repo.list(
		`SELECT `+courseCols+` FROM courses
		 WHERE status = 'refused' AND appeal_deadline IS NOT NULL AND appeal_deadline < $1`,
		now,
	)
}

func (repo courseRepository) QueryEndedMemberIDs(memberIDs []int, before time.Time) (map[int]bool, error) {
	rows, err := repo.db.Query(
		`SELECT DISTINCT member_id FROM courses
		 WHERE member_id = ANY($1) AND status IN ('refused', 'completed', 'expired') AND updated_at < $2`,
		pq.Array(memberIDs), before,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying ended members")
	}
	defer func() { _ = rows.Close() }()

	ended := make(map[int]bool)
	for rows.Next() {
		var id int
		if err = rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "querying ended members")
		}
		ended[id] = true
	}
	return ended, errors.Wrap(rows.Err(), "querying ended members")
}

func (repo courseRepository) QueryAbandonedSetup(before time.Time) ([]course.Course, error) {
	return repo.list(
		`SELECT `+courseCols+` FROM courses WHERE status = 'setup' AND created_at < $1`,
		before,
	)
}

func (repo courseRepository) CountCoursesByMember(memberID int) (int, error) {
	var n int
	if err := repo.db.Get(&n, `SELECT COUNT(*) FROM courses WHERE member_id = $1`, memberID); err != nil {
		return 0, errors.Wrap(err, "counting courses")
	}
	return n, nil
}

func (repo courseRepository) DeleteCourse(id int) error {
	_, err := repo.db.Exec(`DELETE FROM courses WHERE id = $1`, id)
	return errors.Wrap(err, "deleting course")
}

func (repo courseRepository) ExpireCourses(ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.db.Exec(
		`UPDATE courses SET status = 'expired', updated_at = now() WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	return errors.Wrap(err, "expiring courses")
}
