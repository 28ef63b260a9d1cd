package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/aktamov/davomat/core/member"
)

const (
	memberCols   = `id, chat_id, name, reviewer_id, thread_id, created_at, updated_at`
	reviewerCols = `id, chat_id, name, email, active, created_at, updated_at`
)

type memberRow struct {
	ID         int       `db:"id"`
	ChatID     int64     `db:"chat_id"`
	Name       string    `db:"name"`
	ReviewerID int       `db:"reviewer_id"`
	ThreadID   int64     `db:"thread_id"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type reviewerRow struct {
	ID        int       `db:"id"`
	ChatID    int64     `db:"chat_id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type memberRepository struct {
	db *sqlx.DB
}

var _ member.Repository = (*memberRepository)(nil) // interface compliance check

func NewMemberRepository(db *sqlx.DB) *memberRepository {
	return &memberRepository{db: db}
}

func (repo memberRepository) unrow(r memberRow) member.Member {
	return member.Member{
		ID:         r.ID,
		ChatID:     r.ChatID,
		Name:       r.Name,
		ReviewerID: r.ReviewerID,
		ThreadID:   r.ThreadID,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (repo memberRepository) unrowReviewer(r reviewerRow) member.Reviewer {
	return member.Reviewer{
		ID:        r.ID,
		ChatID:    r.ChatID,
		Name:      r.Name,
		Email:     r.Email,
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (repo memberRepository) getMember(query string, args ...interface{}) (member.Member, error) {
	var r memberRow
	if err := repo.db.Get(&r, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return member.Member{}, member.ErrNotFound
		}
		return member.Member{}, errors.Wrap(err, "querying member")
	}
	return repo.unrow(r), nil
}

func (repo memberRepository) GetMember(id int) (member.Member, error) {
	return repo.getMember(`SELECT `+memberCols+` FROM members WHERE id = $1`, id)
}

func (repo memberRepository) GetMemberByChat(chatID int64) (member.Member, error) {
	return repo.getMember(`SELECT `+memberCols+` FROM members WHERE chat_id = $1`, chatID)
}

func (repo memberRepository) CreateMember(m member.Member) (member.Member, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}

	err := repo.db.QueryRow(
		`INSERT INTO members (chat_id, name, reviewer_id, thread_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		m.ChatID, m.Name, m.ReviewerID, m.ThreadID, m.CreatedAt, m.UpdatedAt,
	).Scan(&m.ID)
	if err != nil {
		return member.Member{}, errors.Wrap(err, "inserting member")
	}
	return m, nil
}

func (repo memberRepository) SetMemberThread(id int, threadID int64) error {
	_, err := repo.db.Exec(
		`UPDATE members SET thread_id = $2, updated_at = now() WHERE id = $1`,
		id, threadID,
	)
	return errors.Wrap(err, "setting member thread")
}

func (repo memberRepository) SetMemberReviewer(id, reviewerID int) error {
	_, err := repo.db.Exec(
		`UPDATE members SET reviewer_id = $2, updated_at = now() WHERE id = $1`,
		id, reviewerID,
	)
	return errors.Wrap(err, "setting member reviewer")
}

func (repo memberRepository) DeleteMembersByID(ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.db.Exec(`DELETE FROM members WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "deleting members")
}

func (repo memberRepository) QueryMembersWithThread() ([]member.Member, error) {
	var rows []memberRow
	if err := repo.db.Select(&rows, `SELECT `+memberCols+` FROM members WHERE thread_id <> 0`); err != nil {
		return nil, errors.Wrap(err, "querying members with threads")
	}
	members := make([]member.Member, 0, len(rows))
	for _, r := range rows {
		members = append(members, repo.unrow(r))
	}
	return members, nil
}

func (repo memberRepository) GetReviewer(id int) (member.Reviewer, error) {
	var r reviewerRow
	if err := repo.db.Get(&r, `SELECT `+reviewerCols+` FROM reviewers WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return member.Reviewer{}, member.ErrReviewerNotFound
		}
		return member.Reviewer{}, errors.Wrap(err, "querying reviewer")
	}
	return repo.unrowReviewer(r), nil
}

func (repo memberRepository) GetReviewerByChat(chatID int64) (member.Reviewer, error) {
	var r reviewerRow
	if err := repo.db.Get(&r, `SELECT `+reviewerCols+` FROM reviewers WHERE chat_id = $1`, chatID); err != nil {
		if err == sql.ErrNoRows {
			return member.Reviewer{}, member.ErrReviewerNotFound
		}
		return member.Reviewer{}, errors.Wrap(err, "querying reviewer")
	}
	return repo.unrowReviewer(r), nil
}

func (repo memberRepository) CreateReviewer(r member.Reviewer) (member.Reviewer, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}

	err := repo.db.QueryRow(
		`INSERT INTO reviewers (chat_id, name, email, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		r.ChatID, r.Name, r.Email, r.Active, r.CreatedAt, r.UpdatedAt,
	).Scan(&r.ID)
	if err != nil {
		return member.Reviewer{}, errors.Wrap(err, "inserting reviewer")
	}
	return r, nil
}

func (repo memberRepository) QueryActiveReviewers() ([]member.Reviewer, error) {
	var rows []reviewerRow
	if err := repo.db.Select(&rows, `SELECT `+reviewerCols+` FROM reviewers WHERE active ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "querying active reviewers")
	}
	reviewers := make([]member.Reviewer, 0, len(rows))
	for _, r := range rows {
		reviewers = append(reviewers, repo.unrowReviewer(r))
	}
	return reviewers, nil
}

func (repo memberRepository) CountMembersByReviewer() (map[int]int, error) {
	rows, err := repo.db.Query(`SELECT reviewer_id, COUNT(*) FROM members GROUP BY reviewer_id`)
	if err != nil {
		return nil, errors.Wrap(err, "counting members per reviewer")
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[int]int)
	for rows.Next() {
		var id, n int
		if err = rows.Scan(&id, &n); err != nil {
			return nil, errors.Wrap(err, "counting members per reviewer")
		}
		counts[id] = n
	}
	return counts, errors.Wrap(rows.Err(), "counting members per reviewer")
}
