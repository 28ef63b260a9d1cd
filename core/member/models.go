package member

import (
	"errors"
	"time"
)

var (
	// errors
	ErrNotFound         = errors.New("member not found")
	ErrReviewerNotFound = errors.New("reviewer not found")
	ErrNoActiveReviewer = errors.New("no active reviewer available")
)

// Member is a program participant, identified by her messaging-platform chat.
// ThreadID is the member's dedicated topic in the review group.
type Member struct {
	ID         int
	ChatID     int64
	Name       string
	ReviewerID int
	ThreadID   int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reviewer supervises members' submissions from the review group.
type Reviewer struct {
	ID     int
	ChatID int64
	Name   string
	Email  string
	Active bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
