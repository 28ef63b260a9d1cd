package member

import (
	"fmt"

	"github.com/aktamov/davomat/core"
)

type (
	Repository interface {
		GetMember(id int) (Member, error)
		GetMemberByChat(chatID int64) (Member, error)
		CreateMember(m Member) (Member, error)
		SetMemberThread(id int, threadID int64) error
		SetMemberReviewer(id, reviewerID int) error
		DeleteMembersByID(ids ...int) error
		QueryMembersWithThread() ([]Member, error)

		GetReviewer(id int) (Reviewer, error)
		GetReviewerByChat(chatID int64) (Reviewer, error)
		CreateReviewer(r Reviewer) (Reviewer, error)
		QueryActiveReviewers() ([]Reviewer, error)
		// CountMembersByReviewer returns member counts keyed by reviewer id;
		// reviewers with no members are absent.
		CountMembersByReviewer() (map[int]int, error)
	}

	Service struct {
		repo   Repository
		clock  core.Clock
		logger core.Logger
	}
)

func NewService(repo Repository, clock core.Clock, logger core.Logger) *Service {
	return &Service{repo: repo, clock: clock, logger: logger}
}

func (svc *Service) Get(id int) (Member, error) {
	return svc.repo.GetMember(id)
}

func (svc *Service) GetByChat(chatID int64) (Member, error) {
	return svc.repo.GetMemberByChat(chatID)
}

// Register creates the member on first contact, assigning the least-loaded
// active reviewer. Existing members are returned as-is.
func (svc *Service) Register(chatID int64, name string) (Member, error) {
	if m, err := svc.repo.GetMemberByChat(chatID); err == nil {
		return m, nil
	} else if err != ErrNotFound {
		return Member{}, err
	}

	rev, err := svc.pickReviewer()
	if err != nil {
		return Member{}, err
	}

	now := svc.clock.Now()
	m := Member{
		ChatID:     chatID,
		Name:       core.CleanString(name),
		ReviewerID: rev.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m, err = svc.repo.CreateMember(m)
	if err != nil {
		return Member{}, err
	}
	svc.logger.Info(fmt.Sprintf("member registered: id=%d chat=%d reviewer=%d", m.ID, m.ChatID, rev.ID))
	return m, nil
}

func (svc *Service) SetThread(id int, threadID int64) error {
	return svc.repo.SetMemberThread(id, threadID)
}

func (svc *Service) ClearThread(id int) error {
	return svc.repo.SetMemberThread(id, 0)
}

func (svc *Service) WithThread() ([]Member, error) {
	return svc.repo.QueryMembersWithThread()
}

func (svc *Service) Remove(ids ...int) error {
	return svc.repo.DeleteMembersByID(ids...)
}

func (svc *Service) Reviewer(id int) (Reviewer, error) {
	return svc.repo.GetReviewer(id)
}

func (svc *Service) AddReviewer(chatID int64, name, email string) (Reviewer, error) {
	now := svc.clock.Now()
	return svc.repo.CreateReviewer(Reviewer{
		ChatID:    chatID,
		Name:      core.CleanString(name),
		Email:     core.CleanString(email, true),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) pickReviewer() (Reviewer, error) {
	revs, err := svc.repo.QueryActiveReviewers()
	if err != nil {
		return Reviewer{}, err
	}
	if len(revs) == 0 {
		return Reviewer{}, ErrNoActiveReviewer
	}
	counts, err := svc.repo.CountMembersByReviewer()
	if err != nil {
		return Reviewer{}, err
	}
	best := revs[0]
	for _, r := range revs[1:] {
		if counts[r.ID] < counts[best.ID] {
			best = r
		}
	}
	return best, nil
}
