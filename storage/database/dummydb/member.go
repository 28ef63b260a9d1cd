package dummydb

import (
	"time"

	"github.com/aktamov/davomat/core/member"
)

type memberRepository struct {
	members   *memberTable
	reviewers *reviewerTable
}

var _ member.Repository = (*memberRepository)(nil) // interface compliance check

func NewMemberRepository(db *DB) member.Repository {
	return &memberRepository{members: db.member, reviewers: db.reviewer}
}

func (repo *memberRepository) GetMember(id int) (member.Member, error) {
	repo.members.RLock()
	defer repo.members.RUnlock()

	if m, ok := repo.members.table[id]; ok {
		return *m, nil
	}
	return member.Member{}, member.ErrNotFound
}

func (repo *memberRepository) GetMemberByChat(chatID int64) (member.Member, error) {
	repo.members.RLock()
	defer repo.members.RUnlock()

	for _, m := range repo.members.table {
		if m.ChatID == chatID {
			return *m, nil
		}
	}
	return member.Member{}, member.ErrNotFound
}

func (repo *memberRepository) CreateMember(m member.Member) (member.Member, error) {
	repo.members.Lock()
	defer repo.members.Unlock()

	repo.members.pk++
	m.ID = repo.members.pk
	repo.members.table[m.ID] = &m
	return m, nil
}

func (repo *memberRepository) SetMemberThread(id int, threadID int64) error {
	repo.members.Lock()
	defer repo.members.Unlock()

	m, ok := repo.members.table[id]
	if !ok {
		return member.ErrNotFound
	}
	m.ThreadID = threadID
	m.UpdatedAt = time.Now()
	return nil
}

func (repo *memberRepository) SetMemberReviewer(id, reviewerID int) error {
	repo.members.Lock()
	defer repo.members.Unlock()

	m, ok := repo.members.table[id]
	if !ok {
		return member.ErrNotFound
	}
	m.ReviewerID = reviewerID
	m.UpdatedAt = time.Now()
	return nil
}

func (repo *memberRepository) DeleteMembersByID(ids ...int) error {
	repo.members.Lock()
	defer repo.members.Unlock()
	for _, id := range ids {
		delete(repo.members.table, id)
	}
	return nil
}

func (repo *memberRepository) QueryMembersWithThread() ([]member.Member, error) {
	repo.members.RLock()
	defer repo.members.RUnlock()

	var members []member.Member
	for _, m := range repo.members.table {
		if m.ThreadID != 0 {
			members = append(members, *m)
		}
	}
	return members, nil
}

func (repo *memberRepository) GetReviewer(id int) (member.Reviewer, error) {
	repo.reviewers.RLock()
	defer repo.reviewers.RUnlock()

	if r, ok := repo.reviewers.table[id]; ok {
		return *r, nil
	}
	return member.Reviewer{}, member.ErrReviewerNotFound
}

func (repo *memberRepository) GetReviewerByChat(chatID int64) (member.Reviewer, error) {
	repo.reviewers.RLock()
	defer repo.reviewers.RUnlock()

	for _, r := range repo.reviewers.table {
		if r.ChatID == chatID {
			return *r, nil
		}
	}
	return member.Reviewer{}, member.ErrReviewerNotFound
}

func (repo *memberRepository) CreateReviewer(r member.Reviewer) (member.Reviewer, error) {
	repo.reviewers.Lock()
	defer repo.reviewers.Unlock()

	repo.reviewers.pk++
	r.ID = repo.reviewers.pk
	repo.reviewers.table[r.ID] = &r
	return r, nil
}

func (repo *memberRepository) QueryActiveReviewers() ([]member.Reviewer, error) {
	repo.reviewers.RLock()
	defer repo.reviewers.RUnlock()

	var reviewers []member.Reviewer
	for _, r := range repo.reviewers.table {
		if r.Active {
			reviewers = append(reviewers, *r)
		}
	}
	return reviewers, nil
}

func (repo *memberRepository) CountMembersByReviewer() (map[int]int, error) {
	repo.members.RLock()
	defer repo.members.RUnlock()

	counts := make(map[int]int)
	for _, m := range repo.members.table {
		counts[m.ReviewerID]++
	}
	return counts, nil
}
