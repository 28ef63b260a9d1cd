package member_test

import (
	"testing"
	"time"

	"github.com/aktamov/davomat/core"
	"github.com/aktamov/davomat/core/member"
	"github.com/aktamov/davomat/storage/database/dummydb"
)

type staticClock struct{ now time.Time }

func (c *staticClock) Now() time.Time { return c.now }

func setup(t *testing.T) *member.Service {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatal(err)
	}
	clock := &staticClock{now: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)}
	return member.NewService(dummydb.NewMemberRepository(db), clock, core.NopLogger{})
}

func TestService_Register(t *testing.T) {
	svc := setup(t)

	// no reviewer on board yet
	if _, err := svc.Register(100, "Aziza"); err != member.ErrNoActiveReviewer {
		t.Fatalf("Register() error = %v, want %v", err, member.ErrNoActiveReviewer)
	}

	r1, err := svc.AddReviewer(1, "Dr. One", "one@clinic.test")
	if err != nil {
		t.Fatal(err)
	}
	r2, err := svc.AddReviewer(2, "Dr. Two", "TWO@clinic.test ")
	if err != nil {
		t.Fatal(err)
	}
	if r2.Email != "two@clinic.test" {
		t.Errorf("reviewer email = %q, not normalized", r2.Email)
	}

	m1, err := svc.Register(100, "  Aziza ")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if m1.Name != "Aziza" {
		t.Errorf("name = %q, want trimmed", m1.Name)
	}

	// registering again returns the same member
	again, err := svc.Register(100, "Aziza")
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != m1.ID {
		t.Errorf("Register() twice created a second member")
	}

	// load balancing: the second member goes to the other reviewer
	m2, err := svc.Register(200, "Bekzod")
	if err != nil {
		t.Fatal(err)
	}
	if m1.ReviewerID == m2.ReviewerID {
		t.Errorf("both members assigned to reviewer %d", m1.ReviewerID)
	}
	assigned := map[int]bool{m1.ReviewerID: true, m2.ReviewerID: true}
	if !assigned[r1.ID] || !assigned[r2.ID] {
		t.Errorf("assignments = %v, want both reviewers used", assigned)
	}
}

func TestService_SetThread(t *testing.T) {
	svc := setup(t)

	if _, err := svc.AddReviewer(1, "Dr. One", "one@clinic.test"); err != nil {
		t.Fatal(err)
	}
	m, err := svc.Register(100, "Aziza")
	if err != nil {
		t.Fatal(err)
	}

	if err = svc.SetThread(m.ID, 777); err != nil {
		t.Fatalf("SetThread() error = %v", err)
	}
	got, err := svc.Get(m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ThreadID != 777 {
		t.Errorf("thread = %d, want 777", got.ThreadID)
	}
}
