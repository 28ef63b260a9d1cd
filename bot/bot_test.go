package bot_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aktamov/davomat/bot"
	"github.com/aktamov/davomat/core"
	"github.com/aktamov/davomat/core/course"
	"github.com/aktamov/davomat/core/intake"
	"github.com/aktamov/davomat/core/member"
	"github.com/aktamov/davomat/storage/cache/memcache"
	"github.com/aktamov/davomat/storage/database/dummydb"
)

const (
	groupChatID  = int64(-100500)
	memberChatID = int64(42)
)

type staticClock struct{ now time.Time }

func (c *staticClock) Now() time.Time { return c.now }

type sentMsg struct {
	ChatID   int64
	ThreadID int64
	Text     string
	Buttons  []core.Button
}

type fakeChat struct {
	mu           sync.Mutex
	messages     []sentMsg
	videos       []sentMsg
	cleared      []int64
	renamed      map[int64]string
	closed       map[int64]bool
	nextMsgID    int64
	nextThreadID int64
}

func newFakeChat() *fakeChat {
	return &fakeChat{renamed: make(map[int64]string), closed: make(map[int64]bool), nextThreadID: 1000}
}

func (f *fakeChat) SendMessage(chatID, threadID int64, text string, buttons ...core.Button) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextMsgID++
	f.messages = append(f.messages, sentMsg{chatID, threadID, text, buttons})
	return f.nextMsgID, nil
}

func (f *fakeChat) SendVideo(chatID, threadID int64, fileRef string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextMsgID++
	f.videos = append(f.videos, sentMsg{ChatID: chatID, ThreadID: threadID, Text: fileRef})
	return f.nextMsgID, nil
}

func (f *fakeChat) EditMessage(chatID, messageID int64, text string, buttons ...core.Button) error {
	return nil
}

func (f *fakeChat) ClearButtons(chatID, messageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, messageID)
	return nil
}

func (f *fakeChat) CreateThread(chatID int64, name string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextThreadID++
	f.renamed[f.nextThreadID] = name
	return f.nextThreadID, nil
}

func (f *fakeChat) RenameThread(chatID, threadID int64, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renamed[threadID] = name
	return nil
}

func (f *fakeChat) SetThreadIcon(chatID, threadID int64, iconID string) error { return nil }

func (f *fakeChat) CloseThread(chatID, threadID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed[threadID] = true
	return nil
}

func (f *fakeChat) ReopenThread(chatID, threadID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed[threadID] = false
	return nil
}

func (f *fakeChat) DeleteThread(chatID, threadID int64) error { return nil }

func (f *fakeChat) DownloadFile(fileRef string) ([]byte, error) { return []byte("video-bytes"), nil }

// lastTo returns the most recent message sent to chatID.
func (f *fakeChat) lastTo(chatID int64) (sentMsg, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.messages) - 1; i >= 0; i-- {
		if f.messages[i].ChatID == chatID {
			return f.messages[i], true
		}
	}
	return sentMsg{}, false
}

func (f *fakeChat) countTo(chatID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int
	for _, m := range f.messages {
		if m.ChatID == chatID {
			n++
		}
	}
	return n
}

type fakeClassifier struct {
	verdict core.Verdict
	err     error
}

func (f *fakeClassifier) Classify([]byte, string) (core.Verdict, error) { return f.verdict, f.err }

type nopMail struct{}

func (nopMail) SendMessages(...*core.EmailMessage) {}

var testProg = core.ProgramConfig{
	TotalDays:      21,
	ExtendedDays:   28,
	WindowBefore:   10 * time.Minute,
	WindowAfter:    2 * time.Hour,
	ConfidenceMin:  0.85,
	LateThreshold:  30 * time.Minute,
	BaseMaxStrikes: 3,
	MaxAppeals:     2,
	DeadlineLeeway: 2 * time.Hour,
}

type env struct {
	dispatcher *bot.Dispatcher
	chat       *fakeChat
	classifier *fakeClassifier
	clock      *staticClock

	courses    *course.Service
	intakes    *intake.Service
	members    *member.Service
	courseRepo course.Repository
}

func newEnv(t *testing.T, now time.Time) *env {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatal(err)
	}

	logger := core.NopLogger{}
	clock := &staticClock{now: now}
	chat := newFakeChat()
	classifier := &fakeClassifier{verdict: core.Verdict{Approved: true, Confidence: 0.95}}

	courseRepo := dummydb.NewCourseRepository(db)
	courses := course.NewService(courseRepo, clock, testProg, logger)
	intakes := intake.NewService(dummydb.NewIntakeRepository(db), clock, testProg, logger)
	members := member.NewService(dummydb.NewMemberRepository(db), clock, logger)
	pipeline := intake.NewPipeline(chat, classifier, testProg.ConfidenceMin, logger)

	b := bot.New(courses, intakes, members, pipeline, chat, memcache.New(), nopMail{}, clock, testProg,
		bot.Config{GroupID: groupChatID, AlertEmail: "staff@clinic.test"}, logger)
	d := bot.NewDispatcher(logger)
	b.Register(d)

	return &env{
		dispatcher: d,
		chat:       chat,
		classifier: classifier,
		clock:      clock,
		courses:    courses,
		intakes:    intakes,
		members:    members,
		courseRepo: courseRepo,
	}
}

func (te *env) media(chatID int64, fileRef string) {
	te.dispatcher.Dispatch(bot.Event{Kind: bot.EventMedia, ChatID: chatID, MediaRef: fileRef, ContentType: "video/mp4"})
}

func (te *env) text(chatID int64, text string) {
	te.dispatcher.Dispatch(bot.Event{Kind: bot.EventText, ChatID: chatID, Text: text, SenderName: "Aziza"})
}

func (te *env) press(chatID, messageID int64, data string) {
	te.dispatcher.Dispatch(bot.Event{Kind: bot.EventButton, ChatID: chatID, MessageID: messageID, Data: data})
}

// activeCourse seeds a member with a thread and an active course at the
// given progress day.
func (te *env) activeCourse(t *testing.T, day int, intakeAt course.TimeOfDay) (member.Member, course.Course) {
	t.Helper()
	if _, err := te.members.AddReviewer(7, "Dr. One", "one@clinic.test"); err != nil {
		t.Fatal(err)
	}
	m, err := te.members.Register(memberChatID, "Aziza")
	if err != nil {
		t.Fatal(err)
	}
	if err = te.members.SetThread(m.ID, 555); err != nil {
		t.Fatal(err)
	}
	m, _ = te.members.Get(m.ID)

	c, err := te.courses.Enroll(m.ID)
	if err != nil {
		t.Fatal(err)
	}
	start := te.clock.now.AddDate(0, 0, -day)
	if err = te.courses.Activate(c, 5, intakeAt, start); err != nil {
		t.Fatal(err)
	}
	if day > 0 {
		if err = te.courseRepo.UpdateCurrentDay(c.ID, day); err != nil {
			t.Fatal(err)
		}
	}
	c, _ = te.courses.Get(c.ID)
	return m, c
}

func TestEnrollment(t *testing.T) {
	te := newEnv(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	if _, err := te.members.AddReviewer(7, "Dr. One", "one@clinic.test"); err != nil {
		t.Fatal(err)
	}

	te.text(memberChatID, "/start")
	last, ok := te.chat.lastTo(memberChatID)
	if !ok || !strings.Contains(last.Text, "enrolled") {
		t.Fatalf("no welcome message, got %+v", last)
	}

	// junk schedule is rejected
	te.text(memberChatID, "25:99 5")
	last, _ = te.chat.lastTo(memberChatID)
	if !strings.Contains(last.Text, "does not look right") {
		t.Errorf("bad schedule not rejected: %q", last.Text)
	}

	te.text(memberChatID, "21:30 5")

	m, err := te.members.GetByChat(memberChatID)
	if err != nil {
		t.Fatal(err)
	}
	c, err := te.courses.OpenByMember(m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != course.StatusActive {
		t.Errorf("status = %v, want %v", c.Status, course.StatusActive)
	}
	if c.IntakeAt == nil || c.IntakeAt.String() != "21:30" {
		t.Errorf("intake = %v, want 21:30", c.IntakeAt)
	}
	if c.CycleDay != 5 {
		t.Errorf("cycle day = %d, want 5", c.CycleDay)
	}

	m, _ = te.members.Get(m.ID)
	if m.ThreadID == 0 {
		t.Error("no thread created on activation")
	}
	if c2, _ := te.courses.Get(c.ID); c2.RegistrationMessageID == 0 {
		t.Error("registration message not recorded")
	}
}

func TestSubmission_OnTimeApproved(t *testing.T) {
	// scenario: day 5 of 21, on-time, classifier approves
	te := newEnv(t, time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC))
	m, c := te.activeCourse(t, 5, course.TimeOfDay{Hour: 9, Minute: 0})

	threadMsgsBefore := te.chat.countTo(groupChatID)
	te.media(memberChatID, "file-1")

	got, _ := te.courses.Get(c.ID)
	if got.CurrentDay != 6 {
		t.Errorf("current day = %d, want 6", got.CurrentDay)
	}
	if got.Status != course.StatusActive {
		t.Errorf("status = %v, want %v", got.Status, course.StatusActive)
	}
	if got.LateCount != 0 {
		t.Errorf("late count = %d, want 0", got.LateCount)
	}

	l, err := te.intakes.TodayLog(c)
	if err != nil {
		t.Fatal(err)
	}
	if l.Status != intake.StatusTaken || l.VerifiedBy != intake.VerifierClassifier {
		t.Errorf("log = %+v, want taken by classifier", l)
	}

	last, _ := te.chat.lastTo(memberChatID)
	if !strings.Contains(last.Text, "Day 6 of 21") {
		t.Errorf("member message = %q, want approval", last.Text)
	}
	// reviewer is not pinged: the video lands in the thread, no text message
	if n := te.chat.countTo(groupChatID); n != threadMsgsBefore {
		t.Errorf("%d review messages sent for an auto-approved submission", n-threadMsgsBefore)
	}
	if len(te.chat.videos) != 1 || te.chat.videos[0].ThreadID != m.ThreadID {
		t.Errorf("video not forwarded to thread: %+v", te.chat.videos)
	}

	// a second video the same day changes nothing
	te.media(memberChatID, "file-2")
	got, _ = te.courses.Get(c.ID)
	if got.CurrentDay != 6 {
		t.Errorf("duplicate submission advanced the day to %d", got.CurrentDay)
	}
}

func TestSubmission_LateApproved(t *testing.T) {
	// scenario: 45 minutes late against a 30 minute threshold
	te := newEnv(t, time.Date(2026, 3, 10, 9, 45, 0, 0, time.UTC))
	_, c := te.activeCourse(t, 5, course.TimeOfDay{Hour: 9, Minute: 0})

	te.media(memberChatID, "file-1")

	got, _ := te.courses.Get(c.ID)
	if got.Status != course.StatusActive {
		t.Fatalf("status = %v, want active", got.Status)
	}
	if got.CurrentDay != 6 {
		t.Errorf("current day = %d, want 6", got.CurrentDay)
	}
	if got.LateCount != 1 || len(got.LateDates) != 1 {
		t.Errorf("strikes = %d/%d dates, want 1/1", got.LateCount, len(got.LateDates))
	}

	last, _ := te.chat.lastTo(memberChatID)
	if !strings.Contains(last.Text, "Strike 1 of 3") {
		t.Errorf("member message = %q, want a strike warning", last.Text)
	}
}

func TestSubmission_FinalStrikeRemoves(t *testing.T) {
	te := newEnv(t, time.Date(2026, 3, 10, 9, 45, 0, 0, time.UTC))
	m, c := te.activeCourse(t, 5, course.TimeOfDay{Hour: 9, Minute: 0})

	// two strikes already on the books
	dates := []time.Time{te.clock.now.AddDate(0, 0, -3), te.clock.now.AddDate(0, 0, -1)}
	if err := te.courseRepo.RecordLate(c.ID, 2, dates); err != nil {
		t.Fatal(err)
	}

	te.media(memberChatID, "file-1")

	got, _ := te.courses.Get(c.ID)
	if got.Status != course.StatusRefused {
		t.Fatalf("status = %v, want refused", got.Status)
	}
	if got.RemovalReason != course.ReasonMaxStrikes {
		t.Errorf("reason = %v, want %v", got.RemovalReason, course.ReasonMaxStrikes)
	}
	// the strike day does not count: rolled back to 5
	if got.CurrentDay != 5 {
		t.Errorf("current day = %d, want 5", got.CurrentDay)
	}
	if got.LateCount != 3 || len(got.LateDates) != 3 {
		t.Errorf("strikes = %d/%d dates, want 3/3", got.LateCount, len(got.LateDates))
	}
	if got.AppealDeadline == nil {
		t.Error("no appeal deadline on a strike removal")
	}

	// closure ran: thread renamed and closed, member offered an appeal
	if name := te.chat.renamed[m.ThreadID]; !strings.Contains(name, "[closed]") {
		t.Errorf("thread title = %q, want closed marker", name)
	}
	if !te.chat.closed[m.ThreadID] {
		t.Error("thread not closed")
	}
	last, _ := te.chat.lastTo(memberChatID)
	if len(last.Buttons) != 1 || !strings.HasPrefix(last.Buttons[0].Data, "appeal:") {
		t.Errorf("member message buttons = %+v, want the appeal button", last.Buttons)
	}
}

func TestSubmission_WindowEdges(t *testing.T) {
	t.Run("too early", func(t *testing.T) {
		te := newEnv(t, time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC))
		_, c := te.activeCourse(t, 5, course.TimeOfDay{Hour: 9, Minute: 0})

		te.media(memberChatID, "file-1")

		got, _ := te.courses.Get(c.ID)
		if got.CurrentDay != 5 {
			t.Errorf("early submission advanced the day to %d", got.CurrentDay)
		}
		last, _ := te.chat.lastTo(memberChatID)
		if !strings.Contains(last.Text, "window opens at 08:50") {
			t.Errorf("member message = %q, want opening time", last.Text)
		}
	})

	t.Run("closed", func(t *testing.T) {
		te := newEnv(t, time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC))
		_, c := te.activeCourse(t, 5, course.TimeOfDay{Hour: 9, Minute: 0})

		te.media(memberChatID, "file-1")

		got, _ := te.courses.Get(c.ID)
		if got.CurrentDay != 5 {
			t.Errorf("closed-window submission advanced the day to %d", got.CurrentDay)
		}
		if _, err := te.intakes.TodayLog(got); err != intake.ErrNotFound {
			t.Errorf("a log was created for a closed window")
		}
	})
}

func TestSubmission_ClassifierUnavailable(t *testing.T) {
	te := newEnv(t, time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC))
	_, c := te.activeCourse(t, 5, course.TimeOfDay{Hour: 9, Minute: 0})
	te.classifier.err = fmt.Errorf("upstream timeout")

	te.media(memberChatID, "file-1")

	// no state mutated, member told to retry
	got, _ := te.courses.Get(c.ID)
	if got.CurrentDay != 5 {
		t.Errorf("current day = %d, want 5", got.CurrentDay)
	}
	if _, err := te.intakes.TodayLog(got); err != intake.ErrNotFound {
		t.Error("a log was created despite the transport failure")
	}
	last, _ := te.chat.lastTo(memberChatID)
	if !strings.Contains(last.Text, "send it again") {
		t.Errorf("member message = %q, want a retry prompt", last.Text)
	}

	// retry succeeds once the classifier is back
	te.classifier.err = nil
	te.media(memberChatID, "file-1")
	got, _ = te.courses.Get(c.ID)
	if got.CurrentDay != 6 {
		t.Errorf("current day after retry = %d, want 6", got.CurrentDay)
	}
}

func TestReviewFlow(t *testing.T) {
	te := newEnv(t, time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC))
	m, c := te.activeCourse(t, 5, course.TimeOfDay{Hour: 9, Minute: 0})
	te.classifier.verdict = core.Verdict{Approved: true, Confidence: 0.5} // below threshold

	te.media(memberChatID, "file-1")

	l, err := te.intakes.TodayLog(c)
	if err != nil {
		t.Fatal(err)
	}
	if l.Status != intake.StatusPendingReview {
		t.Fatalf("log status = %v, want pending review", l.Status)
	}
	if l.ReviewMessageID == 0 {
		t.Fatal("no review message recorded")
	}
	review, _ := te.chat.lastTo(groupChatID)
	if len(review.Buttons) != 3 {
		t.Fatalf("review buttons = %+v, want confirm/reject/reshoot", review.Buttons)
	}

	t.Run("confirm", func(t *testing.T) {
		te.press(groupChatID, l.ReviewMessageID, fmt.Sprintf("confirm:%d", l.ID))

		got, _ := te.courses.Get(c.ID)
		if got.CurrentDay != 6 || got.Status != course.StatusActive {
			t.Errorf("course = day %d %v, want day 6 active", got.CurrentDay, got.Status)
		}
		gl, _ := te.intakes.Get(l.ID)
		if gl.Status != intake.StatusTaken || gl.VerifiedBy != intake.VerifierReviewer {
			t.Errorf("log = %+v, want taken by reviewer", gl)
		}

		// racing reject is a no-op
		te.press(groupChatID, l.ReviewMessageID, fmt.Sprintf("reject:%d", l.ID))
		got, _ = te.courses.Get(c.ID)
		if got.Status != course.StatusActive {
			t.Errorf("status after losing reject = %v, want active", got.Status)
		}
		_ = m
	})
}

func TestReviewReject(t *testing.T) {
	te := newEnv(t, time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC))
	m, c := te.activeCourse(t, 5, course.TimeOfDay{Hour: 9, Minute: 0})
	te.classifier.verdict = core.Verdict{Approved: false, Confidence: 0.9, Reason: "wrong pill"}

	te.media(memberChatID, "file-1")
	l, _ := te.intakes.TodayLog(c)

	te.press(groupChatID, l.ReviewMessageID, fmt.Sprintf("reject:%d", l.ID))

	got, _ := te.courses.Get(c.ID)
	if got.Status != course.StatusRefused || got.RemovalReason != course.ReasonReviewerReject {
		t.Errorf("course = %v/%v, want refused/reviewer_reject", got.Status, got.RemovalReason)
	}
	if got.CurrentDay != 5 {
		t.Errorf("current day = %d, want 5 (rejected day does not count)", got.CurrentDay)
	}
	// reviewer rejection is not appealable
	last, _ := te.chat.lastTo(memberChatID)
	if len(last.Buttons) != 0 {
		t.Errorf("member got buttons %+v on a non-appealable removal", last.Buttons)
	}
	if !te.chat.closed[m.ThreadID] {
		t.Error("thread not closed after rejection")
	}
}

func TestReshootCycle(t *testing.T) {
	te := newEnv(t, time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC))
	_, c := te.activeCourse(t, 5, course.TimeOfDay{Hour: 9, Minute: 0})
	te.classifier.verdict = core.Verdict{Approved: false, Confidence: 0.3, Reason: "too dark"}

	te.media(memberChatID, "file-1")
	l, _ := te.intakes.TodayLog(c)

	te.press(groupChatID, l.ReviewMessageID, fmt.Sprintf("reshoot:%d", l.ID))

	gl, _ := te.intakes.Get(l.ID)
	if gl.Status != intake.StatusReshoot || gl.ReshootDeadline == nil {
		t.Fatalf("log = %+v, want reshoot with a deadline", gl)
	}
	last, _ := te.chat.lastTo(memberChatID)
	if !strings.Contains(last.Text, "reshoot") {
		t.Errorf("member message = %q, want a reshoot prompt", last.Text)
	}

	// replacement video passes: same log updated in place, day claimed
	te.classifier.verdict = core.Verdict{Approved: true, Confidence: 0.95}
	te.media(memberChatID, "file-2")

	gl, _ = te.intakes.Get(l.ID)
	if gl.Status != intake.StatusTaken || gl.MediaRef != "file-2" {
		t.Errorf("log = %+v, want taken with replaced media", gl)
	}
	got, _ := te.courses.Get(c.ID)
	if got.CurrentDay != 6 {
		t.Errorf("current day = %d, want 6", got.CurrentDay)
	}
}

func TestAppealFlow(t *testing.T) {
	te := newEnv(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	m, c := te.activeCourse(t, 5, course.TimeOfDay{Hour: 9, Minute: 0})
	if err := te.courses.Refuse(c, course.ReasonNoVideo); err != nil {
		t.Fatal(err)
	}

	te.press(memberChatID, 1, fmt.Sprintf("appeal:%d", c.ID))
	got, _ := te.courses.Get(c.ID)
	if got.Status != course.StatusAppeal {
		t.Fatalf("status = %v, want appeal", got.Status)
	}

	// two-step evidence capture
	te.media(memberChatID, "appeal-video")
	te.text(memberChatID, "I was in hospital")

	got, _ = te.courses.Get(c.ID)
	if got.AppealVideo != "appeal-video" || got.AppealText != "I was in hospital" {
		t.Fatalf("evidence = %+v, not captured", got)
	}
	review, _ := te.chat.lastTo(groupChatID)
	if len(review.Buttons) != 2 {
		t.Fatalf("appeal review buttons = %+v, want accept/decline", review.Buttons)
	}

	t.Run("declined", func(t *testing.T) {
		te.press(groupChatID, 99, fmt.Sprintf("appeal_decline:%d", c.ID))

		got, _ := te.courses.Get(c.ID)
		if got.Status != course.StatusRefused {
			t.Errorf("status = %v, want refused", got.Status)
		}
		if got.AppealCount != 1 {
			t.Errorf("appeal count = %d, want 1", got.AppealCount)
		}
		if got.AppealVideo != "" || got.AppealText != "" {
			t.Errorf("evidence not cleared: %+v", got)
		}
		last, _ := te.chat.lastTo(memberChatID)
		if !strings.Contains(last.Text, "declined") {
			t.Errorf("member message = %q, want decline notice", last.Text)
		}
		_ = m
	})
}

func TestAppealAccepted(t *testing.T) {
	te := newEnv(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	m, c := te.activeCourse(t, 5, course.TimeOfDay{Hour: 9, Minute: 0})
	if err := te.courses.Refuse(c, course.ReasonMaxStrikes); err != nil {
		t.Fatal(err)
	}

	te.press(memberChatID, 1, fmt.Sprintf("appeal:%d", c.ID))
	te.media(memberChatID, "appeal-video")
	te.text(memberChatID, "pharmacy was shut")

	te.press(groupChatID, 99, fmt.Sprintf("appeal_accept:%d", c.ID))

	got, _ := te.courses.Get(c.ID)
	if got.Status != course.StatusActive {
		t.Errorf("status = %v, want active", got.Status)
	}
	if got.AppealCount != 1 {
		t.Errorf("appeal count = %d, want 1", got.AppealCount)
	}
	// threshold grew with the accepted appeal
	if te.courses.MaxStrikes(got) != 4 {
		t.Errorf("MaxStrikes() = %d, want 4", te.courses.MaxStrikes(got))
	}
	last, _ := te.chat.lastTo(memberChatID)
	if !strings.Contains(last.Text, "accepted") {
		t.Errorf("member message = %q, want acceptance notice", last.Text)
	}
	_ = m
}

func TestCompletionAndExtension(t *testing.T) {
	t.Run("extension offered on the final day", func(t *testing.T) {
		te := newEnv(t, time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC))
		_, c := te.activeCourse(t, 20, course.TimeOfDay{Hour: 9, Minute: 0})

		te.media(memberChatID, "file-1")

		got, _ := te.courses.Get(c.ID)
		if got.CurrentDay != 21 || got.Status != course.StatusActive {
			t.Fatalf("course = day %d %v, want day 21 active pending choice", got.CurrentDay, got.Status)
		}
		last, _ := te.chat.lastTo(memberChatID)
		if len(last.Buttons) != 2 {
			t.Fatalf("buttons = %+v, want extend/finish", last.Buttons)
		}

		te.press(memberChatID, 1, fmt.Sprintf("extend:%d", c.ID))
		got, _ = te.courses.Get(c.ID)
		if got.TotalDays != 28 || !got.Extended {
			t.Errorf("extension not applied: %+v", got)
		}
	})

	t.Run("finish completes and closes", func(t *testing.T) {
		te := newEnv(t, time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC))
		m, c := te.activeCourse(t, 20, course.TimeOfDay{Hour: 9, Minute: 0})

		te.media(memberChatID, "file-1")
		te.press(memberChatID, 1, fmt.Sprintf("finish:%d", c.ID))

		got, _ := te.courses.Get(c.ID)
		if got.Status != course.StatusCompleted {
			t.Errorf("status = %v, want completed", got.Status)
		}
		if name := te.chat.renamed[m.ThreadID]; !strings.Contains(name, "[done]") {
			t.Errorf("thread title = %q, want done marker", name)
		}
		if !te.chat.closed[m.ThreadID] {
			t.Error("thread not closed on completion")
		}
	})
}
