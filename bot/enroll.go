package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aktamov/davomat/core/course"
)

// scheduleInput is the member's "HH:MM d" reply during setup.
type scheduleInput struct {
	Time     string `json:"time" validate:"required,clocktime"`
	CycleDay int    `json:"cycle_day" validate:"required,min=1,max=28"`
}

func (b *Bot) handleText(e Event) error {
	if b.fromGroup(e) {
		return nil
	}

	if strings.HasPrefix(e.Text, "/start") {
		return b.startEnrollment(e)
	}

	if state, courseID := b.getState(e.ChatID); state == stateAppealText {
		return b.captureAppealText(e, courseID)
	}

	m, err := b.members.GetByChat(e.ChatID)
	if err != nil {
		b.reply(e.ChatID, msgNoCourse)
		return nil
	}
	c, err := b.courses.OpenByMember(m.ID)
	if err != nil {
		b.reply(e.ChatID, msgNoCourse)
		return nil
	}
	if c.Status == course.StatusSetup {
		return b.selectSchedule(e, m.ID, c)
	}
	return nil
}

// startEnrollment registers the member on first contact and opens a setup
// course. Repeated /start on an open course just repeats the prompt.
func (b *Bot) startEnrollment(e Event) error {
	m, err := b.members.Register(e.ChatID, e.SenderName)
	if err != nil {
		return err
	}

	if _, err = b.courses.Enroll(m.ID); err != nil && err != course.ErrCourseExists {
		return err
	}
	b.reply(e.ChatID, msgWelcome)
	return nil
}

// selectSchedule consumes the "HH:MM d" reply: validates it, activates the
// course and sets up the member's collaboration thread.
func (b *Bot) selectSchedule(e Event, memberID int, c course.Course) error {
	in, ok := b.parseSchedule(e.Text)
	if !ok {
		b.reply(e.ChatID, msgBadSchedule)
		return nil
	}

	intakeAt, err := course.ParseTimeOfDay(in.Time)
	if err != nil {
		b.reply(e.ChatID, msgBadSchedule)
		return nil
	}

	now := b.clock.Now()
	startDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err = b.courses.Activate(c, in.CycleDay, intakeAt, startDate); err != nil {
		return err
	}

	b.setupThread(memberID, c.ID, e.SenderName, intakeAt, in.CycleDay)
	b.reply(e.ChatID, fmt.Sprintf("All set. Send your video every day at %s. Day 1 starts now!", intakeAt))
	return nil
}

func (b *Bot) parseSchedule(text string) (scheduleInput, bool) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) != 2 {
		return scheduleInput{}, false
	}
	day, err := strconv.Atoi(fields[1])
	if err != nil {
		return scheduleInput{}, false
	}

	in := scheduleInput{Time: fields[0], CycleDay: day}
	if err = b.validate.Struct(in); err != nil {
		b.logger.Debug(fmt.Sprintf("schedule input rejected: %v", err))
		return scheduleInput{}, false
	}
	return in, true
}

// setupThread creates the member's thread in the staff group and posts the
// registration message. Best-effort: a failure here leaves the course active
// and is only logged.
func (b *Bot) setupThread(memberID, courseID int, name string, intakeAt course.TimeOfDay, cycleDay int) {
	m, err := b.members.Get(memberID)
	if err != nil {
		b.logger.Error(fmt.Sprintf("loading member %d for thread setup", memberID), err)
		return
	}

	threadID := m.ThreadID
	if threadID == 0 {
		threadID, err = b.chat.CreateThread(b.conf.GroupID, threadTitle(m.Name, course.StatusActive))
		if err != nil {
			b.logger.Error(fmt.Sprintf("creating thread for member %d", memberID), err)
			return
		}
		if err = b.members.SetThread(memberID, threadID); err != nil {
			b.logger.Error(fmt.Sprintf("saving thread for member %d", memberID), err)
			return
		}
	}

	text := fmt.Sprintf("New enrollment: %s\nDaily time: %s\nCycle day: %d\nProgram: %d days",
		m.Name, intakeAt, cycleDay, b.prog.TotalDays)
	if msgID := b.toThread(threadID, text); msgID != 0 {
		if err = b.courses.SetRegistrationMessage(courseID, msgID); err != nil {
			b.logger.Error(fmt.Sprintf("saving registration message for course %d", courseID), err)
		}
	}
}
