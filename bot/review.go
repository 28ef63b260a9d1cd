package bot

import (
	"fmt"

	"github.com/aktamov/davomat/core"
	"github.com/aktamov/davomat/core/course"
	"github.com/aktamov/davomat/core/intake"
	"github.com/aktamov/davomat/core/member"
)

func (b *Bot) handleButton(e Event) error {
	action, id := unpackData(e.Data)
	switch action {
	case "confirm":
		return b.confirmIntake(e, id)
	case "reject":
		return b.rejectIntake(e, id)
	case "reshoot":
		return b.reshootIntake(e, id)
	case "appeal":
		return b.startAppeal(e, id)
	case "appeal_accept":
		return b.acceptAppeal(e, id)
	case "appeal_decline":
		return b.declineAppeal(e, id)
	case "extend":
		return b.extendCourse(e, id)
	case "finish":
		return b.finishFromButton(e, id)
	}
	b.logger.Debug(fmt.Sprintf("unknown button action %q dropped", action))
	return nil
}

// loadReviewContext resolves a review button press back to its log, course
// and member.
func (b *Bot) loadReviewContext(logID int) (intake.Log, course.Course, member.Member, error) {
	l, err := b.intakes.Get(logID)
	if err != nil {
		return intake.Log{}, course.Course{}, member.Member{}, err
	}
	c, err := b.courses.Get(l.CourseID)
	if err != nil {
		return intake.Log{}, course.Course{}, member.Member{}, err
	}
	m, err := b.members.Get(c.MemberID)
	if err != nil {
		return intake.Log{}, course.Course{}, member.Member{}, err
	}
	return l, c, m, nil
}

// confirmIntake settles a pending review as accepted; the losing side of a
// racing reject observes "already handled".
func (b *Bot) confirmIntake(e Event, logID int) error {
	_, c, m, err := b.loadReviewContext(logID)
	if err != nil {
		return err
	}

	if err = b.intakes.Confirm(logID); err != nil {
		return err
	}
	b.stripButtons(e.ChatID, e.MessageID)

	// a scheduler sweep may have removed the course while the review sat
	if c.Status != course.StatusActive {
		return core.ErrAlreadyHandled
	}

	l, err := b.intakes.Get(logID)
	if err != nil {
		return err
	}
	return b.applyApproval(m, c, l)
}

func (b *Bot) rejectIntake(e Event, logID int) error {
	_, c, m, err := b.loadReviewContext(logID)
	if err != nil {
		return err
	}

	if err = b.intakes.Reject(logID); err != nil {
		return err
	}
	b.stripButtons(e.ChatID, e.MessageID)

	if err = b.courses.Refuse(c, course.ReasonReviewerReject); err != nil {
		return err
	}
	refused, err := b.courses.Get(c.ID)
	if err != nil {
		return err
	}
	b.RunClosure(refused, m)
	return nil
}

func (b *Bot) reshootIntake(e Event, logID int) error {
	_, c, m, err := b.loadReviewContext(logID)
	if err != nil {
		return err
	}

	deadline, err := b.intakes.RequestReshoot(c, logID)
	if err != nil {
		return err
	}
	b.stripButtons(e.ChatID, e.MessageID)
	b.reply(m.ChatID, fmt.Sprintf(msgReshootAsk, fmtDeadline(deadline)))
	return nil
}

// extendCourse handles the member's choice to lengthen the program after
// reaching the original final day.
func (b *Bot) extendCourse(e Event, courseID int) error {
	c, err := b.courses.Get(courseID)
	if err != nil {
		return err
	}
	if err = b.courses.Extend(c); err != nil {
		return err
	}
	b.stripButtons(e.ChatID, e.MessageID)
	b.reply(e.ChatID, fmt.Sprintf("Extended! The program now runs %d days.", b.prog.ExtendedDays))
	return nil
}

func (b *Bot) finishFromButton(e Event, courseID int) error {
	c, err := b.courses.Get(courseID)
	if err != nil {
		return err
	}
	m, err := b.members.Get(c.MemberID)
	if err != nil {
		return err
	}
	b.stripButtons(e.ChatID, e.MessageID)
	return b.finishCourse(m, c.ID)
}

func (b *Bot) stripButtons(chatID, messageID int64) {
	if messageID == 0 {
		return
	}
	if err := b.chat.ClearButtons(chatID, messageID); err != nil {
		b.logger.Warn(fmt.Sprintf("clearing buttons on message %d in chat %d", messageID, chatID), err)
	}
}
