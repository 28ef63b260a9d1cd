package bot

import (
	"fmt"
	"net/mail"

	"github.com/aktamov/davomat/core"
	"github.com/aktamov/davomat/core/course"
	"github.com/aktamov/davomat/core/member"
)

// startAppeal reacts to the member's appeal button. The appeal cap is
// enforced by never attaching the button past the cap, not by a guard here;
// an already-consumed button loses on the refused → appeal transition.
func (b *Bot) startAppeal(e Event, courseID int) error {
	if err := b.courses.StartAppeal(courseID); err != nil {
		return err
	}
	b.stripButtons(e.ChatID, e.MessageID)

	c, err := b.courses.Get(courseID)
	if err != nil {
		return err
	}
	if m, err := b.members.Get(c.MemberID); err == nil && m.ThreadID != 0 {
		if err = b.chat.ReopenThread(b.conf.GroupID, m.ThreadID); err != nil {
			b.logger.Warn(fmt.Sprintf("reopening thread %d for appeal", m.ThreadID), err)
		}
	}

	b.setState(e.ChatID, stateAppealVideo, courseID)
	b.reply(e.ChatID, msgAppealVideo)
	return nil
}

// captureAppealVideo stores the evidence video and moves the conversation to
// the text step.
func (b *Bot) captureAppealVideo(e Event, courseID int) error {
	if err := b.courses.SaveAppealEvidence(courseID, e.MediaRef, ""); err != nil {
		return err
	}
	b.setState(e.ChatID, stateAppealText, courseID)
	b.reply(e.ChatID, msgAppealText)
	return nil
}

// captureAppealText completes the two-step capture and hands the appeal to
// the reviewer.
func (b *Bot) captureAppealText(e Event, courseID int) error {
	c, err := b.courses.Get(courseID)
	if err != nil {
		return err
	}
	if err = b.courses.SaveAppealEvidence(courseID, c.AppealVideo, e.Text); err != nil {
		return err
	}
	b.clearState(e.ChatID)
	b.reply(e.ChatID, msgAppealReceived)

	m, err := b.members.Get(c.MemberID)
	if err != nil {
		return err
	}
	b.notifyAppeal(m, courseID, c.AppealVideo, e.Text)
	return nil
}

func (b *Bot) notifyAppeal(m member.Member, courseID int, video, text string) {
	if m.ThreadID != 0 {
		if video != "" {
			if _, err := b.chat.SendVideo(b.conf.GroupID, m.ThreadID, video); err != nil {
				b.logger.Error(fmt.Sprintf("forwarding appeal video to thread %d", m.ThreadID), err)
			}
		}
		b.toThread(m.ThreadID, fmt.Sprintf("Appeal from %s:\n%s", m.Name, text),
			core.Button{Text: btnAccept, Data: packData("appeal_accept", courseID)},
			core.Button{Text: btnDecline, Data: packData("appeal_decline", courseID)},
		)
	}
	b.sendAlertMail(
		fmt.Sprintf("Appeal pending: %s", m.Name),
		fmt.Sprintf("%s appealed the removal of course %d.\n\nJustification:\n%s", m.Name, courseID, text),
	)
}

func (b *Bot) acceptAppeal(e Event, courseID int) error {
	c, err := b.courses.Get(courseID)
	if err != nil {
		return err
	}
	if err = b.courses.AcceptAppeal(c); err != nil {
		return err
	}
	b.stripButtons(e.ChatID, e.MessageID)

	m, err := b.members.Get(c.MemberID)
	if err != nil {
		return err
	}
	if m.ThreadID != 0 {
		if err = b.chat.RenameThread(b.conf.GroupID, m.ThreadID, threadTitle(m.Name, course.StatusActive)); err != nil {
			b.logger.Warn(fmt.Sprintf("renaming thread %d after accepted appeal", m.ThreadID), err)
		}
	}
	b.reply(m.ChatID, msgAppealAccepted)
	return nil
}

func (b *Bot) declineAppeal(e Event, courseID int) error {
	c, err := b.courses.Get(courseID)
	if err != nil {
		return err
	}
	if err = b.courses.DeclineAppeal(c); err != nil {
		return err
	}
	b.stripButtons(e.ChatID, e.MessageID)

	refused, err := b.courses.Get(courseID)
	if err != nil {
		return err
	}
	m, err := b.members.Get(c.MemberID)
	if err != nil {
		return err
	}
	b.RunClosure(refused, m)
	return nil
}

// sendAlertMail escalates to the staff mailbox; no recipient configured
// means escalation is off.
func (b *Bot) sendAlertMail(subject, body string) {
	if b.conf.AlertEmail == "" {
		return
	}
	b.mail.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: b.conf.AlertEmail}},
		Subject: subject,
		BodyStr: body,
	})
}
