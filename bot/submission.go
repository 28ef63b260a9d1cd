package bot

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/aktamov/davomat/core"
	"github.com/aktamov/davomat/core/course"
	"github.com/aktamov/davomat/core/intake"
	"github.com/aktamov/davomat/core/member"
)

func (b *Bot) handleMedia(e Event) error {
	if b.fromGroup(e) {
		return nil
	}

	if state, courseID := b.getState(e.ChatID); state == stateAppealVideo {
		return b.captureAppealVideo(e, courseID)
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

	switch c.Status {
	case course.StatusSetup:
		b.reply(e.ChatID, msgSetupFirst)
		return nil
	case course.StatusAppeal:
		// evidence capture restarted after a lost conversation state
		b.setState(e.ChatID, stateAppealVideo, c.ID)
		return b.captureAppealVideo(e, c.ID)
	}

	// an open reshoot takes priority over a regular submission
	if l, err := b.intakes.ByStatus(c, intake.StatusReshoot); err == nil {
		return b.handleReshoot(e, m, c, l)
	} else if err != intake.ErrNotFound {
		return err
	}

	if c.Done() {
		b.reply(e.ChatID, msgAlreadyDone)
		return nil
	}

	if done, err := b.intakes.SubmittedToday(c); err != nil {
		return err
	} else if done {
		b.reply(e.ChatID, msgAlreadyDone)
		return nil
	}

	status, opensAt := b.courses.CheckWindow(c)
	switch status {
	case course.WindowEarly:
		b.reply(e.ChatID, msgTooEarly(opensAt))
		return nil
	case course.WindowClosed:
		b.reply(e.ChatID, msgMissed)
		return nil
	}

	if exists, err := b.intakes.HasLog(c.ID, c.CurrentDay+1); err != nil {
		return err
	} else if exists {
		b.reply(e.ChatID, msgAlreadyDone)
		return nil
	}

	d, err := b.pipeline.Verify(e.MediaRef, e.ContentType)
	if err != nil {
		if errors.Is(err, intake.ErrVerifyUnavailable) {
			b.reply(e.ChatID, msgRetryLater)
			return nil
		}
		return err
	}

	l, err := b.intakes.RecordIntake(c, e.MediaRef, d)
	if err == intake.ErrLogExists {
		b.reply(e.ChatID, msgAlreadyDone)
		return nil
	}
	if err != nil {
		return err
	}

	if l.Status == intake.StatusTaken {
		return b.applyApproval(m, c, l)
	}
	b.reply(e.ChatID, msgUnderReview)
	b.requestReview(m, l, d.Reason)
	return nil
}

// handleReshoot runs the replacement video through the pipeline and settles
// the existing log in place.
func (b *Bot) handleReshoot(e Event, m member.Member, c course.Course, l intake.Log) error {
	d, err := b.pipeline.Verify(e.MediaRef, e.ContentType)
	if err != nil {
		if errors.Is(err, intake.ErrVerifyUnavailable) {
			b.reply(e.ChatID, msgRetryLater)
			return nil
		}
		return err
	}

	if !d.Approved {
		if err = b.intakes.ReshootPendingReview(c, l.ID, e.MediaRef); err != nil {
			return err
		}
		updated, err := b.intakes.Get(l.ID)
		if err != nil {
			return err
		}
		b.reply(e.ChatID, msgUnderReview)
		b.requestReview(m, updated, d.Reason)
		return nil
	}

	if err = b.intakes.AcceptReshoot(l.ID, e.MediaRef); err != nil {
		return err
	}
	updated, err := b.intakes.Get(l.ID)
	if err != nil {
		return err
	}
	b.reply(e.ChatID, msgReshootOK)
	return b.applyApproval(m, c, updated)
}

// applyApproval is the shared post-approval path for classifier approvals,
// reviewer confirmations and accepted reshoots: claim the day, record a
// strike when late, remove at the threshold, close out a finished program.
func (b *Bot) applyApproval(m member.Member, c course.Course, l intake.Log) error {
	originalDay := c.CurrentDay
	newDay, err := b.courses.ClaimDay(c)
	if err != nil {
		return err
	}

	// the scheduler sweep may already hold today's strike
	if b.intakes.Late(l) && !b.courses.LateToday(c) {
		count, _, err := b.courses.RecordLate(c)
		if err != nil {
			return err
		}
		max := b.courses.MaxStrikes(c)
		if count >= max {
			if err = b.courses.RemoveForStrikes(c, originalDay); err != nil {
				return err
			}
			removed, err := b.courses.Get(c.ID)
			if err != nil {
				return err
			}
			b.RunClosure(removed, m)
			return nil
		}
		b.reply(m.ChatID, msgLateWarning(count, max))
	}

	b.forwardToThread(m, l)

	if newDay >= c.TotalDays {
		if !c.Extended {
			b.reply(m.ChatID, fmt.Sprintf(msgExtendAsk, newDay, b.prog.ExtendedDays),
				core.Button{Text: btnExtend, Data: packData("extend", c.ID)},
				core.Button{Text: btnFinish, Data: packData("finish", c.ID)},
			)
			return nil
		}
		return b.finishCourse(m, c.ID)
	}

	b.reply(m.ChatID, fmt.Sprintf(msgApproved, newDay, c.TotalDays))
	return nil
}

func (b *Bot) finishCourse(m member.Member, courseID int) error {
	if err := b.courses.Complete(courseID); err != nil {
		return err
	}
	done, err := b.courses.Get(courseID)
	if err != nil {
		return err
	}
	b.reply(m.ChatID, msgCompleted)
	b.RunClosure(done, m)
	return nil
}

// requestReview forwards the video into the member's thread with the
// decision buttons and remembers the message for later button-stripping.
func (b *Bot) requestReview(m member.Member, l intake.Log, reason string) {
	if m.ThreadID == 0 {
		b.logger.Warn(fmt.Sprintf("member %d has no thread, review request dropped", m.ID))
		return
	}

	if _, err := b.chat.SendVideo(b.conf.GroupID, m.ThreadID, l.MediaRef); err != nil {
		b.logger.Error(fmt.Sprintf("forwarding video to thread %d", m.ThreadID), err)
	}

	if reason == "" {
		reason = "no verdict"
	}
	text := fmt.Sprintf("Review needed: %s, day %d.\nClassifier: %s (confidence %.2f)", m.Name, l.Day, reason, l.Confidence)
	if l.ReviewDeadline != nil {
		text += fmt.Sprintf("\nDecide before %s.", fmtDeadline(*l.ReviewDeadline))
	}
	msgID := b.toThread(m.ThreadID, text,
		core.Button{Text: btnConfirm, Data: packData("confirm", l.ID)},
		core.Button{Text: btnReject, Data: packData("reject", l.ID)},
		core.Button{Text: btnReshoot, Data: packData("reshoot", l.ID)},
	)
	if msgID != 0 {
		if err := b.intakes.SetReviewMessage(l.ID, msgID); err != nil {
			b.logger.Error(fmt.Sprintf("saving review message for log %d", l.ID), err)
		}
	}
}

func (b *Bot) forwardToThread(m member.Member, l intake.Log) {
	// a log that went through review already has its video in the thread
	if m.ThreadID == 0 || l.ReviewMessageID != 0 {
		return
	}
	if _, err := b.chat.SendVideo(b.conf.GroupID, m.ThreadID, l.MediaRef); err != nil {
		b.logger.Error(fmt.Sprintf("forwarding video to thread %d", m.ThreadID), err)
	}
}
