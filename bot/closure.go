package bot

import (
	"fmt"

	"github.com/aktamov/davomat/core"
	"github.com/aktamov/davomat/core/course"
	"github.com/aktamov/davomat/core/intake"
	"github.com/aktamov/davomat/core/member"
)

// RunClosure performs the wind-down sequence after a course reaches
// completed or refused: rename the thread, strip leftover buttons, post the
// notice, mark and close the thread, tell the member. Every step is
// best-effort; "already renamed / already closed" responses count as
// success inside the chat client, and one step's failure never blocks the
// rest. Re-running the sequence is harmless.
func (b *Bot) RunClosure(c course.Course, m member.Member) {
	if m.ThreadID != 0 {
		if err := b.chat.RenameThread(b.conf.GroupID, m.ThreadID, threadTitle(m.Name, c.Status)); err != nil {
			b.logger.Warn(fmt.Sprintf("closure: renaming thread %d", m.ThreadID), err)
		}

		b.stripButtons(b.conf.GroupID, c.RegistrationMessageID)
		b.stripPendingReview(c)

		b.toThread(m.ThreadID, closureNotice(c.RemovalReason, c.Status))

		icon := iconClosed
		if c.Status == course.StatusCompleted {
			icon = iconCompleted
		}
		if err := b.chat.SetThreadIcon(b.conf.GroupID, m.ThreadID, icon); err != nil {
			b.logger.Warn(fmt.Sprintf("closure: setting icon on thread %d", m.ThreadID), err)
		}
		if err := b.chat.CloseThread(b.conf.GroupID, m.ThreadID); err != nil {
			b.logger.Warn(fmt.Sprintf("closure: closing thread %d", m.ThreadID), err)
		}
	}

	if c.Status == course.StatusRefused {
		b.notifyRemoval(c, m)
	}
}

// stripPendingReview removes decision buttons from any still-undecided
// review message so a closed course cannot be acted on from the thread.
func (b *Bot) stripPendingReview(c course.Course) {
	for _, status := range []intake.LogStatus{intake.StatusPendingReview, intake.StatusReshoot} {
		l, err := b.intakes.ByStatus(c, status)
		if err != nil {
			continue
		}
		b.stripButtons(b.conf.GroupID, l.ReviewMessageID)
	}
}

// notifyRemoval tells the member, attaching the appeal button only while
// appeals remain and the removal reason admits one.
func (b *Bot) notifyRemoval(c course.Course, m member.Member) {
	text := msgRemoved(c.RemovalReason)
	var buttons []core.Button
	if c.RemovalReason.Appealable() && b.courses.CanAppeal(c) {
		if c.AppealDeadline != nil {
			text += fmt.Sprintf(" You can appeal until %s.", fmtDeadline(*c.AppealDeadline))
		}
		buttons = append(buttons, core.Button{Text: btnAppeal, Data: packData("appeal", c.ID)})
	}
	b.reply(m.ChatID, text, buttons...)

	b.sendAlertMail(
		fmt.Sprintf("Course closed: %s", m.Name),
		fmt.Sprintf("Course %d of %s was closed, reason: %s.", c.ID, m.Name, c.RemovalReason),
	)
}
