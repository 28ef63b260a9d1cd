package bot

import (
	"fmt"
	"time"

	"github.com/aktamov/davomat/core/course"
)

// user-facing texts; wording is presentation only and never load-bearing
const (
	msgWelcome     = "Welcome! You are enrolled. Reply with your daily submission time and cycle day, e.g. \"21:30 5\"."
	msgBadSchedule = "That does not look right. Send the time as HH:MM followed by your cycle day (1-28), e.g. \"21:30 5\"."
	msgNoCourse    = "You have no active course. Send /start to enroll."
	msgSetupFirst  = "Finish enrollment first: send your daily time and cycle day, e.g. \"21:30 5\"."
	msgAlreadyDone = "Today's submission is already recorded. See you tomorrow!"
	msgRetryLater  = "We could not check your video right now. Please send it again in a few minutes."
	msgUnderReview = "Thanks! Your video needs a quick human check. You will hear back soon."
	msgApproved    = "Accepted! Day %d of %d done."
	msgMissed      = "The submission window for today is closed."

	msgReshootAsk = "Your reviewer asked for a new video. Please reshoot and send it before %s."
	msgReshootOK  = "Thanks, your new video is accepted."
	msgRejected   = "Your submission was declined by the reviewer and the course has been closed."

	msgAppealVideo    = "Appeal started. First, send a video explaining what happened."
	msgAppealText     = "Got it. Now add a short written explanation."
	msgAppealReceived = "Your appeal has been submitted. A reviewer will decide before your next scheduled time."
	msgAppealAccepted = "Your appeal was accepted. The course is active again, keep going!"

	msgCompleted = "Congratulations, you finished the program!"
	msgExtendAsk = "You reached day %d. Extend the program to %d days, or finish now?"

	btnAppeal  = "Appeal"
	btnConfirm = "Confirm"
	btnReject  = "Reject"
	btnReshoot = "Reshoot"
	btnAccept  = "Accept appeal"
	btnDecline = "Decline appeal"
	btnExtend  = "Extend"
	btnFinish  = "Finish"

	// thread icon ids understood by the platform
	iconClosed    = "icon_red"
	iconCompleted = "icon_green"
)

func fmtClock(t time.Time) string {
	return t.Format("15:04")
}

func fmtDeadline(t time.Time) string {
	return t.Format("Mon 15:04")
}

func msgTooEarly(opensAt time.Time) string {
	return fmt.Sprintf("Not yet! Your window opens at %s.", fmtClock(opensAt))
}

func msgLateWarning(count, max int) string {
	return fmt.Sprintf("Accepted, but you were late. Strike %d of %d: at %d the course closes.", count, max, max)
}

func msgRemoved(reason course.RemovalReason) string {
	switch reason {
	case course.ReasonNoVideo:
		return "No submission arrived in time and the course has been closed."
	case course.ReasonMaxStrikes:
		return "Too many late submissions; the course has been closed."
	case course.ReasonReviewDeadline, course.ReasonReshootExpired:
		return "The review could not be completed in time and the course has been closed."
	case course.ReasonAppealDeclined:
		return "Your appeal was declined. The course stays closed."
	case course.ReasonAppealExpired:
		return "Your appeal expired without a decision. The course stays closed."
	default:
		return "The course has been closed."
	}
}

func threadTitle(m string, status course.Status) string {
	switch status {
	case course.StatusCompleted:
		return m + " [done]"
	case course.StatusRefused, course.StatusExpired:
		return m + " [closed]"
	default:
		return m
	}
}

func closureNotice(reason course.RemovalReason, status course.Status) string {
	if status == course.StatusCompleted {
		return "Program completed."
	}
	return fmt.Sprintf("Course closed: %s.", reason)
}
