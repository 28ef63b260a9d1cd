package scheduler

import (
	"fmt"

	"github.com/aktamov/davomat/core"
	"github.com/aktamov/davomat/core/course"
	"github.com/aktamov/davomat/core/intake"
)

// reviewDeadlineTask closes out reviews the staff never decided in time. The
// guarded log transition makes the sweep idempotent without a dedup key: a
// settled log drops out of the query.
func reviewDeadlineTask(d *Deps) Task {
	return Task{
		Name: "review-deadline",
		Run: func() error {
			logs, err := d.Intakes.ExpiredReviews()
			if err != nil {
				return err
			}
			for _, l := range logs {
				if err := d.expireLog(l, d.Intakes.ExpireReview, course.ReasonReviewDeadline); err != nil {
					d.Logger.Error(fmt.Sprintf("scheduler: expiring review %d", l.ID), err)
				}
			}
			return nil
		},
	}
}

// reshootDeadlineTask handles reshoots that never arrived.
func reshootDeadlineTask(d *Deps) Task {
	return Task{
		Name: "reshoot-deadline",
		Run: func() error {
			logs, err := d.Intakes.ExpiredReshoots()
			if err != nil {
				return err
			}
			for _, l := range logs {
				if err := d.expireLog(l, d.Intakes.ExpireReshoot, course.ReasonReshootExpired); err != nil {
					d.Logger.Error(fmt.Sprintf("scheduler: expiring reshoot %d", l.ID), err)
				}
			}
			return nil
		},
	}
}

func (d *Deps) expireLog(l intake.Log, expire func(int) error, reason course.RemovalReason) error {
	if err := expire(l.ID); err != nil {
		if err == core.ErrAlreadyHandled {
			return nil
		}
		return err
	}

	// the review message keeps its text but loses its decision buttons
	if l.ReviewMessageID != 0 {
		if err := d.Chat.ClearButtons(d.GroupID, l.ReviewMessageID); err != nil {
			d.Logger.Warn(fmt.Sprintf("scheduler: clearing buttons on message %d", l.ReviewMessageID), err)
		}
	}

	c, err := d.Courses.Get(l.CourseID)
	if err != nil {
		return err
	}
	if err := d.Courses.Refuse(c, reason); err != nil && err != core.ErrAlreadyHandled {
		return err
	}
	removed, err := d.Courses.Get(c.ID)
	if err != nil {
		return err
	}
	if m, ok := d.member(removed); ok {
		d.Notifier.RunClosure(removed, m)
	}
	return nil
}
