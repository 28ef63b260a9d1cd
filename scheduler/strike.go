package scheduler

import (
	"fmt"
	"time"

	"github.com/aktamov/davomat/core"
	"github.com/aktamov/davomat/core/course"
)

// strikeTask records a lateness strike for members who are past the late
// threshold with nothing submitted. The wall-clock slice only shortlists
// candidates; ScheduledFor re-verifies against the real instant, because a
// time-of-day match near midnight can belong to tomorrow's occurrence.
func strikeTask(d *Deps) Task {
	return Task{
		Name: "late-strike",
		Run: func() error {
			now := d.Clock.Now()
			from, to := tdRange(now, -(d.Prog.LateThreshold + d.Prog.TickInterval), -d.Prog.LateThreshold)
			list, err := d.Courses.ActiveInWindow(from, to)
			if err != nil {
				return err
			}

			for _, c := range list {
				if c.IntakeAt == nil || c.Done() {
					continue
				}
				sched := course.ScheduledFor(*c.IntakeAt, now, d.Prog.WindowBefore)
				if now.Before(sched.Add(d.Prog.LateThreshold)) {
					continue
				}
				if d.submittedOrLogged(c) {
					continue
				}
				// the submission handler may have recorded today's strike on
				// a late approval already
				if d.Courses.LateToday(c) {
					continue
				}

				c := c
				err := d.once(c.ID, "strike", func() error {
					return d.recordStrike(c, sched.Add(d.Prog.WindowAfter))
				})
				if err != nil {
					d.Logger.Error(fmt.Sprintf("scheduler: striking course %d", c.ID), err)
				}
			}
			return nil
		},
	}
}

func (d *Deps) recordStrike(c course.Course, closesAt time.Time) error {
	count, _, err := d.Courses.RecordLate(c)
	if err != nil {
		return err
	}
	m, ok := d.member(c)
	if !ok {
		return nil
	}

	max := d.Courses.MaxStrikes(c)
	if count >= max {
		// no day to roll back: nothing was claimed today
		if err := d.Courses.Refuse(c, course.ReasonMaxStrikes); err != nil {
			if err == core.ErrAlreadyHandled {
				return nil
			}
			return err
		}
		removed, err := d.Courses.Get(c.ID)
		if err != nil {
			return err
		}
		d.Notifier.RunClosure(removed, m)
		return nil
	}

	d.Notifier.NotifyMember(m.ChatID, fmt.Sprintf(
		"No video yet today. Strike %d of %d; at %d the course closes. You can still submit until %s.",
		count, max, max, closesAt.Format("15:04"),
	))
	return nil
}
