package scheduler

import (
	"fmt"

	"github.com/aktamov/davomat/core"
	"github.com/aktamov/davomat/core/course"
)

// removalTask refuses courses whose daily window closed with no submission
// at all. Runs one window-length behind the scheduled time; the same
// re-verification as the strike sweep guards the midnight ambiguity.
func removalTask(d *Deps) Task {
	return Task{
		Name: "no-video-removal",
		Run: func() error {
			now := d.Clock.Now()
			from, to := tdRange(now, -(d.Prog.WindowAfter + d.Prog.TickInterval), -d.Prog.WindowAfter)
			list, err := d.Courses.ActiveInWindow(from, to)
			if err != nil {
				return err
			}

			for _, c := range list {
				if c.IntakeAt == nil || c.Done() {
					continue
				}
				sched := course.ScheduledFor(*c.IntakeAt, now, d.Prog.WindowBefore)
				if now.Before(sched.Add(d.Prog.WindowAfter)) {
					continue
				}
				if d.submittedOrLogged(c) {
					continue
				}

				c := c
				err := d.once(c.ID, "no-video", func() error {
					if err := d.Courses.Refuse(c, course.ReasonNoVideo); err != nil {
						if err == core.ErrAlreadyHandled {
							return nil
						}
						return err
					}
					removed, err := d.Courses.Get(c.ID)
					if err != nil {
						return err
					}
					if m, ok := d.member(c); ok {
						d.Notifier.RunClosure(removed, m)
					}
					return nil
				})
				if err != nil {
					d.Logger.Error(fmt.Sprintf("scheduler: removing course %d", c.ID), err)
				}
			}
			return nil
		},
	}
}
