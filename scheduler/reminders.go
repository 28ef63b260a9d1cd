package scheduler

import (
	"fmt"
	"time"
)

func msgReminderHour(opensAt time.Time) string {
	return fmt.Sprintf("Reminder: your submission window opens at %s.", opensAt.Format("15:04"))
}

func msgReminderSoon(opensAt time.Time) string {
	return fmt.Sprintf("Your window opens at %s, about ten minutes from now. Get ready!", opensAt.Format("15:04"))
}

// reminderTask nudges members whose daily time is lead away. Each tick scans
// the [now+lead, now+lead+tick) wall-clock slice so consecutive ticks never
// pick the same course twice, and the dedup key absorbs restarts.
func reminderTask(d *Deps, kind string, lead time.Duration, text func(time.Time) string) Task {
	return Task{
		Name: "reminder-" + kind,
		Run: func() error {
			now := d.Clock.Now()
			from, to := tdRange(now, lead, lead+d.Prog.TickInterval)
			list, err := d.Courses.ActiveInWindow(from, to)
			if err != nil {
				return err
			}

			for _, c := range list {
				if c.IntakeAt == nil || c.Done() {
					continue
				}
				// a pending review for the upcoming day means the member
				// already submitted; no nudge needed
				if exists, err := d.Intakes.HasLog(c.ID, c.CurrentDay+1); err != nil || exists {
					continue
				}

				opensAt := c.IntakeAt.On(now.Add(lead)).Add(-d.Prog.WindowBefore)
				c := c
				err := d.once(c.ID, "remind-"+kind, func() error {
					m, ok := d.member(c)
					if !ok {
						return nil
					}
					d.Notifier.NotifyMember(m.ChatID, text(opensAt))
					return nil
				})
				if err != nil {
					d.Logger.Error(fmt.Sprintf("scheduler: reminding course %d", c.ID), err)
				}
			}
			return nil
		},
	}
}
