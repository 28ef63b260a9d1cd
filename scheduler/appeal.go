package scheduler

import (
	"fmt"
	"time"

	"github.com/aktamov/davomat/core"
	"github.com/aktamov/davomat/core/course"
)

const appealKeyTTL = 72 * time.Hour

func appealDeadlineKey(courseID int) string {
	return fmt.Sprintf("appeal_deadline:%d", courseID)
}

// appealDeadlineTask closes appeals the staff never decided. The deadline is
// pinned in the cache on the first sweep after the appeal starts; recomputing
// it every tick would let it drift forward forever. Losing the key only
// extends the member's appeal by a day.
func appealDeadlineTask(d *Deps) Task {
	return Task{
		Name: "appeal-deadline",
		Run: func() error {
			list, err := d.Courses.ByStatus(course.StatusAppeal)
			if err != nil {
				return err
			}

			now := d.Clock.Now()
			for _, c := range list {
				deadline, err := d.appealDeadline(c)
				if err != nil {
					d.Logger.Error(fmt.Sprintf("scheduler: appeal deadline for course %d", c.ID), err)
					continue
				}
				if now.Before(deadline) {
					continue
				}

				if err := d.Courses.ExpireAppeal(c); err != nil {
					if err == core.ErrAlreadyHandled {
						continue
					}
					d.Logger.Error(fmt.Sprintf("scheduler: expiring appeal for course %d", c.ID), err)
					continue
				}
				if err := d.Cache.Delete(appealDeadlineKey(c.ID)); err != nil {
					d.Logger.Warn(fmt.Sprintf("scheduler: dropping appeal deadline key for course %d", c.ID), err)
				}

				refused, err := d.Courses.Get(c.ID)
				if err != nil {
					d.Logger.Error(fmt.Sprintf("scheduler: reloading course %d", c.ID), err)
					continue
				}
				if m, ok := d.member(refused); ok {
					d.Notifier.RunClosure(refused, m)
				}
			}
			return nil
		},
	}
}

func (d *Deps) appealDeadline(c course.Course) (time.Time, error) {
	key := appealDeadlineKey(c.ID)
	if v, ok, err := d.Cache.Get(key); err == nil && ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, nil
		}
	}

	deadline := d.Courses.ResponseDeadline(c)
	if err := d.Cache.SetWithTTL(key, deadline.Format(time.RFC3339), appealKeyTTL); err != nil {
		return time.Time{}, err
	}
	return deadline, nil
}

// appealExpiryTask finalizes refused courses whose appeal window lapsed with
// the button never pressed: refused → expired, and the member learns the
// option is gone. The status change keeps re-runs empty.
func appealExpiryTask(d *Deps) Task {
	return Task{
		Name: "appeal-expiry",
		Run: func() error {
			list, err := d.Courses.RefusedWithExpiredAppeal()
			if err != nil {
				return err
			}
			if len(list) == 0 {
				return nil
			}

			ids := make([]int, 0, len(list))
			for _, c := range list {
				ids = append(ids, c.ID)
			}
			if err := d.Courses.Expire(ids); err != nil {
				return err
			}

			for _, c := range list {
				if m, ok := d.member(c); ok {
					d.Notifier.NotifyMember(m.ChatID, "The appeal window has closed. The course stays closed.")
				}
			}
			return nil
		},
	}
}
