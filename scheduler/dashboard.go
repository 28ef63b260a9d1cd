package scheduler

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aktamov/davomat/core/course"
)

const (
	dashboardMsgKey = "dashboard_msg"
	dashboardKeyTTL = 30 * 24 * time.Hour
)

// dashboardTask keeps a single status summary pinned in the staff group's
// general thread, editing the same message in place each tick. "Message not
// modified" responses are mapped to success inside the chat client, so an
// unchanged summary costs nothing.
func dashboardTask(d *Deps) Task {
	return Task{
		Name: "dashboard",
		Run: func() error {
			text, err := d.dashboardText()
			if err != nil {
				return err
			}

			if v, ok, err := d.Cache.Get(dashboardMsgKey); err == nil && ok {
				if msgID, err := strconv.ParseInt(v, 10, 64); err == nil {
					if err := d.Chat.EditMessage(d.GroupID, msgID, text); err == nil {
						return nil
					}
					// the pinned message was deleted; fall through and post anew
				}
			}

			msgID, err := d.Chat.SendMessage(d.GroupID, d.GeneralThreadID, text)
			if err != nil {
				return err
			}
			if err := d.Cache.SetWithTTL(dashboardMsgKey, strconv.FormatInt(msgID, 10), dashboardKeyTTL); err != nil {
				d.Logger.Warn("scheduler: saving dashboard message id", err)
			}
			return nil
		},
	}
}

func (d *Deps) dashboardText() (string, error) {
	counts := make(map[course.Status]int)
	for _, s := range []course.Status{
		course.StatusActive, course.StatusAppeal, course.StatusRefused, course.StatusCompleted,
	} {
		list, err := d.Courses.ByStatus(s)
		if err != nil {
			return "", err
		}
		counts[s] = len(list)
	}

	return fmt.Sprintf(
		"Program dashboard, %s\nActive: %d\nOn appeal: %d\nRefused: %d\nCompleted: %d",
		d.Clock.Now().Format("2006-01-02 15:04"),
		counts[course.StatusActive],
		counts[course.StatusAppeal],
		counts[course.StatusRefused],
		counts[course.StatusCompleted],
	), nil
}
