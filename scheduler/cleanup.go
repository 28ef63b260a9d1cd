package scheduler

import "fmt"

// threadCleanupTask deletes collaboration threads of members whose course
// ended more than the retention period ago, then forgets the thread id so the
// next enrollment starts fresh.
func threadCleanupTask(d *Deps) Task {
	return Task{
		Name: "thread-cleanup",
		Run: func() error {
			members, err := d.Members.WithThread()
			if err != nil {
				return err
			}
			if len(members) == 0 {
				return nil
			}

			ids := make([]int, 0, len(members))
			for _, m := range members {
				ids = append(ids, m.ID)
			}
			ended, err := d.Courses.EndedMembers(ids)
			if err != nil {
				return err
			}

			for _, m := range members {
				if !ended[m.ID] {
					continue
				}
				if err := d.Chat.DeleteThread(d.GroupID, m.ThreadID); err != nil {
					d.Logger.Warn(fmt.Sprintf("scheduler: deleting thread %d", m.ThreadID), err)
					continue
				}
				if err := d.Members.ClearThread(m.ID); err != nil {
					d.Logger.Error(fmt.Sprintf("scheduler: clearing thread for member %d", m.ID), err)
				}
			}
			return nil
		},
	}
}

// setupCleanupTask purges enrollments that never finished setup. A member
// left with no course at all is removed too, so a later /start re-registers
// from scratch.
func setupCleanupTask(d *Deps) Task {
	return Task{
		Name: "setup-cleanup",
		Run: func() error {
			list, err := d.Courses.AbandonedSetup()
			if err != nil {
				return err
			}
			for _, c := range list {
				orphaned, err := d.Courses.Purge(c)
				if err != nil {
					d.Logger.Error(fmt.Sprintf("scheduler: purging course %d", c.ID), err)
					continue
				}
				if !orphaned {
					continue
				}
				if err := d.Members.Remove(c.MemberID); err != nil {
					d.Logger.Error(fmt.Sprintf("scheduler: removing member %d", c.MemberID), err)
				}
			}
			return nil
		},
	}
}
