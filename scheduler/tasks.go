package scheduler

import (
	"fmt"
	"time"

	"github.com/aktamov/davomat/core"
	"github.com/aktamov/davomat/core/course"
	"github.com/aktamov/davomat/core/intake"
	"github.com/aktamov/davomat/core/member"
)

type (
	// Notifier delivers member-facing messages and the course wind-down
	// sequence. Satisfied by *bot.Bot.
	Notifier interface {
		NotifyMember(chatID int64, text string, buttons ...core.Button)
		RunClosure(c course.Course, m member.Member)
	}

	// Deps are the collaborators shared by all tasks.
	Deps struct {
		Courses  *course.Service
		Intakes  *intake.Service
		Members  *member.Service
		Notifier Notifier

		Chat  core.Chat
		Cache core.Cache
		Clock core.Clock
		Prog  core.ProgramConfig

		GroupID         int64
		GeneralThreadID int64
		Logger          core.Logger
	}
)

// Tasks is the sweep catalogue, in execution order. Reminders run first so a
// tick never warns about a window it is about to act on.
func Tasks(d *Deps) []Task {
	return []Task{
		reminderTask(d, "60m", time.Hour, msgReminderHour),
		reminderTask(d, "10m", 10*time.Minute, msgReminderSoon),
		strikeTask(d),
		removalTask(d),
		reviewDeadlineTask(d),
		reshootDeadlineTask(d),
		appealDeadlineTask(d),
		appealExpiryTask(d),
		threadCleanupTask(d),
		setupCleanupTask(d),
		dashboardTask(d),
	}
}

// once runs fn at most once per course, local day and kind. The dedup key is
// committed only after fn succeeds, so a failed action is retried on the next
// tick. A cache outage degrades to a possible duplicate notification, never
// to a missed one.
func (d *Deps) once(courseID int, kind string, fn func() error) error {
	key := fmt.Sprintf("sent:%d:%s:%s", courseID, d.Clock.Now().Format("2006-01-02"), kind)

	if ok, err := d.Cache.Exists(key); err != nil {
		d.Logger.Warn(fmt.Sprintf("scheduler: dedup lookup for %s", key), err)
	} else if ok {
		return nil
	}

	if err := fn(); err != nil {
		return err
	}

	if err := d.Cache.SetWithTTL(key, "1", d.Prog.DedupTTL); err != nil {
		d.Logger.Warn(fmt.Sprintf("scheduler: dedup commit for %s", key), err)
	}
	return nil
}

// tdRange maps the absolute range [now+from, now+to) onto wall-clock bounds
// for the active-in-window query. The bounds may wrap midnight; the store
// handles a to before from.
func tdRange(now time.Time, from, to time.Duration) (course.TimeOfDay, course.TimeOfDay) {
	a := now.Add(from)
	b := now.Add(to)
	return course.TimeOfDay{Hour: a.Hour(), Minute: a.Minute()},
		course.TimeOfDay{Hour: b.Hour(), Minute: b.Minute()}
}

// member resolves the course owner, logging the (should-be-impossible) miss.
func (d *Deps) member(c course.Course) (member.Member, bool) {
	m, err := d.Members.Get(c.MemberID)
	if err != nil {
		d.Logger.Error(fmt.Sprintf("scheduler: member %d missing for course %d", c.MemberID, c.ID), err)
		return member.Member{}, false
	}
	return m, true
}

// submittedOrLogged reports whether the course already has today's submission
// in any form: the next day's log exists (pending review counts) or the day
// was already claimed against today's scheduled instant.
func (d *Deps) submittedOrLogged(c course.Course) bool {
	if exists, err := d.Intakes.HasLog(c.ID, c.CurrentDay+1); err != nil {
		d.Logger.Error(fmt.Sprintf("scheduler: log lookup for course %d", c.ID), err)
		return true
	} else if exists {
		return true
	}
	done, err := d.Intakes.SubmittedToday(c)
	if err != nil {
		d.Logger.Error(fmt.Sprintf("scheduler: submission lookup for course %d", c.ID), err)
		return true
	}
	return done
}
