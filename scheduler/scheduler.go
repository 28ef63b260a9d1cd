// Package scheduler runs the periodic compliance sweeps: reminders ahead of
// each member's daily window, strike and removal sweeps behind it, deadline
// expiries, and housekeeping. Every task is written to be safe to re-run;
// side effects that must happen at most once per day go through the cache
// dedup in Deps.once.
package scheduler

import (
	"fmt"
	"time"

	"github.com/aktamov/davomat/core"
)

type (
	// Task is one named sweep. Run scans for due work and performs it; it
	// must tolerate being invoked again over the same state.
	Task struct {
		Name string
		Run  func() error
	}

	// Scheduler drives the task catalogue on a fixed tick. One goroutine,
	// tasks in order; a panicking or failing task is logged and never stops
	// the loop or its siblings.
	Scheduler struct {
		interval time.Duration
		tasks    []Task
		logger   core.Logger

		stop chan struct{}
		done chan struct{}
	}
)

func New(interval time.Duration, logger core.Logger, tasks ...Task) *Scheduler {
	return &Scheduler{
		interval: interval,
		tasks:    tasks,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the tick loop. The first sweep runs one interval after
// Start, not immediately; dedup keys from a previous process are still
// honored either way.
func (s *Scheduler) Start() {
	go s.loop()
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Scheduler) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.RunAll()
		}
	}
}

// RunAll executes one full sweep of every task, in catalogue order.
func (s *Scheduler) RunAll() {
	for _, t := range s.tasks {
		s.runTask(t)
	}
}

func (s *Scheduler) runTask(t Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(fmt.Sprintf("scheduler: task %s panicked", t.Name), fmt.Errorf("%v", r))
		}
	}()

	if err := t.Run(); err != nil {
		s.logger.Error(fmt.Sprintf("scheduler: task %s failed", t.Name), err)
	}
}
