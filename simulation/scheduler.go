// File: simulation/scheduler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scheduler is a periodic heartbeat built on top of the teacher-descended
// internal/concurrency.Scheduler priority timer queue: each tick
// reschedules itself interval later, rather than re-implementing a second
// ticker loop.

package simulation

import (
	"time"

	"github.com/momentics/hioload-ws/internal/concurrency"
)

// HeartbeatFunc runs once per tick.
type HeartbeatFunc func()

// Scheduler invokes a HeartbeatFunc on a fixed interval, or on demand via
// Kick, until Stop is called.
type Scheduler struct {
	interval time.Duration
	fn       HeartbeatFunc
	timer    *concurrency.Scheduler
}

// NewScheduler constructs a Scheduler that calls fn every interval.
func NewScheduler(interval time.Duration, fn HeartbeatFunc) *Scheduler {
	return &Scheduler{interval: interval, fn: fn, timer: concurrency.NewScheduler()}
}

// Run blocks, invoking fn on every tick and on every Kick, until Stop is
// called.
func (s *Scheduler) Run() {
	var tick func()
	tick = func() {
		s.fn()
		s.timer.Schedule(time.Now().Add(s.interval), tick)
	}
	s.timer.Schedule(time.Now().Add(s.interval), tick)
	s.timer.Run()
}

// Kick requests an out-of-band tick as soon as the scheduler goroutine is
// free.
func (s *Scheduler) Kick() {
	s.timer.Schedule(time.Now(), s.fn)
}

// Stop signals Run to exit and waits for it to return.
func (s *Scheduler) Stop() {
	s.timer.Stop()
}
