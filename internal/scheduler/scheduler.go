// Package scheduler drives monitor cycles on an interval, with at most one cycle
// in flight and a graceful drain on shutdown.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"restockwatch/internal/components/assert"
	"restockwatch/internal/components/chrono"
	"restockwatch/internal/components/telemetry"
	"restockwatch/internal/monitor"
	"restockwatch/internal/notify"
)

const (
	report_scheduler_cycle        = "scheduler.cycle"
	report_scheduler_error_report = "scheduler.error-report"
	report_scheduler_skipped      = "scheduler.skipped"
)

type State int32

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Runner runs a single cycle, *monitor.Monitor implements it.
type Runner interface {
	RunCycle(ctx context.Context) (monitor.Result, error)
}

type Options struct {
	Interval time.Duration
	// Immediate runs a first cycle on Start instead of waiting for the first interval.
	Immediate bool
}

type Scheduler struct {
	runner     Runner
	cron       chrono.CronAPI
	dispatcher notify.Dispatcher
	time       chrono.TimeAPI
	opts       Options
	tel        telemetry.API

	state   atomic.Int32
	skipped atomic.Int64

	// mu guards stopped and the inflight counter so Stop cannot miss a cycle
	// that is just starting.
	mu       sync.Mutex
	stopped  bool
	inflight sync.WaitGroup
}

func New(
	runner Runner,
	cron chrono.CronAPI,
	dispatcher notify.Dispatcher,
	clock chrono.TimeAPI,
	opts Options,
	tel telemetry.API,
) *Scheduler {
	assert.NotNil(runner)
	assert.NotNil(cron)
	assert.NotNil(dispatcher)
	assert.NotNil(clock)
	assert.NotNil(tel)
	assert.Positive("interval", opts.Interval)

	return &Scheduler{
		runner:     runner,
		cron:       cron,
		dispatcher: dispatcher,
		time:       clock,
		opts:       opts,
		tel:        telemetry.NewScopedAPI("scheduler", tel),
	}
}

func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Skipped is the number of triggers dropped because a cycle was running.
func (s *Scheduler) Skipped() int64 {
	return s.skipped.Load()
}

// Start registers the interval trigger. Cycles started by the interval run on
// a context detached from ctx, so cancelling it never interrupts a cycle.
func (s *Scheduler) Start(ctx context.Context) error {
	err := s.cron.Every(s.opts.Interval, func() {
		s.Trigger(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()

	if s.opts.Immediate {
		go s.Trigger(ctx)
	}
	return nil
}

// Trigger runs a cycle in the calling goroutine if the scheduler is Idle and
// reports whether it did. A trigger arriving while a cycle runs is dropped,
// not queued.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	if !s.state.CompareAndSwap(int32(Idle), int32(Running)) {
		s.mu.Unlock()
		s.skipped.Add(1)
		s.tel.ReportDebug(report_scheduler_skipped, "cycle still running")
		return false
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	defer s.inflight.Done()
	defer s.state.Store(int32(Idle))

	s.cycle(context.WithoutCancel(ctx))
	return true
}

func (s *Scheduler) cycle(ctx context.Context) {
	err := s.runSafely(ctx)
	if err == nil {
		return
	}

	s.tel.ReportBroken(report_scheduler_cycle, err)
	sendErr := s.dispatcher.Send(ctx, notify.ErrorReport(err, s.time.Now()))
	if sendErr != nil {
		s.tel.ReportBroken(report_scheduler_error_report, sendErr)
	}
}

// runSafely turns a panicking cycle into an error, a single bad cycle must not
// take the process down.
func (s *Scheduler) runSafely(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panicked: %v", r)
		}
	}()
	_, err = s.runner.RunCycle(ctx)
	return err
}

// Stop prevents new cycles from starting and blocks until the cycle in flight,
// if any, has finished.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.inflight.Wait()
}

// Run starts the scheduler and drains it once ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	err := s.Start(ctx)
	if err != nil {
		return err
	}
	<-ctx.Done()
	s.tel.ReportDebug("shutting down, waiting for the running cycle")
	s.Stop()
	return nil
}
