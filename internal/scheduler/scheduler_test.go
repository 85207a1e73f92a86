package scheduler

import (
	"context"
	"testing"

	"inbox-scorer-go/internal/config"
	"inbox-scorer-go/internal/pipeline"
)

// dummyRunner implements Runner and records invocations
type dummyRunner struct {
	runs int
}

func (d *dummyRunner) Run(ctx context.Context) (*pipeline.RunReport, error) {
	d.runs++
	return &pipeline.RunReport{Stats: pipeline.Stats{Scored: 1}}, nil
}

func TestSchedulerRestart(t *testing.T) {
	cfg := &config.SchedulerConfig{IntervalMinutes: 60}
	sched := NewScheduler(cfg, &dummyRunner{})

	if err := sched.Start(); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if !sched.IsRunning() {
		t.Fatalf("scheduler should be running after Start")
	}
	if err := sched.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if sched.IsRunning() {
		t.Fatalf("scheduler should not be running after Stop")
	}
	if err := sched.Start(); err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	if !sched.IsRunning() {
		t.Fatalf("scheduler should be running after second Start")
	}
	// context should be active
	if sched.ctx == nil || sched.ctx.Err() != nil {
		t.Fatalf("scheduler context should be active after restart")
	}
	sched.Stop()
}

func TestSchedulerDoubleStart(t *testing.T) {
	sched := NewScheduler(&config.SchedulerConfig{IntervalMinutes: 60}, &dummyRunner{})

	if err := sched.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := sched.Start(); err == nil {
		t.Fatalf("second start should fail while running")
	}
	sched.Stop()
}

func TestSchedulerRunOnceKeepsReport(t *testing.T) {
	runner := &dummyRunner{}
	sched := NewScheduler(&config.SchedulerConfig{IntervalMinutes: 60}, runner)

	report, err := sched.RunOnce()
	if err != nil {
		t.Fatalf("run once failed: %v", err)
	}
	if report == nil || report.Stats.Scored != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if runner.runs != 1 {
		t.Fatalf("expected 1 run, got %d", runner.runs)
	}
	if sched.LastReport() != report {
		t.Fatalf("last report should be retained")
	}
}
