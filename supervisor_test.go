package main

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		MaxRestartAttempts:  3,
		HealthCheckInterval: 0.05,
		ShutdownTimeout:     0.5,
	}
}

// blocking runs until cancelled
func blocking(name string) Task {
	return Task{Name: name, Run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSupervisorRestartsPanickedTask(t *testing.T) {
	var runs atomic.Int32
	flaky := Task{Name: "flaky", Run: func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			panic("boom")
		}
		<-ctx.Done()
		return ctx.Err()
	}}

	var restarted atomic.Value
	s := NewSupervisor(testSupervisorConfig(), testLogger(), flaky, blocking("steady"))
	s.OnRestart = func(name string, attempt int, cause error) {
		restarted.Store(name + ":" + cause.Error())
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	waitFor(t, 2*time.Second, func() bool { return runs.Load() >= 2 })

	got, _ := restarted.Load().(string)
	if !strings.HasPrefix(got, "flaky:") || !strings.Contains(got, "boom") {
		t.Errorf("expected restart of flaky with panic cause, got %q", got)
	}
	st := s.Status()["flaky"]
	if st.Restarts != 1 {
		t.Errorf("expected 1 restart, got %d", st.Restarts)
	}
	if !s.Status()["steady"].Alive {
		t.Error("steady task should be unaffected")
	}
}

func TestSupervisorFatalAfterBudget(t *testing.T) {
	var runs atomic.Int32
	broken := Task{Name: "broken", Run: func(ctx context.Context) error {
		runs.Add(1)
		panic("always")
	}}

	fatal := make(chan error, 1)
	cfg := testSupervisorConfig()
	cfg.HealthCheckInterval = 10
	s := NewSupervisor(cfg, testLogger(), broken, blocking("steady"))
	s.OnFatal = func(cause error) { fatal <- cause }
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case err := <-fatal:
		if !strings.Contains(err.Error(), "broken") {
			t.Errorf("expected fatal cause to name the task, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("expected OnFatal after the restart budget")
	}
	if n := runs.Load(); n != 4 {
		t.Errorf("expected 1 run plus 3 restarts, got %d", n)
	}
	select {
	case <-s.Done():
	default:
		t.Error("supervisor should be stopped after a fatal failure")
	}
}

func TestSupervisorResetsAttemptsWhenHealthy(t *testing.T) {
	var runs atomic.Int32
	task := Task{Name: "recovering", Run: func(ctx context.Context) error {
		if runs.Add(1) <= 2 {
			return errors.New("startup failure")
		}
		<-ctx.Done()
		return ctx.Err()
	}}

	s := NewSupervisor(testSupervisorConfig(), testLogger(), task)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	waitFor(t, 2*time.Second, func() bool {
		st := s.Status()["recovering"]
		return st.Restarts == 2 && st.Attempts == 0
	})
}

func TestSupervisorEarlyReturnIsCrash(t *testing.T) {
	var runs atomic.Int32
	task := Task{Name: "quitter", Run: func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			return nil
		}
		<-ctx.Done()
		return ctx.Err()
	}}

	s := NewSupervisor(testSupervisorConfig(), testLogger(), task)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	waitFor(t, 2*time.Second, func() bool { return s.Status()["quitter"].Restarts == 1 })
}

func TestSupervisorStopTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	stuck := Task{Name: "stuck", Run: func(ctx context.Context) error {
		<-release
		return nil
	}}

	cfg := testSupervisorConfig()
	cfg.ShutdownTimeout = 0.05
	s := NewSupervisor(cfg, testLogger(), stuck, blocking("fine"))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	err := s.Stop()
	if err == nil {
		t.Fatal("expected an error for the stuck task")
	}
	if !strings.Contains(err.Error(), "stuck") || strings.Contains(err.Error(), "fine") {
		t.Errorf("expected only stuck reported, got %v", err)
	}
}

func TestSupervisorDoubleStart(t *testing.T) {
	s := NewSupervisor(testSupervisorConfig(), testLogger(), blocking("a"))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()
	if err := s.Start(context.Background()); !errors.Is(err, ErrSupervisorRunning) {
		t.Errorf("expected ErrSupervisorRunning, got %v", err)
	}
}

func TestSupervisorStopBeforeStart(t *testing.T) {
	s := NewSupervisor(testSupervisorConfig(), testLogger(), blocking("a"))
	if err := s.Stop(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	select {
	case <-s.Done():
	default:
		t.Error("Done should close after Stop")
	}
}
