package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrSupervisorRunning = errors.New("supervisor already started")
	errTaskReturned      = errors.New("task returned before shutdown")
)

// TaskStatus is a health view of one supervised task
type TaskStatus struct {
	Alive    bool `json:"alive"`
	Attempts int  `json:"attempts"` // restarts since the task was last healthy
	Restarts int  `json:"restarts"` // restarts since start
}

type taskState struct {
	task      Task
	attempts  int
	restarts  int
	startedAt time.Time
	alive     bool
	done      chan struct{}
}

type taskExit struct {
	name string
	err  error
}

// Supervisor runs tasks, restarts crashed ones within a budget and tears
// everything down once a task exhausts it.
type Supervisor struct {
	maxRestarts     int
	healthInterval  time.Duration
	shutdownTimeout time.Duration
	log             *Logger

	// OnRestart is called from the monitor goroutine before a restart. It
	// must not call back into the supervisor.
	OnRestart func(name string, attempt int, cause error)
	// OnFatal is called after shutdown when a task exhausts its budget
	OnFatal func(cause error)

	mu      sync.Mutex
	tasks   []Task
	states  map[string]*taskState
	started bool
	ctx     context.Context
	cancel  context.CancelFunc

	exits       chan taskExit
	monitorDone chan struct{}
	stopped     chan struct{}
	stopOnce    sync.Once
}

// NewSupervisor creates a supervisor for tasks
func NewSupervisor(cfg SupervisorConfig, log *Logger, tasks ...Task) *Supervisor {
	return &Supervisor{
		maxRestarts:     cfg.MaxRestartAttempts,
		healthInterval:  cfg.HealthCheckInterval.Duration(),
		shutdownTimeout: cfg.ShutdownTimeout.Duration(),
		log:             log.Component("supervisor"),
		tasks:           tasks,
		states:          make(map[string]*taskState, len(tasks)),
		exits:           make(chan taskExit, len(tasks)),
		monitorDone:     make(chan struct{}),
		stopped:         make(chan struct{}),
	}
}

// Start launches every task and the monitor. It can only be called once.
func (s *Supervisor) Start(parent context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrSupervisorRunning
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(parent)
	for _, t := range s.tasks {
		st := &taskState{task: t}
		s.states[t.Name] = st
		s.launchLocked(st)
	}
	go s.monitor()
	s.log.Info("supervisor started", "tasks", len(s.tasks))
	return nil
}

func (s *Supervisor) launchLocked(st *taskState) {
	st.alive = true
	st.startedAt = time.Now()
	st.done = make(chan struct{})
	go s.run(st.task, st.done)
}

// run executes one task instance and reports how it ended
func (s *Supervisor) run(t Task, done chan struct{}) {
	defer close(done)
	err := runTask(s.ctx, t)
	if s.ctx.Err() != nil {
		return
	}
	select {
	case s.exits <- taskExit{name: t.Name, err: err}:
	case <-s.ctx.Done():
	}
}

func runTask(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if err := t.Run(ctx); err != nil {
		return err
	}
	return errTaskReturned
}

func (s *Supervisor) monitor() {
	defer close(s.monitorDone)
	ticker := time.NewTicker(s.healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case exit := <-s.exits:
			if !s.handleExit(exit) {
				go s.fail(exit)
				return
			}
		case <-ticker.C:
			s.checkHealth()
		}
	}
}

// handleExit restarts a crashed task. It returns false when the task has
// used up its restart budget.
func (s *Supervisor) handleExit(exit taskExit) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[exit.name]
	st.alive = false
	if st.attempts >= s.maxRestarts {
		return false
	}
	st.attempts++
	st.restarts++
	s.log.Warn("task crashed, restarting", "task", exit.name, "attempt", st.attempts, "error", exit.err)
	if s.OnRestart != nil {
		s.OnRestart(exit.name, st.attempts, exit.err)
	}
	s.launchLocked(st)
	return true
}

// checkHealth forgives tasks that stayed up for a full health interval
func (s *Supervisor) checkHealth() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for name, st := range s.states {
		if st.alive && st.attempts > 0 && now.Sub(st.startedAt) >= s.healthInterval {
			s.log.Info("task recovered", "task", name, "attempts", st.attempts)
			st.attempts = 0
		}
	}
}

func (s *Supervisor) fail(exit taskExit) {
	cause := fmt.Errorf("task %s exceeded %d restarts: %w", exit.name, s.maxRestarts, exit.err)
	s.log.Error("restart budget exhausted, shutting down", "task", exit.name, "error", exit.err)
	if err := s.Stop(); err != nil {
		s.log.Error("shutdown incomplete", "error", err)
	}
	if s.OnFatal != nil {
		s.OnFatal(cause)
	}
}

// Stop cancels every task and waits up to the shutdown timeout for them to
// return. Tasks still running after that are reported and abandoned.
func (s *Supervisor) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		defer close(s.stopped)
		s.mu.Lock()
		if !s.started {
			s.mu.Unlock()
			return
		}
		s.cancel()
		s.mu.Unlock()
		<-s.monitorDone

		s.mu.Lock()
		states := make(map[string]chan struct{}, len(s.states))
		for name, st := range s.states {
			states[name] = st.done
		}
		s.mu.Unlock()

		deadline := time.NewTimer(s.shutdownTimeout)
		defer deadline.Stop()
		var stuck []string
		expired := false
		for name, done := range states {
			if expired {
				select {
				case <-done:
				default:
					stuck = append(stuck, name)
				}
				continue
			}
			select {
			case <-done:
			case <-deadline.C:
				expired = true
				stuck = append(stuck, name)
			}
		}
		if len(stuck) > 0 {
			s.log.Error("tasks did not stop in time", "tasks", stuck)
			err = fmt.Errorf("tasks did not stop in time: %v", stuck)
			return
		}
		s.log.Info("supervisor stopped")
	})
	return err
}

// Done is closed once Stop has finished
func (s *Supervisor) Done() <-chan struct{} {
	return s.stopped
}

// Status returns a snapshot of every task's health
func (s *Supervisor) Status() map[string]TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]TaskStatus, len(s.states))
	for name, st := range s.states {
		out[name] = TaskStatus{Alive: st.alive, Attempts: st.attempts, Restarts: st.restarts}
	}
	return out
}
