package main

import (
	"context"
	"sync"
)

// Engine wires the store, pool, loops, command pipeline and supervisor for
// one game session.
type Engine struct {
	cfg        *Config
	log        *Logger
	pool       *EntityPool
	game       *Game
	pipeline   *Pipeline
	supervisor *Supervisor

	quit     chan struct{}
	quitOnce sync.Once
}

// NewEngine builds an engine. Nothing runs until Start. sink may be nil.
func NewEngine(cfg *Config, log *Logger, sink EventSink) *Engine {
	if sink == nil {
		sink = nopSink{}
	}
	e := &Engine{
		cfg:  cfg,
		log:  log.Component("engine"),
		pool: NewEntityPool(cfg.Limits.PoolSize),
		quit: make(chan struct{}),
	}
	e.game = NewGame(cfg, e.pool, log, sink)
	e.pipeline = NewPipeline(e.game, cfg.Commands.QueueCapacity, cfg.Commands.RatePerSecond, log, e.requestQuit)

	tasks := append(gameTasks(e.game, cfg, log), e.pipeline.Task())
	e.supervisor = NewSupervisor(cfg.Supervisor, log, tasks...)
	e.supervisor.OnRestart = func(name string, attempt int, cause error) {
		sink.Track(JournalEvent{Type: EventLoopRestart, GameID: e.game.ID(), Detail: name + ": " + cause.Error()})
	}
	return e
}

// Start launches all loops under supervision
func (e *Engine) Start(ctx context.Context) error {
	return e.supervisor.Start(ctx)
}

// Stop stops all loops, waiting up to the shutdown timeout
func (e *Engine) Stop() error {
	return e.supervisor.Stop()
}

// OnFatal sets the handler run after the supervisor gives up. Set it before
// Start.
func (e *Engine) OnFatal(fn func(error)) {
	e.supervisor.OnFatal = fn
}

// ProcessCommand validates and submits cmd and returns the state as of now.
// A command dropped by a full queue still reports ok.
func (e *Engine) ProcessCommand(cmd Command) Result {
	if err := cmd.Validate(); err != nil {
		return Result{Status: StatusError, Error: err.Error(), State: e.game.Snapshot()}
	}
	e.pipeline.Submit(cmd)
	return Result{Status: StatusOK, State: e.game.Snapshot()}
}

// Snapshot returns the current state
func (e *Engine) Snapshot() Snapshot {
	return e.game.Snapshot()
}

// Health returns per-loop supervisor status
func (e *Engine) Health() map[string]TaskStatus {
	return e.supervisor.Status()
}

// Quit is closed once a player sent quit_game
func (e *Engine) Quit() <-chan struct{} {
	return e.quit
}

// Done is closed once the loops have been stopped
func (e *Engine) Done() <-chan struct{} {
	return e.supervisor.Done()
}

func (e *Engine) requestQuit() {
	e.quitOnce.Do(func() {
		close(e.quit)
		go func() {
			if err := e.Stop(); err != nil {
				e.log.Error("stop after quit", "error", err)
			}
		}()
	})
}
