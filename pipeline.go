package main

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// Pipeline is the bounded queue between transports and the game. Submit
// never blocks; a single consumer applies commands at a limited rate.
type Pipeline struct {
	game    *Game
	queue   chan Command
	limiter *rate.Limiter
	log     *Logger

	onQuit   func()
	quitOnce sync.Once

	accepted atomic.Uint64
	dropped  atomic.Uint64
}

// NewPipeline creates a pipeline holding at most capacity pending commands.
// onQuit runs once, the first time quit_game is submitted.
func NewPipeline(g *Game, capacity int, perSecond float64, log *Logger, onQuit func()) *Pipeline {
	return &Pipeline{
		game:    g,
		queue:   make(chan Command, capacity),
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		log:     log.Component("pipeline"),
		onQuit:  onQuit,
	}
}

// Submit enqueues cmd without blocking. reset_game and quit_game are applied
// immediately. It returns false if the queue was full and cmd was dropped.
func (p *Pipeline) Submit(cmd Command) bool {
	switch cmd.Action {
	case ActionReset:
		p.game.Reset()
		p.log.Info("game reset")
		return true
	case ActionQuit:
		p.quit()
		return true
	}

	select {
	case p.queue <- cmd:
		p.accepted.Add(1)
		return true
	default:
		n := p.dropped.Add(1)
		p.log.Debug("command dropped", "action", cmd.Action, "dropped_total", n)
		return false
	}
}

// Run consumes queued commands until ctx is cancelled
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		if err := p.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-p.queue:
			p.apply(cmd)
		}
	}
}

// apply executes one queued command. Player commands are ignored once the
// game is over.
func (p *Pipeline) apply(cmd Command) {
	p.game.withLock(func() {
		g := p.game
		if g.phase != PhaseRunning {
			return
		}
		switch cmd.Action {
		case ActionMove:
			g.player.Move(cmd.Direction, g.board)
		case ActionShoot:
			g.shootLocked()
		case ActionSwitchMissile:
			g.player.SwitchMissile()
		case ActionAccelerate:
			g.player.Accelerate()
		case ActionDecelerate:
			g.player.Decelerate()
		}
	})
}

func (p *Pipeline) quit() {
	p.quitOnce.Do(func() {
		p.log.Info("quit requested")
		if p.onQuit != nil {
			p.onQuit()
		}
	})
}

// Pending returns the number of queued commands
func (p *Pipeline) Pending() int {
	return len(p.queue)
}

// Stats returns accepted and dropped command counts
func (p *Pipeline) Stats() (accepted, dropped uint64) {
	return p.accepted.Load(), p.dropped.Load()
}

// Task wraps the consumer for the supervisor
func (p *Pipeline) Task() Task {
	return Task{Name: "commands", Run: p.Run}
}
