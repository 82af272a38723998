package main

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Task is a long-running unit of work owned by the supervisor. Run returns
// when ctx is cancelled; any other return, or a panic, counts as a crash.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// periodic builds a task that calls tick every interval. Errors from tick
// are transient: they are logged and the loop carries on. Panics escape to
// the supervisor.
func periodic(name string, interval time.Duration, log *Logger, tick func() error) Task {
	log = log.With("loop", name)
	return Task{
		Name: name,
		Run: func(ctx context.Context) error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					if err := tick(); err != nil {
						log.Fault("tick failed", err)
					}
				}
			}
		},
	}
}

// gameTasks returns the spawner, per-class movement, collision and state
// loops for g.
func gameTasks(g *Game, cfg *Config, log *Logger) []Task {
	l := cfg.Loops
	return []Task{
		periodic("spawner", l.Spawner.Duration(), log, g.running(func() error { return g.spawnEnemiesLocked(g.now()) })),
		periodic("boats", l.Boat.Duration(), log, g.running(func() error { return g.moveEnemiesLocked(KindBoat) })),
		periodic("jets", l.Jet.Duration(), log, g.running(func() error { return g.moveEnemiesLocked(KindJet) })),
		periodic("helicopters", l.Helicopter.Duration(), log, g.running(func() error { return g.moveEnemiesLocked(KindHelicopter) })),
		periodic("missiles", l.Missile.Duration(), log, g.running(g.moveMissilesLocked)),
		periodic("fuel", l.Fuel.Duration(), log, g.running(func() error { return g.fuelStepLocked(g.now()) })),
		periodic("collision", l.Collision.Duration(), log, g.running(func() error { g.checkCollisionsLocked(); return nil })),
		periodic("state", l.State.Duration(), log, g.running(func() error { g.stateStepLocked(); return nil })),
	}
}

// running adapts a locked step into a tick that is skipped once the game
// is over.
func (g *Game) running(step func() error) func() error {
	return func() error {
		_, err := g.whileRunning(step)
		return err
	}
}

func (g *Game) spawnChance(kind EntityKind) (float64, time.Duration) {
	s := g.cfg.Spawn
	switch kind {
	case KindBoat:
		return s.BoatChance, s.BoatCooldown.Duration()
	case KindJet:
		return s.JetChance, s.JetCooldown.Duration()
	case KindHelicopter:
		return s.HelicopterChance, s.HelicopterCooldown.Duration()
	case KindFuelDepot:
		return s.FuelChance, s.FuelCooldown.Duration()
	}
	return 0, 0
}

// rollSpawn reports whether kind may spawn now: its cooldown has elapsed and
// the probability roll succeeded. A success starts a new cooldown.
func (g *Game) rollSpawn(kind EntityKind, now time.Time) bool {
	chance, cooldown := g.spawnChance(kind)
	if now.Before(g.nextSpawn[kind]) || g.rng.Float64() >= chance {
		return false
	}
	g.nextSpawn[kind] = now.Add(cooldown)
	return true
}

func (g *Game) spawnEnemiesLocked(now time.Time) error {
	for _, kind := range enemyKinds {
		if len(g.enemies) >= g.cfg.Limits.MaxEnemies {
			return nil
		}
		if !g.rollSpawn(kind, now) {
			continue
		}
		x := float64(g.rng.Intn(g.cfg.BoardWidth))
		e := g.pool.AcquireEnemy(kind, x, 0, g.rng)
		if e == nil {
			return fmt.Errorf("pool returned no %s", kind)
		}
		g.addEnemyLocked(e)
	}
	return nil
}

// moveEnemiesLocked moves every enemy of one kind and drops those that left
// the board. Enemies with corrupt positions are discarded and reported.
func (g *Game) moveEnemiesLocked(kind EntityKind) error {
	var errs []error
	for i, e := range g.enemies {
		if e == nil {
			errs = append(errs, fmt.Errorf("nil enemy at index %d", i))
			continue
		}
		if e.Kind() != kind || !e.Alive() {
			continue
		}
		e.Move(g.board, g.rng)
		if b := e.Box(); !finite(b.X, b.Y) {
			e.base().kill()
			errs = append(errs, fmt.Errorf("%s at index %d has invalid position", kind, i))
		}
	}
	g.sweepEnemiesLocked()
	return errors.Join(errs...)
}

func (g *Game) moveMissilesLocked() error {
	var errs []error
	for i, m := range g.missiles {
		if !m.Alive() {
			continue
		}
		m.Move(g.enemies)
		if !finite(m.X, m.Y) {
			m.kill()
			errs = append(errs, fmt.Errorf("missile at index %d has invalid position", i))
		}
	}
	g.sweepMissilesLocked()
	return errors.Join(errs...)
}

// fuelStepLocked may spawn a depot, then moves all depots down.
func (g *Game) fuelStepLocked(now time.Time) error {
	if len(g.depots) < g.cfg.Limits.MaxFuelDepots && g.rollSpawn(KindFuelDepot, now) {
		x := float64(g.rng.Intn(g.cfg.BoardWidth))
		g.addFuelDepotLocked(g.pool.AcquireFuelDepot(x, 0))
	}
	for _, f := range g.depots {
		if f.Alive() {
			f.Move(g.board)
		}
	}
	g.sweepDepotsLocked()
	return nil
}

// stateStepLocked burns one fuel every FuelTicks ticks and awards one point
// every ScoreTicks ticks.
func (g *Game) stateStepLocked() {
	g.tick++
	g.fuelTicks++
	if g.fuelTicks >= g.cfg.Decay.FuelTicks {
		g.fuelTicks = 0
		g.updateFuelLocked(-1)
	}
	g.scoreTicks++
	if g.scoreTicks >= g.cfg.Decay.ScoreTicks {
		g.scoreTicks = 0
		g.updateScoreLocked(1)
	}
}
