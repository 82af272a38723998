package main

import (
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	MaxLives = 3
	MaxFuel  = 100
)

// Phase is the coarse game state
type Phase string

const (
	PhaseRunning  Phase = "running"
	PhaseGameOver Phase = "game_over"
)

// Game is the single authoritative store of game state. Every mutation and
// every read happens under mu; once the phase is game_over, only Reset
// changes anything.
type Game struct {
	mu     sync.Mutex
	cfg    *Config
	board  Board
	pool   *EntityPool
	grid   *SpatialGrid
	rng    *rand.Rand
	log    *Logger
	events EventSink
	now    func() time.Time

	id       string
	player   *Player
	enemies  []Enemy
	missiles []*Missile
	depots   []*FuelDepot
	score    int
	lives    int
	fuel     int
	phase    Phase
	tick     uint64

	fuelTicks  int
	scoreTicks int
	nextSpawn  [numKinds]time.Time
	candidates []int
}

// NewGame creates a running game. sink may be nil.
func NewGame(cfg *Config, pool *EntityPool, log *Logger, sink EventSink) *Game {
	if sink == nil {
		sink = nopSink{}
	}
	board := cfg.Board()
	g := &Game{
		cfg:    cfg,
		board:  board,
		pool:   pool,
		grid:   NewSpatialGrid(board, cfg.GridSize),
		rng:    newRand(cfg.Seed),
		log:    log.Component("game"),
		events: sink,
		now:    time.Now,
	}
	g.resetLocked()
	return g
}

// Reset returns every live entity to the pool and starts a fresh game. It
// works in any phase.
func (g *Game) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetLocked()
	g.events.Track(JournalEvent{Type: EventReset, GameID: g.id})
}

func (g *Game) resetLocked() {
	for i, e := range g.enemies {
		g.pool.Release(e)
		g.enemies[i] = nil
	}
	for i, m := range g.missiles {
		g.pool.Release(m)
		g.missiles[i] = nil
	}
	for i, f := range g.depots {
		g.pool.Release(f)
		g.depots[i] = nil
	}
	g.enemies = g.enemies[:0]
	g.missiles = g.missiles[:0]
	g.depots = g.depots[:0]

	g.id = uuid.NewString()
	g.player = NewPlayer(g.board)
	g.score = 0
	g.lives = MaxLives
	g.fuel = MaxFuel
	g.phase = PhaseRunning
	g.tick = 0
	g.fuelTicks = 0
	g.scoreTicks = 0
	g.nextSpawn = [numKinds]time.Time{}
}

// withLock runs fn while holding the store lock
func (g *Game) withLock(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn()
}

// whileRunning runs fn under the lock if the game is running. It reports
// whether fn ran along with fn's error.
func (g *Game) whileRunning(fn func() error) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhaseRunning {
		return false, nil
	}
	return true, fn()
}

// ID returns the current game id; it changes on every reset
func (g *Game) ID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.id
}

// Phase returns the current phase
func (g *Game) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// IsGameOver reports whether the game has ended
func (g *Game) IsGameOver() bool {
	return g.Phase() == PhaseGameOver
}

// AddEnemy stores e if the game is running and under the enemy cap. A
// rejected enemy goes back to the pool.
func (g *Game) AddEnemy(e Enemy) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addEnemyLocked(e)
}

func (g *Game) addEnemyLocked(e Enemy) bool {
	if e == nil {
		return false
	}
	if g.phase != PhaseRunning || len(g.enemies) >= g.cfg.Limits.MaxEnemies {
		g.pool.Release(e)
		return false
	}
	g.enemies = append(g.enemies, e)
	return true
}

// AddMissile stores m if the game is running and under the missile cap
func (g *Game) AddMissile(m *Missile) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addMissileLocked(m)
}

func (g *Game) addMissileLocked(m *Missile) bool {
	if m == nil {
		return false
	}
	if g.phase != PhaseRunning || len(g.missiles) >= g.cfg.Limits.MaxMissiles {
		g.pool.Release(m)
		return false
	}
	g.missiles = append(g.missiles, m)
	return true
}

// AddFuelDepot stores f if the game is running and under the depot cap
func (g *Game) AddFuelDepot(f *FuelDepot) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addFuelDepotLocked(f)
}

func (g *Game) addFuelDepotLocked(f *FuelDepot) bool {
	if f == nil {
		return false
	}
	if g.phase != PhaseRunning || len(g.depots) >= g.cfg.Limits.MaxFuelDepots {
		g.pool.Release(f)
		return false
	}
	g.depots = append(g.depots, f)
	return true
}

// RemoveEnemy removes e and returns it to the pool
func (g *Game) RemoveEnemy(e Enemy) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhaseRunning {
		return false
	}
	for i, cur := range g.enemies {
		if cur == e {
			g.enemies = slices.Delete(g.enemies, i, i+1)
			g.pool.Release(e)
			return true
		}
	}
	return false
}

// RemoveMissile removes m and returns it to the pool
func (g *Game) RemoveMissile(m *Missile) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhaseRunning {
		return false
	}
	for i, cur := range g.missiles {
		if cur == m {
			g.missiles = slices.Delete(g.missiles, i, i+1)
			g.pool.Release(m)
			return true
		}
	}
	return false
}

// RemoveFuelDepot removes f and returns it to the pool
func (g *Game) RemoveFuelDepot(f *FuelDepot) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhaseRunning {
		return false
	}
	for i, cur := range g.depots {
		if cur == f {
			g.depots = slices.Delete(g.depots, i, i+1)
			g.pool.Release(f)
			return true
		}
	}
	return false
}

// sweepEnemiesLocked drops dead or nil enemies, returning the dead ones to
// the pool.
func (g *Game) sweepEnemiesLocked() {
	kept := g.enemies[:0]
	for _, e := range g.enemies {
		if e == nil {
			continue
		}
		if e.Alive() {
			kept = append(kept, e)
		} else {
			g.pool.Release(e)
		}
	}
	clear(g.enemies[len(kept):])
	g.enemies = kept
}

func (g *Game) sweepMissilesLocked() {
	kept := g.missiles[:0]
	for _, m := range g.missiles {
		if m == nil {
			continue
		}
		if m.Alive() {
			kept = append(kept, m)
		} else {
			g.pool.Release(m)
		}
	}
	clear(g.missiles[len(kept):])
	g.missiles = kept
}

func (g *Game) sweepDepotsLocked() {
	kept := g.depots[:0]
	for _, f := range g.depots {
		if f == nil {
			continue
		}
		if f.Alive() {
			kept = append(kept, f)
		} else {
			g.pool.Release(f)
		}
	}
	clear(g.depots[len(kept):])
	g.depots = kept
}

// UpdateScore adds delta to the score. Negative deltas are ignored so the
// score never decreases.
func (g *Game) UpdateScore(delta int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updateScoreLocked(delta)
}

func (g *Game) updateScoreLocked(delta int) {
	if g.phase != PhaseRunning || delta <= 0 {
		return
	}
	g.score += delta
}

// UpdateLives adds delta to the lives, capped at MaxLives. Reaching zero ends
// the game.
func (g *Game) UpdateLives(delta int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updateLivesLocked(delta)
}

func (g *Game) updateLivesLocked(delta int) {
	if g.phase != PhaseRunning {
		return
	}
	g.lives = ClampInt(g.lives+delta, 0, MaxLives)
	if g.lives == 0 {
		g.endLocked()
	}
}

// UpdateFuel adds delta to the fuel, clamped to [0, MaxFuel]. Running dry
// costs a life and refills the tank unless that was the last life.
func (g *Game) UpdateFuel(delta int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updateFuelLocked(delta)
}

func (g *Game) updateFuelLocked(delta int) {
	if g.phase != PhaseRunning {
		return
	}
	g.fuel = ClampInt(g.fuel+delta, 0, MaxFuel)
	if g.fuel > 0 {
		return
	}
	g.updateLivesLocked(-1)
	if g.phase == PhaseRunning {
		g.fuel = MaxFuel
	}
}

func (g *Game) endLocked() {
	g.phase = PhaseGameOver
	g.log.Info("game over", "game", g.id, "score", g.score)
	g.events.Track(JournalEvent{Type: EventGameOver, GameID: g.id, Score: g.score})
}

// shootLocked fires a missile of the player's current type from the muzzle
func (g *Game) shootLocked() bool {
	if len(g.missiles) >= g.cfg.Limits.MaxMissiles {
		return false
	}
	x, y := g.player.Muzzle()
	return g.addMissileLocked(g.pool.AcquireMissile(x, y, g.player.MissileType))
}

// Snapshot returns a detached copy of the whole game state
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Game) snapshotLocked() Snapshot {
	s := Snapshot{
		GameID:      g.id,
		Player:      PositionState{X: round1(g.player.X), Y: round1(g.player.Y)},
		Enemies:     make([]EnemyState, 0, len(g.enemies)),
		FuelDepots:  make([]PositionState, 0, len(g.depots)),
		Missiles:    make([]MissileState, 0, len(g.missiles)),
		Score:       g.score,
		Lives:       g.lives,
		Fuel:        g.fuel,
		Phase:       g.phase,
		Speed:       g.player.Speed,
		MissileType: g.player.MissileType,
		Tick:        g.tick,
	}
	for _, e := range g.enemies {
		if e == nil || !e.Alive() {
			continue
		}
		b := e.Box()
		s.Enemies = append(s.Enemies, EnemyState{X: round1(b.X), Y: round1(b.Y), Type: e.Kind().Code()})
	}
	for _, f := range g.depots {
		if f.Alive() {
			s.FuelDepots = append(s.FuelDepots, PositionState{X: round1(f.X), Y: round1(f.Y)})
		}
	}
	for _, m := range g.missiles {
		if m.Alive() {
			s.Missiles = append(s.Missiles, MissileState{X: round1(m.X), Y: round1(m.Y), Type: m.Type})
		}
	}
	return s
}
