package main

import (
	"io"
	"sync"
	"testing"
)

// recordingSink captures journal events for testing
type recordingSink struct {
	mu     sync.Mutex
	events []JournalEvent
}

func (r *recordingSink) Track(evt JournalEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingSink) count(typ string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func testLogger() *Logger {
	return NewLogger(io.Discard, "ERROR")
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Seed = 1
	return cfg
}

func newTestGame(cfg *Config) (*Game, *EntityPool) {
	pool := NewEntityPool(cfg.Limits.PoolSize)
	return NewGame(cfg, pool, testLogger(), nil), pool
}

func TestNewGameDefaults(t *testing.T) {
	g, _ := newTestGame(testConfig())
	s := g.Snapshot()
	if s.Score != 0 || s.Lives != MaxLives || s.Fuel != MaxFuel {
		t.Errorf("expected 0/%d/%d, got %d/%d/%d", MaxLives, MaxFuel, s.Score, s.Lives, s.Fuel)
	}
	if s.Phase != PhaseRunning {
		t.Errorf("expected running, got %s", s.Phase)
	}
	if s.Player.X != 12 || s.Player.Y != 23.5 {
		t.Errorf("expected player at (12, 23.5), got (%v, %v)", s.Player.X, s.Player.Y)
	}
	if s.GameID == "" {
		t.Error("game id should be set")
	}
}

func TestFuelPickupClampsAtMax(t *testing.T) {
	g, pool := newTestGame(testConfig())
	g.fuel = 80
	if !g.AddFuelDepot(pool.AcquireFuelDepot(g.player.X, g.player.Y)) {
		t.Fatal("depot should be accepted")
	}

	g.CheckAllCollisions()

	s := g.Snapshot()
	if s.Fuel != MaxFuel {
		t.Errorf("expected fuel %d, got %d", MaxFuel, s.Fuel)
	}
	if len(s.FuelDepots) != 0 {
		t.Errorf("expected depot removed, got %d", len(s.FuelDepots))
	}
	if pool.Free(KindFuelDepot) != 1 {
		t.Errorf("expected depot back in pool, got %d free", pool.Free(KindFuelDepot))
	}
}

func TestLastLifeCollisionEndsGame(t *testing.T) {
	g, pool := newTestGame(testConfig())
	g.lives = 1
	g.AddEnemy(pool.AcquireEnemy(KindBoat, g.player.X, g.player.Y, g.rng))

	g.CheckAllCollisions()

	if !g.IsGameOver() {
		t.Fatal("expected game over")
	}
	if s := g.Snapshot(); s.Lives != 0 {
		t.Errorf("expected 0 lives, got %d", s.Lives)
	}
	if g.AddEnemy(pool.AcquireEnemy(KindJet, 1, 1, g.rng)) {
		t.Error("AddEnemy should be rejected after game over")
	}
	g.UpdateScore(10)
	if s := g.Snapshot(); s.Score != 0 {
		t.Errorf("score should be frozen, got %d", s.Score)
	}
}

func TestFuelDepletionOnLastLife(t *testing.T) {
	g, _ := newTestGame(testConfig())
	g.fuel = 50
	g.lives = 1

	g.UpdateFuel(-50)

	s := g.Snapshot()
	if s.Fuel != 0 || s.Lives != 0 || s.Phase != PhaseGameOver {
		t.Errorf("expected fuel 0, lives 0, game_over; got %d, %d, %s", s.Fuel, s.Lives, s.Phase)
	}
}

func TestFuelDepletionCostsLifeAndRefills(t *testing.T) {
	g, _ := newTestGame(testConfig())
	g.fuel = 1

	g.UpdateFuel(-1)

	s := g.Snapshot()
	if s.Lives != MaxLives-1 {
		t.Errorf("expected %d lives, got %d", MaxLives-1, s.Lives)
	}
	if s.Fuel != MaxFuel {
		t.Errorf("expected refilled tank, got %d", s.Fuel)
	}
}

func TestGameOverIsTerminal(t *testing.T) {
	g, pool := newTestGame(testConfig())
	g.UpdateLives(-MaxLives)
	before := g.Snapshot()

	g.UpdateLives(1)
	g.UpdateFuel(10)
	g.UpdateScore(5)
	g.AddMissile(pool.AcquireMissile(1, 1, MissileStraight))
	g.AddFuelDepot(pool.AcquireFuelDepot(1, 1))

	after := g.Snapshot()
	if after.Lives != before.Lives || after.Fuel != before.Fuel || after.Score != before.Score {
		t.Errorf("state changed after game over: %+v -> %+v", before, after)
	}
	if len(after.Missiles) != 0 || len(after.FuelDepots) != 0 {
		t.Error("entities should not be added after game over")
	}
	if pool.Free(KindMissile) != 1 || pool.Free(KindFuelDepot) != 1 {
		t.Error("rejected entities should go back to the pool")
	}
}

func TestEnemyCapacity(t *testing.T) {
	cfg := testConfig()
	g, pool := newTestGame(cfg)
	for i := 0; i < cfg.Limits.MaxEnemies+5; i++ {
		g.AddEnemy(pool.AcquireEnemy(KindJet, float64(i%20), 0, g.rng))
	}
	if n := len(g.Snapshot().Enemies); n != cfg.Limits.MaxEnemies {
		t.Errorf("expected %d enemies, got %d", cfg.Limits.MaxEnemies, n)
	}
	if pool.Free(KindJet) != 5 {
		t.Errorf("expected 5 rejected jets pooled, got %d", pool.Free(KindJet))
	}
}

func TestMissileCapacity(t *testing.T) {
	cfg := testConfig()
	cfg.Limits.MaxMissiles = 2
	g, _ := newTestGame(cfg)
	g.withLock(func() {
		for i := 0; i < 5; i++ {
			g.shootLocked()
		}
	})
	if n := len(g.Snapshot().Missiles); n != 2 {
		t.Errorf("expected 2 missiles, got %d", n)
	}
}

func TestResetReturnsEntitiesToPool(t *testing.T) {
	g, pool := newTestGame(testConfig())
	firstID := g.ID()
	for i := 0; i < 3; i++ {
		g.AddEnemy(pool.AcquireEnemy(KindHelicopter, float64(i), 2, g.rng))
	}
	g.AddMissile(pool.AcquireMissile(3, 3, MissileGuided))
	g.UpdateScore(40)
	g.UpdateLives(-MaxLives)

	g.Reset()

	s := g.Snapshot()
	if len(s.Enemies) != 0 || len(s.Missiles) != 0 {
		t.Error("reset should clear entities")
	}
	if s.Phase != PhaseRunning || s.Score != 0 || s.Lives != MaxLives || s.Fuel != MaxFuel {
		t.Errorf("unexpected state after reset: %+v", s)
	}
	if pool.Free(KindHelicopter) != 3 || pool.Free(KindMissile) != 1 {
		t.Errorf("expected 3 helicopters and 1 missile pooled, got %d and %d",
			pool.Free(KindHelicopter), pool.Free(KindMissile))
	}
	if g.ID() == firstID {
		t.Error("reset should start a new game id")
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	g, pool := newTestGame(testConfig())
	g.AddEnemy(pool.AcquireEnemy(KindBoat, 4, 4, g.rng))
	s := g.Snapshot()

	g.UpdateScore(7)
	g.withLock(func() { g.enemies[0].base().X = 9 })
	s.Enemies[0].X = 100

	if s.Score != 0 {
		t.Errorf("snapshot score changed to %d", s.Score)
	}
	if g.Snapshot().Enemies[0].X != 9 {
		t.Error("editing a snapshot must not touch the game")
	}
}

func TestScoreNeverDecreases(t *testing.T) {
	g, _ := newTestGame(testConfig())
	g.UpdateScore(5)
	g.UpdateScore(-3)
	if s := g.Snapshot(); s.Score != 5 {
		t.Errorf("expected 5, got %d", s.Score)
	}
}

func TestLivesCapped(t *testing.T) {
	g, _ := newTestGame(testConfig())
	g.UpdateLives(5)
	if s := g.Snapshot(); s.Lives != MaxLives {
		t.Errorf("expected %d, got %d", MaxLives, s.Lives)
	}
}

func TestRemoveEnemyReleases(t *testing.T) {
	g, pool := newTestGame(testConfig())
	e := pool.AcquireEnemy(KindJet, 1, 1, g.rng)
	g.AddEnemy(e)
	if !g.RemoveEnemy(e) {
		t.Fatal("expected enemy removed")
	}
	if g.RemoveEnemy(e) {
		t.Error("second remove should fail")
	}
	if pool.Free(KindJet) != 1 {
		t.Errorf("expected 1 pooled jet, got %d", pool.Free(KindJet))
	}
}

func TestGameOverJournaled(t *testing.T) {
	cfg := testConfig()
	sink := &recordingSink{}
	g := NewGame(cfg, NewEntityPool(10), testLogger(), sink)
	g.UpdateLives(-MaxLives)
	g.Reset()
	if sink.count(EventGameOver) != 1 {
		t.Errorf("expected 1 game_over event, got %d", sink.count(EventGameOver))
	}
	if sink.count(EventReset) != 1 {
		t.Errorf("expected 1 reset event, got %d", sink.count(EventReset))
	}
}

func TestConcurrentUpdates(t *testing.T) {
	g, _ := newTestGame(testConfig())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				g.UpdateScore(1)
				g.Snapshot()
			}
		}()
	}
	wg.Wait()
	if s := g.Snapshot(); s.Score != 800 {
		t.Errorf("expected 800, got %d", s.Score)
	}
}
