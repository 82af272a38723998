package main

import (
	"math/rand"
	"sync"
	"testing"
)

func TestPoolReusesReleasedEntity(t *testing.T) {
	pool := NewEntityPool(10)
	rng := rand.New(rand.NewSource(1))

	e := pool.AcquireEnemy(KindBoat, 3, 4, rng)
	e.base().kill()
	pool.Release(e)

	e2 := pool.AcquireEnemy(KindBoat, 7, 0, rng)
	if e2 != e {
		t.Error("expected the released boat to be reused")
	}
	b := e2.Box()
	if b.X != 7 || b.Y != 0 || !e2.Alive() {
		t.Errorf("reused boat not reset: %+v alive=%v", b, e2.Alive())
	}
	if pool.Free(KindBoat) != 0 {
		t.Errorf("expected empty free list, got %d", pool.Free(KindBoat))
	}
}

func TestPoolRespectsSize(t *testing.T) {
	pool := NewEntityPool(2)
	ms := []*Missile{
		pool.AcquireMissile(0, 0, MissileStraight),
		pool.AcquireMissile(0, 0, MissileStraight),
		pool.AcquireMissile(0, 0, MissileStraight),
	}
	for _, m := range ms {
		pool.Release(m)
	}
	if pool.Free(KindMissile) != 2 {
		t.Errorf("expected 2 pooled missiles, got %d", pool.Free(KindMissile))
	}
}

func TestPoolIgnoresDoubleRelease(t *testing.T) {
	pool := NewEntityPool(10)
	f := pool.AcquireFuelDepot(1, 1)
	pool.Release(f)
	pool.Release(f)
	if pool.Free(KindFuelDepot) != 1 {
		t.Errorf("expected 1 pooled depot, got %d", pool.Free(KindFuelDepot))
	}
	a := pool.AcquireFuelDepot(0, 0)
	b := pool.AcquireFuelDepot(0, 0)
	if a == b {
		t.Error("one release must not hand out the same depot twice")
	}
}

func TestPoolKindsAreSeparate(t *testing.T) {
	pool := NewEntityPool(10)
	rng := rand.New(rand.NewSource(1))
	pool.Release(pool.AcquireEnemy(KindJet, 0, 0, rng))

	h := pool.AcquireEnemy(KindHelicopter, 0, 0, rng)
	if h.Kind() != KindHelicopter {
		t.Errorf("expected helicopter, got %s", h.Kind())
	}
	if pool.Free(KindJet) != 1 {
		t.Error("jet free list should be untouched")
	}
}

func TestPoolRejectsNonEnemyKind(t *testing.T) {
	pool := NewEntityPool(10)
	if e := pool.AcquireEnemy(KindMissile, 0, 0, rand.New(rand.NewSource(1))); e != nil {
		t.Errorf("expected nil for missile kind, got %v", e)
	}
}

func TestPoolConcurrentUse(t *testing.T) {
	pool := NewEntityPool(50)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for j := 0; j < 200; j++ {
				kind := enemyKinds[j%len(enemyKinds)]
				e := pool.AcquireEnemy(kind, 0, 0, rng)
				if e.Kind() != kind {
					t.Errorf("expected %s, got %s", kind, e.Kind())
					return
				}
				pool.Release(e)
			}
		}(int64(i))
	}
	wg.Wait()
	for _, k := range enemyKinds {
		if pool.Free(k) > 50 {
			t.Errorf("%s free list exceeded size: %d", k, pool.Free(k))
		}
	}
}
