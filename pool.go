package main

import (
	"math/rand"
	"sync"
)

// freeList is a bounded stack of released entities of one kind
type freeList struct {
	mu    sync.Mutex
	items []Entity
	limit int
}

func (l *freeList) pop() Entity {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.items)
	if n == 0 {
		return nil
	}
	e := l.items[n-1]
	l.items[n-1] = nil
	l.items = l.items[:n-1]
	return e
}

func (l *freeList) push(e Entity) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := e.base()
	if b == nil || b.pooled || len(l.items) >= l.limit {
		return false
	}
	b.pooled = true
	b.alive = false
	l.items = append(l.items, e)
	return true
}

func (l *freeList) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// EntityPool recycles entities per kind. Each kind has its own lock, so
// loops touching different kinds never contend here.
type EntityPool struct {
	lists [numKinds]*freeList
}

// NewEntityPool creates a pool keeping at most size free entities per kind
func NewEntityPool(size int) *EntityPool {
	p := &EntityPool{}
	for i := range p.lists {
		p.lists[i] = &freeList{limit: size}
	}
	return p
}

// AcquireEnemy returns a reset enemy of the given kind placed at (x, y). It
// returns nil if kind is not an enemy kind.
func (p *EntityPool) AcquireEnemy(kind EntityKind, x, y float64, rng *rand.Rand) Enemy {
	if !kind.IsEnemy() {
		return nil
	}
	e, ok := p.lists[kind].pop().(Enemy)
	if !ok {
		e = newEnemy(kind)
	}
	e.base().pooled = false
	e.respawn(x, y, rng)
	return e
}

// AcquireMissile returns a reset missile at (x, y)
func (p *EntityPool) AcquireMissile(x, y float64, t MissileType) *Missile {
	m, ok := p.lists[KindMissile].pop().(*Missile)
	if !ok {
		m = newMissile()
	}
	m.pooled = false
	m.respawn(x, y, t)
	return m
}

// AcquireFuelDepot returns a reset fuel depot at (x, y)
func (p *EntityPool) AcquireFuelDepot(x, y float64) *FuelDepot {
	f, ok := p.lists[KindFuelDepot].pop().(*FuelDepot)
	if !ok {
		f = newFuelDepot()
	}
	f.pooled = false
	f.place(x, y)
	return f
}

// Release returns e to its free list. Entities beyond the pool size, and
// entities already in the pool, are dropped.
func (p *EntityPool) Release(e Entity) {
	if e == nil {
		return
	}
	if k := e.Kind(); k < numKinds {
		p.lists[k].push(e)
	}
}

// Free returns the number of pooled entities of a kind
func (p *EntityPool) Free(kind EntityKind) int {
	if kind >= numKinds {
		return 0
	}
	return p.lists[kind].len()
}
