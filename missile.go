package main

import "math"

const (
	MissileSpeed = 1.0 // cells per move
	GuidedDrift  = 0.5 // max horizontal correction per move for guided missiles
)

// MissileType selects missile guidance
type MissileType string

const (
	MissileStraight MissileType = "straight"
	MissileGuided   MissileType = "guided"
)

// Next returns the type that follows m in the switch cycle
func (m MissileType) Next() MissileType {
	if m == MissileGuided {
		return MissileStraight
	}
	return MissileGuided
}

// Missile is a player shot flying up the river
type Missile struct {
	body
	Type MissileType
}

func newMissile() *Missile {
	return &Missile{body: body{W: Scale * 0.05, H: Scale * 0.5}}
}

func (m *Missile) Kind() EntityKind { return KindMissile }

func (m *Missile) respawn(x, y float64, t MissileType) {
	m.place(x, y)
	if t == "" {
		t = MissileStraight
	}
	m.Type = t
}

// Move advances the missile one step. Guided missiles steer toward the
// closest live enemy.
func (m *Missile) Move(enemies []Enemy) {
	m.Y -= MissileSpeed
	if m.Type == MissileGuided {
		if target, ok := nearestEnemy(m.X, m.Y, enemies); ok {
			b := target.Box()
			cx := b.X + b.W/Scale/2
			m.X += Clamp(cx-m.X, -GuidedDrift, GuidedDrift)
		}
	}
	if m.Y < -TopMargin {
		m.kill()
	}
}

func nearestEnemy(x, y float64, enemies []Enemy) (Enemy, bool) {
	var best Enemy
	bestD := math.Inf(1)
	for _, e := range enemies {
		if e == nil || !e.Alive() {
			continue
		}
		b := e.Box()
		// only enemies ahead of the missile
		if b.Y > y {
			continue
		}
		dx, dy := b.X-x, b.Y-y
		if d := dx*dx + dy*dy; d < bestD {
			best, bestD = e, d
		}
	}
	return best, best != nil
}
