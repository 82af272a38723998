package main

import "math/rand"

// Scale converts entity widths/heights into board cells (a box of W=Scale
// covers one cell).
const Scale = 30.0

const (
	TopMargin    = 3.0 // cells above the board before a missile despawns
	BottomMargin = 3.0 // cells below the board before enemies and depots despawn
)

// EntityKind identifies an entity class
type EntityKind uint8

const (
	KindBoat EntityKind = iota
	KindJet
	KindHelicopter
	KindMissile
	KindFuelDepot
	numKinds
)

// enemyKinds lists the kinds the spawner may create
var enemyKinds = [...]EntityKind{KindBoat, KindJet, KindHelicopter}

func (k EntityKind) String() string {
	switch k {
	case KindBoat:
		return "boat"
	case KindJet:
		return "jet"
	case KindHelicopter:
		return "helicopter"
	case KindMissile:
		return "missile"
	case KindFuelDepot:
		return "fuel_depot"
	}
	return "unknown"
}

// IsEnemy reports whether k is an enemy kind
func (k EntityKind) IsEnemy() bool {
	return k == KindBoat || k == KindJet || k == KindHelicopter
}

// Code is the single-letter enemy tag used on the wire
func (k EntityKind) Code() string {
	switch k {
	case KindBoat:
		return "B"
	case KindJet:
		return "J"
	case KindHelicopter:
		return "H"
	}
	return ""
}

// Board is the playfield size in cells
type Board struct {
	Width, Height float64
}

// Box is an axis-aligned bounding box; W and H are in Scale units
type Box struct {
	X, Y, W, H float64
}

// Entity is anything the Store tracks and the pool recycles
type Entity interface {
	Kind() EntityKind
	Box() Box
	Alive() bool
	base() *body
}

// Enemy is an entity with its own movement pattern
type Enemy interface {
	Entity
	Move(board Board, rng *rand.Rand)
	respawn(x, y float64, rng *rand.Rand)
}

// body is the state shared by every pooled entity
type body struct {
	X, Y   float64
	W, H   float64
	alive  bool
	pooled bool
}

func (b *body) Box() Box { return Box{X: b.X, Y: b.Y, W: b.W, H: b.H} }
func (b *body) Alive() bool { return b.alive }
func (b *body) base() *body { return b }
func (b *body) kill() { b.alive = false }
func (b *body) place(x, y float64) {
	b.X, b.Y = x, y
	b.alive = true
}

// newEnemy allocates a fresh enemy of the given kind, or nil for non-enemy kinds
func newEnemy(kind EntityKind) Enemy {
	switch kind {
	case KindBoat:
		return newBoat()
	case KindJet:
		return newJet()
	case KindHelicopter:
		return newHelicopter()
	}
	return nil
}
