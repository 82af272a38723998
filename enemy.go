package main

import "math/rand"

const (
	BoatVSpeed     = 0.5
	BoatHSpeedMin  = 0.3
	BoatHSpeedMax  = 0.7
	JetSpeedMin    = 1.0
	JetSpeedMax    = 2.0
	HeliSpeedMin   = 0.2
	HeliSpeedMax   = 0.8
	HeliTurnChance = 0.2 // chance per move to pick a new heading
)

// Boat drifts down the river while weaving between the banks
type Boat struct {
	body
	HDir   float64
	HSpeed float64
	VSpeed float64
}

func newBoat() *Boat {
	return &Boat{body: body{W: Scale * 3, H: Scale}}
}

func (b *Boat) Kind() EntityKind { return KindBoat }

func (b *Boat) respawn(x, y float64, rng *rand.Rand) {
	b.place(x, y)
	b.VSpeed = BoatVSpeed
	b.HSpeed = uniform(rng, BoatHSpeedMin, BoatHSpeedMax)
	b.HDir = 1
	if rng.Intn(2) == 0 {
		b.HDir = -1
	}
}

// Move advances the boat one step, bouncing off the banks
func (b *Boat) Move(board Board, _ *rand.Rand) {
	b.Y += b.VSpeed
	b.X += b.HDir * b.HSpeed
	if b.X < 0 {
		b.HDir = 1
	} else if b.X+b.W/Scale > board.Width {
		b.HDir = -1
	}
	if b.Y > board.Height+BottomMargin {
		b.kill()
	}
}

// Jet dives straight down fast
type Jet struct {
	body
	Speed float64
}

func newJet() *Jet {
	return &Jet{body: body{W: Scale * 1.5, H: Scale * 2}}
}

func (j *Jet) Kind() EntityKind { return KindJet }

func (j *Jet) respawn(x, y float64, rng *rand.Rand) {
	j.place(x, y)
	j.Speed = uniform(rng, JetSpeedMin, JetSpeedMax)
}

// Move advances the jet one step
func (j *Jet) Move(board Board, _ *rand.Rand) {
	j.Y += j.Speed
	if j.Y > board.Height+BottomMargin {
		j.kill()
	}
}

// Helicopter wanders erratically, changing heading at random
type Helicopter struct {
	body
	HDir, VDir     float64
	HSpeed, VSpeed float64
}

func newHelicopter() *Helicopter {
	return &Helicopter{body: body{W: Scale * 2, H: Scale * 0.75}}
}

func (h *Helicopter) Kind() EntityKind { return KindHelicopter }

func (h *Helicopter) respawn(x, y float64, rng *rand.Rand) {
	h.place(x, y)
	h.VDir = 1
	h.HDir = float64(rng.Intn(3) - 1)
	h.HSpeed = uniform(rng, HeliSpeedMin, HeliSpeedMax)
	h.VSpeed = uniform(rng, HeliSpeedMin, HeliSpeedMax)
}

// Move advances the helicopter one step; it may turn, never leaves through
// the top and is clamped to the banks.
func (h *Helicopter) Move(board Board, rng *rand.Rand) {
	if rng.Float64() < HeliTurnChance {
		h.HDir = float64(rng.Intn(3) - 1)
		h.VDir = float64(rng.Intn(3) - 1)
		h.HSpeed = uniform(rng, HeliSpeedMin, HeliSpeedMax)
		h.VSpeed = uniform(rng, HeliSpeedMin, HeliSpeedMax)
	}
	if h.Y < 0 {
		h.VDir = 1
	}
	h.X += h.HDir * h.HSpeed
	h.Y += h.VDir * h.VSpeed

	if h.X < 0 {
		h.X = 0
		h.HDir = 1
	} else if maxX := board.Width - h.W/Scale; h.X > maxX {
		h.X = maxX
		h.HDir = -1
	}
	if h.Y > board.Height+BottomMargin {
		h.kill()
	}
}
