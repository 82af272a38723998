package main

import (
	"math/rand"
	"testing"
)

var testBoard = Board{Width: 25, Height: 25}

func TestBoatBouncesOffBanks(t *testing.T) {
	b := newBoat()
	b.place(0.1, 5)
	b.HDir, b.HSpeed, b.VSpeed = -1, 0.5, BoatVSpeed
	b.Move(testBoard, nil)
	if b.HDir != 1 {
		t.Errorf("expected boat to turn right at the left bank, got %v", b.HDir)
	}

	b.place(22.5, 5)
	b.HDir = 1
	b.Move(testBoard, nil)
	if b.HDir != -1 {
		t.Errorf("expected boat to turn left at the right bank, got %v", b.HDir)
	}
	if b.Y != 5+BoatVSpeed {
		t.Errorf("expected y %v, got %v", 5+BoatVSpeed, b.Y)
	}
}

func TestJetDespawnsBelowBoard(t *testing.T) {
	j := newJet()
	j.place(3, testBoard.Height+BottomMargin-0.5)
	j.Speed = 1
	j.Move(testBoard, nil)
	if j.Alive() {
		t.Error("jet should despawn below the board")
	}

	j.place(3, 0)
	j.Move(testBoard, nil)
	if !j.Alive() || j.Y != 1 {
		t.Errorf("jet should move down and stay alive, y=%v", j.Y)
	}
}

func TestHelicopterNeverExitsTop(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		h := newHelicopter()
		h.respawn(10, -1, rng)
		h.VDir = -1
		h.Move(testBoard, rng)
		if h.VDir != 1 || h.Y <= -1 {
			t.Fatalf("helicopter above the board must head down: vdir=%v y=%v", h.VDir, h.Y)
		}
	}
}

func TestHelicopterStaysWithinBanks(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	h := newHelicopter()
	h.respawn(12, 5, rng)
	for i := 0; i < 500; i++ {
		h.Move(testBoard, rng)
		if h.X < 0 || h.X > testBoard.Width-h.W/Scale {
			t.Fatalf("helicopter left the river: x=%v", h.X)
		}
		if !h.Alive() {
			break
		}
	}
}

func TestMissileDespawnsAboveBoard(t *testing.T) {
	m := newMissile()
	m.respawn(5, -1.5, MissileStraight)
	m.Move(nil)
	if !m.Alive() {
		t.Error("missile at -2.5 should still be alive")
	}
	m.Move(nil)
	if m.Alive() {
		t.Error("missile past the top margin should despawn")
	}
}

func TestGuidedMissileSteers(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	target := newJet()
	target.respawn(8, 2, rng)
	enemies := []Enemy{target}

	guided := newMissile()
	guided.respawn(5, 10, MissileGuided)
	guided.Move(enemies)
	if guided.X != 5+GuidedDrift {
		t.Errorf("expected guided missile at x=%v, got %v", 5+GuidedDrift, guided.X)
	}

	straight := newMissile()
	straight.respawn(5, 10, MissileStraight)
	straight.Move(enemies)
	if straight.X != 5 {
		t.Errorf("straight missile should not steer, got x=%v", straight.X)
	}
}

func TestFuelDepotDespawnBound(t *testing.T) {
	f := newFuelDepot()
	f.place(3, 0)
	f.Move(testBoard)
	if !f.Alive() {
		t.Error("depot near the top must stay alive")
	}

	f.place(3, testBoard.Height+BottomMargin-2)
	f.Move(testBoard)
	if !f.Alive() {
		t.Error("depot above the bottom margin should be alive")
	}
	f.Move(testBoard)
	if f.Alive() {
		t.Error("depot at the bottom margin should despawn")
	}
}

func TestPlayerMoveClamped(t *testing.T) {
	p := NewPlayer(testBoard)
	p.X = 0
	p.Move(DirLeft, testBoard)
	if p.X != 0 {
		t.Errorf("expected x 0, got %v", p.X)
	}
	p.X = testBoard.Width - 1
	p.Move(DirRight, testBoard)
	if p.X != testBoard.Width-1 {
		t.Errorf("expected x %v, got %v", testBoard.Width-1, p.X)
	}
}

func TestPlayerSpeedTiers(t *testing.T) {
	p := NewPlayer(testBoard)
	for i := 0; i < 5; i++ {
		p.Accelerate()
	}
	if p.Speed != MaxSpeedTier {
		t.Errorf("expected speed %d, got %d", MaxSpeedTier, p.Speed)
	}
	x := p.X
	p.Move(DirLeft, testBoard)
	if p.X != x-MaxSpeedTier {
		t.Errorf("expected x %v, got %v", x-MaxSpeedTier, p.X)
	}
	for i := 0; i < 5; i++ {
		p.Decelerate()
	}
	if p.Speed != MinSpeedTier {
		t.Errorf("expected speed %d, got %d", MinSpeedTier, p.Speed)
	}
}

func TestPlayerSwitchMissile(t *testing.T) {
	p := NewPlayer(testBoard)
	p.SwitchMissile()
	if p.MissileType != MissileGuided {
		t.Errorf("expected guided, got %s", p.MissileType)
	}
	p.SwitchMissile()
	if p.MissileType != MissileStraight {
		t.Errorf("expected straight, got %s", p.MissileType)
	}
}
