package main

const (
	KillScore  = 10 // score for a missile hitting an enemy
	FuelPickup = 50 // fuel gained from a depot
)

// Overlap reports whether two boxes intersect. Widths and heights are scaled
// down by Scale before comparing; touching edges do not overlap.
func Overlap(a, b Box) bool {
	aw, ah := a.W/Scale, a.H/Scale
	bw, bh := b.W/Scale, b.H/Scale
	return a.X < b.X+bw && a.X+aw > b.X &&
		a.Y < b.Y+bh && a.Y+ah > b.Y
}

// CheckAllCollisions resolves player/enemy, missile/enemy and player/depot
// contacts in one atomic step. It does nothing once the game is over.
func (g *Game) CheckAllCollisions() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhaseRunning {
		return
	}
	g.checkCollisionsLocked()
}

func (g *Game) checkCollisionsLocked() {
	g.grid.Clear()
	for i, e := range g.enemies {
		g.guard("grid-insert", func() {
			b := e.Box()
			g.grid.Insert(b.X, b.Y, i)
		})
	}

	g.checkPlayerEnemiesLocked()
	if g.phase == PhaseRunning {
		g.checkMissileEnemiesLocked()
		g.checkPlayerDepotsLocked()
	}

	g.sweepEnemiesLocked()
	g.sweepMissilesLocked()
	g.sweepDepotsLocked()
}

// guard runs one collision check, logging and discarding any panic so a
// single malformed entity cannot abort the whole pass.
func (g *Game) guard(check string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Fault("collision check failed", r, "check", check)
		}
	}()
	fn()
}

func (g *Game) checkPlayerEnemiesLocked() {
	pb := g.player.Box()
	g.candidates = g.grid.QueryBuf(pb.X, pb.Y, g.candidates[:0])
	for _, idx := range g.candidates {
		if g.phase != PhaseRunning {
			return
		}
		e := g.enemies[idx]
		g.guard("player-enemy", func() {
			if e.Alive() && Overlap(pb, e.Box()) {
				e.base().kill()
				g.updateLivesLocked(-1)
			}
		})
	}
}

// checkMissileEnemiesLocked lets each missile destroy at most one enemy.
func (g *Game) checkMissileEnemiesLocked() {
	for _, m := range g.missiles {
		g.guard("missile-enemy", func() {
			if !m.Alive() {
				return
			}
			mb := m.Box()
			g.candidates = g.grid.QueryBuf(mb.X, mb.Y, g.candidates[:0])
			for _, idx := range g.candidates {
				e := g.enemies[idx]
				if e == nil || !e.Alive() || !Overlap(mb, e.Box()) {
					continue
				}
				e.base().kill()
				m.kill()
				g.updateScoreLocked(KillScore)
				return
			}
		})
	}
}

func (g *Game) checkPlayerDepotsLocked() {
	pb := g.player.Box()
	for _, f := range g.depots {
		g.guard("player-fuel", func() {
			if f.Alive() && Overlap(pb, f.Box()) {
				f.kill()
				g.updateFuelLocked(FuelPickup)
			}
		})
	}
}
