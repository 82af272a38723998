package main

const (
	MinSpeedTier = 1
	MaxSpeedTier = 3
)

// Direction is a horizontal move direction
type Direction string

const (
	DirLeft  Direction = "left"
	DirRight Direction = "right"
)

// Valid reports whether d is a known direction
func (d Direction) Valid() bool {
	return d == DirLeft || d == DirRight
}

// Player is the single plane flying up the river
type Player struct {
	X, Y        float64
	W, H        float64
	Speed       int
	MissileType MissileType
}

// NewPlayer places the player at the bottom centre of the board
func NewPlayer(board Board) *Player {
	return &Player{
		X:           float64(int(board.Width) / 2),
		Y:           board.Height - 1.5,
		W:           Scale,
		H:           Scale,
		Speed:       MinSpeedTier,
		MissileType: MissileStraight,
	}
}

// Box returns the player's bounding box
func (p *Player) Box() Box {
	return Box{X: p.X, Y: p.Y, W: p.W, H: p.H}
}

// Move shifts the player by its speed tier, clamped to the banks
func (p *Player) Move(dir Direction, board Board) {
	step := float64(p.Speed)
	switch dir {
	case DirLeft:
		p.X = Clamp(p.X-step, 0, board.Width-1)
	case DirRight:
		p.X = Clamp(p.X+step, 0, board.Width-1)
	}
}

// Accelerate raises the speed tier
func (p *Player) Accelerate() {
	p.Speed = ClampInt(p.Speed+1, MinSpeedTier, MaxSpeedTier)
}

// Decelerate lowers the speed tier
func (p *Player) Decelerate() {
	p.Speed = ClampInt(p.Speed-1, MinSpeedTier, MaxSpeedTier)
}

// SwitchMissile cycles the missile type fired next
func (p *Player) SwitchMissile() {
	p.MissileType = p.MissileType.Next()
}

// Muzzle is where a fired missile spawns
func (p *Player) Muzzle() (x, y float64) {
	return p.X, p.Y - 1
}
