package main

const FuelDepotSpeed = 1.0

// FuelDepot floats down the river and refuels the player on contact
type FuelDepot struct {
	body
}

func newFuelDepot() *FuelDepot {
	return &FuelDepot{body: body{W: Scale, H: Scale * 0.75}}
}

func (f *FuelDepot) Kind() EntityKind { return KindFuelDepot }

// Move advances the depot one step
func (f *FuelDepot) Move(board Board) {
	f.Y += FuelDepotSpeed
	if f.Y >= board.Height+BottomMargin {
		f.kill()
	}
}
