package main

// SpatialGrid is an N x N grid over the board for broad-phase collision
// queries. Entities are bucketed by their top-left corner and stored as
// indices into the caller's enemy slice.
type SpatialGrid struct {
	n            int
	cellW, cellH float64
	cells        [][]int
}

// NewSpatialGrid creates an n x n grid covering board
func NewSpatialGrid(board Board, n int) *SpatialGrid {
	if n < 1 {
		n = 1
	}
	return &SpatialGrid{
		n:     n,
		cellW: board.Width / float64(n),
		cellH: board.Height / float64(n),
		cells: make([][]int, n*n),
	}
}

// Clear resets all cells (keeps allocated capacity)
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// cellOf returns the cell coordinates of (x, y), clamped to the grid so
// positions off the board land in edge cells.
func (g *SpatialGrid) cellOf(x, y float64) (cx, cy int) {
	cx = int(x / g.cellW)
	cy = int(y / g.cellH)
	if x < 0 {
		cx = 0
	} else if cx >= g.n {
		cx = g.n - 1
	}
	if y < 0 {
		cy = 0
	} else if cy >= g.n {
		cy = g.n - 1
	}
	return cx, cy
}

// Insert adds an entity index at the given position
func (g *SpatialGrid) Insert(x, y float64, idx int) {
	cx, cy := g.cellOf(x, y)
	i := cy*g.n + cx
	g.cells[i] = append(g.cells[i], idx)
}

// QueryBuf appends the indices in the cell containing (x, y) and its eight
// neighbours to buf and returns the extended slice.
func (g *SpatialGrid) QueryBuf(x, y float64, buf []int) []int {
	cx, cy := g.cellOf(x, y)
	for dy := -1; dy <= 1; dy++ {
		ny := cy + dy
		if ny < 0 || ny >= g.n {
			continue
		}
		for dx := -1; dx <= 1; dx++ {
			nx := cx + dx
			if nx < 0 || nx >= g.n {
				continue
			}
			buf = append(buf, g.cells[ny*g.n+nx]...)
		}
	}
	return buf
}

// Query is QueryBuf with a fresh slice
func (g *SpatialGrid) Query(x, y float64) []int {
	return g.QueryBuf(x, y, nil)
}
