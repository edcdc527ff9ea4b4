package pack

import "math"

// index answers "does this candidate overlap anything accepted so far".
type index interface {
	collides(c Placement, placed []Placement, spacing float64) bool
	insert(c Placement, i int)
}

// linearIndex scans every accepted placement.
type linearIndex struct{}

func (linearIndex) collides(c Placement, placed []Placement, spacing float64) bool {
	for _, q := range placed {
		if c.Overlaps(q, spacing) {
			return true
		}
	}
	return false
}

func (linearIndex) insert(Placement, int) {}

// grid buckets placements into square cells of side 2*maxR+spacing. Two
// circles can only overlap if their centres are closer than one cell, so a
// candidate needs to look at its own cell and the eight neighbours. The set
// it tests is a superset of the overlapping placements, which keeps every
// decision identical to [linearIndex].
//
// The column count is bounded by the attempt budget and by maxGridCols. When
// the bound applies the cells grow wider than 2*maxR+spacing, which only
// enlarges the candidate set.
type grid struct {
	cell  float64
	cols  int
	cells [][]int32
}

// maxGridCols caps the grid at maxGridCols² cells.
const maxGridCols = 1024

// newGrid sizes a grid for at most capacity insertions.
func newGrid(width, maxR, spacing float64, capacity int) *grid {
	limit := min(maxGridCols, int(math.Ceil(math.Sqrt(float64(max(capacity, 1)))))+1)
	cell := 2*maxR + spacing
	cols := limit
	if need := width/cell + 1; need < float64(limit) {
		cols = int(math.Ceil(width/cell)) + 1
	}
	if cols > 1 {
		cell = max(cell, width/float64(cols-1))
	}
	return &grid{
		cell:  cell,
		cols:  cols,
		cells: make([][]int32, cols*cols),
	}
}

func (g *grid) coord(v float64) int {
	c := int(v / g.cell)
	return min(max(c, 0), g.cols-1)
}

func (g *grid) collides(c Placement, placed []Placement, spacing float64) bool {
	cx, cy := g.coord(c.X), g.coord(c.Y)
	for y := max(cy-1, 0); y <= min(cy+1, g.cols-1); y++ {
		row := y * g.cols
		for x := max(cx-1, 0); x <= min(cx+1, g.cols-1); x++ {
			for _, i := range g.cells[row+x] {
				if c.Overlaps(placed[i], spacing) {
					return true
				}
			}
		}
	}
	return false
}

func (g *grid) insert(c Placement, i int) {
	k := g.coord(c.Y)*g.cols + g.coord(c.X)
	g.cells[k] = append(g.cells[k], int32(i))
}
