package arena

import "github.com/skirmishlab/vanguard/world"

// gridEntry caches an entity's id and position in a grid cell so radius
// queries avoid a component lookup per candidate.
type gridEntry struct {
	id  world.EntityID
	pos world.Vec3
}

// spatialGrid provides cheap radius lookups on the X/Z plane. It is
// rebuilt once per step from live positions.
type spatialGrid struct {
	cellSize float64
	cols     int
	rows     int
	half     float64 // arena extends [-half, half] on X and Z
	cells    [][]gridEntry
}

func newSpatialGrid(extent, cellSize float64) *spatialGrid {
	cols := int(2*extent/cellSize) + 1
	cells := make([][]gridEntry, cols*cols)
	for i := range cells {
		cells[i] = make([]gridEntry, 0, 8)
	}
	return &spatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     cols,
		half:     extent,
		cells:    cells,
	}
}

func (g *spatialGrid) clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

func (g *spatialGrid) insert(id world.EntityID, pos world.Vec3) {
	idx := g.cellIndex(pos.X, pos.Z)
	g.cells[idx] = append(g.cells[idx], gridEntry{id: id, pos: pos})
}

// queryRadius appends ids within radius of center to dst and returns it.
// Distance is true 3D even though cells are planar.
func (g *spatialGrid) queryRadius(dst []world.EntityID, center world.Vec3, radius float64, exclude world.EntityID) []world.EntityID {
	cellRadius := int(radius/g.cellSize) + 1
	centerCol := g.col(center.X)
	centerRow := g.col(center.Z)
	radiusSq := radius * radius

	for dc := -cellRadius; dc <= cellRadius; dc++ {
		col := centerCol + dc
		if col < 0 || col >= g.cols {
			continue
		}
		for dr := -cellRadius; dr <= cellRadius; dr++ {
			row := centerRow + dr
			if row < 0 || row >= g.rows {
				continue
			}
			for _, e := range g.cells[row*g.cols+col] {
				if e.id == exclude {
					continue
				}
				d := e.pos.Sub(center)
				if d.X*d.X+d.Y*d.Y+d.Z*d.Z <= radiusSq {
					dst = append(dst, e.id)
				}
			}
		}
	}
	return dst
}

func (g *spatialGrid) col(v float64) int {
	c := int((v + g.half) / g.cellSize)
	if c < 0 {
		c = 0
	} else if c >= g.cols {
		c = g.cols - 1
	}
	return c
}

func (g *spatialGrid) cellIndex(x, z float64) int {
	return g.col(z)*g.cols + g.col(x)
}
