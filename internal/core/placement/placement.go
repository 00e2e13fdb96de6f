// Package placement computes non-overlapping 2D positions for new whispers
// using rejection sampling over the usable display surface
package placement

import "math"

// Position is a percentage coordinate on the display surface
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Placement bounds and sampling limits, in percentage units
const (
	MinX = 15.0
	MaxX = 85.0
	MinY = 20.0
	MaxY = 80.0

	// Buffer is the minimum Euclidean distance between two whispers
	Buffer = 22.0

	// MaxTries bounds the rejection sampling loop
	MaxTries = 100
)

// Rand is the uniform draw source; *math/rand.Rand satisfies it
type Rand interface {
	Float64() float64
}

// Place returns a position at least Buffer away from every existing position,
// or a final unconditional draw when MaxTries candidates were all rejected.
// Placement is best effort and never blocks publishing
func Place(r Rand, existing []Position) Position {
	for i := 0; i < MaxTries; i++ {
		c := draw(r)
		if clear(c, existing) {
			return c
		}
	}
	return draw(r)
}

func draw(r Rand) Position {
	return Position{
		X: MinX + r.Float64()*(MaxX-MinX),
		Y: MinY + r.Float64()*(MaxY-MinY),
	}
}

func clear(c Position, existing []Position) bool {
	for _, p := range existing {
		dx := c.X - p.X
		dy := c.Y - p.Y
		if math.Hypot(dx, dy) < Buffer {
			return false
		}
	}
	return true
}

// InBounds reports whether p lies on the usable surface
func InBounds(p Position) bool {
	return p.X >= MinX && p.X <= MaxX && p.Y >= MinY && p.Y <= MaxY
}
