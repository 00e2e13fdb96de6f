package placement

import (
	"math"
	"math/rand"
	"testing"
)

func dist(a, b Position) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func TestPlace_EmptyBoardStaysInBounds(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		p := Place(r, nil)
		if !InBounds(p) {
			t.Fatalf("position out of bounds: %+v", p)
		}
	}
}

func TestPlace_RespectsBuffer(t *testing.T) {
	t.Parallel()

	existing := []Position{
		{X: 20, Y: 25},
		{X: 50, Y: 50},
		{X: 80, Y: 75},
	}
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		p := Place(r, existing)
		for _, e := range existing {
			if dist(p, e) < Buffer {
				t.Fatalf("placed %+v within buffer of %+v (d=%.2f)", p, e, dist(p, e))
			}
		}
	}
}

// crowded forces the exhaustion branch: a grid dense enough that no candidate
// can be Buffer away from everything
func crowded() []Position {
	var out []Position
	for x := MinX; x <= MaxX; x += 10 {
		for y := MinY; y <= MaxY; y += 10 {
			out = append(out, Position{X: x, Y: y})
		}
	}
	return out
}

func TestPlace_ExhaustionFallsBackToUnconditionalDraw(t *testing.T) {
	t.Parallel()

	existing := crowded()
	r := &countingRand{inner: rand.New(rand.NewSource(3))}
	p := Place(r, existing)

	if !InBounds(p) {
		t.Fatalf("fallback position out of bounds: %+v", p)
	}
	// MaxTries rejected candidates plus the final draw, two Float64 per draw
	if want := (MaxTries + 1) * 2; r.calls != want {
		t.Fatalf("expected %d draws, got %d", want, r.calls)
	}
}

func TestPlace_DeterministicUnderSeed(t *testing.T) {
	t.Parallel()

	a := Place(rand.New(rand.NewSource(42)), nil)
	b := Place(rand.New(rand.NewSource(42)), nil)
	if a != b {
		t.Fatalf("same seed produced different positions: %+v vs %+v", a, b)
	}
}

type countingRand struct {
	inner *rand.Rand
	calls int
}

func (c *countingRand) Float64() float64 {
	c.calls++
	return c.inner.Float64()
}
