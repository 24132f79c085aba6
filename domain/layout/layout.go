// Package layout places newly created nodes near the nodes they relate to
// without overlapping existing ones.
package layout

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a canvas position.
type Point = r2.Vec

const (
	// MinDistance is the clearance required between node positions.
	MinDistance = 200.0

	spiralAngleStep    = math.Pi / 4
	spiralRadius       = 200.0
	spiralStepsPerRing = 8
)

var (
	singleOffset = Point{X: 300, Y: 150}
	groupOffset  = Point{X: 150, Y: 150}
)

// Place returns the preferred position for a node related to the given nodes.
// With no related nodes the viewport center (or the origin) is used.
func Place(related []Point, viewport *Point) Point {
	switch len(related) {
	case 0:
		if viewport != nil {
			return *viewport
		}
		return Point{}
	case 1:
		return r2.Add(related[0], singleOffset)
	}

	lo, hi := related[0], related[0]
	for _, p := range related[1:] {
		lo.X = math.Min(lo.X, p.X)
		lo.Y = math.Min(lo.Y, p.Y)
		hi.X = math.Max(hi.X, p.X)
		hi.Y = math.Max(hi.Y, p.Y)
	}
	center := r2.Scale(0.5, r2.Add(lo, hi))
	return r2.Add(center, groupOffset)
}

// Resolve moves desired off any existing position closer than MinDistance by
// walking an outward spiral. The last candidate is returned if maxAttempts
// run out.
func Resolve(desired Point, existing []Point, maxAttempts int) Point {
	if !collides(desired, existing) {
		return desired
	}

	candidate := desired
	for i := 0; i < maxAttempts; i++ {
		candidate = spiral(desired, i)
		if !collides(candidate, existing) {
			return candidate
		}
	}
	return candidate
}

// spiral returns the i-th candidate around origin.
func spiral(origin Point, i int) Point {
	angle := float64(i) * spiralAngleStep
	radius := spiralRadius * float64(1+i/spiralStepsPerRing)
	return r2.Add(origin, Point{X: radius * math.Cos(angle), Y: radius * math.Sin(angle)})
}

func collides(p Point, existing []Point) bool {
	for _, q := range existing {
		if r2.Norm(r2.Sub(p, q)) < MinDistance {
			return true
		}
	}
	return false
}
