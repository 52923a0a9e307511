// Package reorder turns lift/move/drop intents into a committed reordering of
// the shortcut grid. The geometry here is pure: given item boxes and a
// pointer position it decides which slot the dragged item is over.
package reorder

import "math"

// Point is a position in grid (CSS pixel) coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Rect is an item's bounding box.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Center returns the centroid of r.
func (r Rect) Center() Point { return Point{X: r.X + r.W/2, Y: r.Y + r.H/2} }

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Item is one rendered tile.
type Item struct {
	ID   string `json:"id"`
	Rect Rect   `json:"rect"`
}

// ClosestCenter returns the index of the item whose centre is nearest to p.
// Equal distances resolve to the earliest item. ok is false for no items.
func ClosestCenter(items []Item, p Point) (int, bool) {
	best, bestDist := -1, math.Inf(1)
	for i, it := range items {
		if d := it.Rect.Center().Dist(p); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}

// Direction is a keyboard move direction.
type Direction string

const (
	Left  Direction = "left"
	Right Direction = "right"
	Up    Direction = "up"
	Down  Direction = "down"
)

// Neighbor returns the index of the item nearest to items[from] that lies
// strictly in dir from it. ok is false when nothing lies that way.
func Neighbor(items []Item, from int, dir Direction) (int, bool) {
	if from < 0 || from >= len(items) {
		return -1, false
	}
	origin := items[from].Rect.Center()
	best, bestDist := -1, math.Inf(1)
	for i, it := range items {
		if i == from {
			continue
		}
		c := it.Rect.Center()
		d := c.Sub(origin)
		var ahead bool
		switch dir {
		case Left:
			ahead = d.X < 0
		case Right:
			ahead = d.X > 0
		case Up:
			ahead = d.Y < 0
		case Down:
			ahead = d.Y > 0
		}
		if !ahead {
			continue
		}
		if dist := c.Dist(origin); dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best, best >= 0
}

// Move returns a copy of list with the element at from removed and
// reinserted at to. Out of range indices return an unchanged copy.
func Move[T any](list []T, from, to int) []T {
	out := make([]T, len(list))
	copy(out, list)
	if from < 0 || from >= len(list) || to < 0 || to >= len(list) || from == to {
		return out
	}
	v := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = v
	return out
}
