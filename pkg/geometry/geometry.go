// Package geometry holds the pure canvas math used by the board engine:
// points, axis-aligned rectangles, marquee intersection, resize-handle math
// and screen/canvas transforms for a camera offset.
package geometry

import "math"

// Point is a position in canvas or screen space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns the vector from o to p.
func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

// Manhattan returns |dx|+|dy| between p and o.
func (p Point) Manhattan(o Point) float64 {
	return math.Abs(p.X-o.X) + math.Abs(p.Y-o.Y)
}

// Rect is an axis-aligned box. Width and Height are never negative for
// rectangles produced by this package.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Intersects reports whether r and o overlap on both axes.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.Right() && o.X < r.Right() &&
		r.Y < o.Bottom() && o.Y < r.Bottom()
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// Translate returns r moved by d.
func (r Rect) Translate(d Point) Rect {
	r.X += d.X
	r.Y += d.Y
	return r
}

// RectFromPoints returns the normalized rectangle spanned by two corners given
// in any order.
func RectFromPoints(a, b Point) Rect {
	return Rect{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(a.X - b.X),
		Height: math.Abs(a.Y - b.Y),
	}
}

// Union returns the smallest rectangle covering every rect. ok is false when
// rects is empty.
func Union(rects ...Rect) (Rect, bool) {
	if len(rects) == 0 {
		return Rect{}, false
	}

	left, top := rects[0].X, rects[0].Y
	right, bottom := rects[0].Right(), rects[0].Bottom()
	for _, r := range rects[1:] {
		left = math.Min(left, r.X)
		top = math.Min(top, r.Y)
		right = math.Max(right, r.Right())
		bottom = math.Max(bottom, r.Bottom())
	}

	return Rect{X: left, Y: top, Width: right - left, Height: bottom - top}, true
}

// BoundsOf returns the bounding box of the given points. ok is false when
// points is empty.
func BoundsOf(points []Point) (Rect, bool) {
	if len(points) == 0 {
		return Rect{}, false
	}

	minX, minY := points[0].X, points[0].Y
	maxX, maxY := points[0].X, points[0].Y
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}

	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// Camera is the canvas pan offset. A canvas point c is drawn at screen point
// c + camera.
type Camera struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ScreenToCanvas converts a pointer position into canvas space.
func (c Camera) ScreenToCanvas(p Point) Point {
	return Point{X: math.Round(p.X) - c.X, Y: math.Round(p.Y) - c.Y}
}

// CanvasToScreen converts a canvas position into screen space.
func (c Camera) CanvasToScreen(p Point) Point {
	return Point{X: p.X + c.X, Y: p.Y + c.Y}
}
