package geometry

import (
	"fmt"
	"math"
)

// Side is a bit set naming the edges a resize handle drags.
type Side uint8

const (
	SideTop    Side = 1
	SideBottom Side = 2
	SideLeft   Side = 4
	SideRight  Side = 8
)

// The eight handles drawn around a single selected layer.
var Handles = []Side{
	SideTop | SideLeft,
	SideTop,
	SideTop | SideRight,
	SideRight,
	SideBottom | SideRight,
	SideBottom,
	SideBottom | SideLeft,
	SideLeft,
}

// Validate rejects empty or contradictory handle combinations.
func (s Side) Validate() error {
	if s == 0 || s > SideTop|SideBottom|SideLeft|SideRight {
		return fmt.Errorf("invalid resize corner: %d", s)
	}
	if s&SideTop != 0 && s&SideBottom != 0 {
		return fmt.Errorf("invalid resize corner: top and bottom")
	}
	if s&SideLeft != 0 && s&SideRight != 0 {
		return fmt.Errorf("invalid resize corner: left and right")
	}
	return nil
}

// ResizeBounds recomputes a layer's box from the box it had when the drag
// started, the dragged corner and the current pointer. Dragging past the
// opposite edge swaps the edges instead of producing a negative size.
func ResizeBounds(initial Rect, corner Side, p Point) Rect {
	result := initial

	if corner&SideLeft != 0 {
		result.X = math.Min(p.X, initial.Right())
		result.Width = math.Abs(initial.Right() - p.X)
	}
	if corner&SideRight != 0 {
		result.X = math.Min(p.X, initial.X)
		result.Width = math.Abs(p.X - initial.X)
	}
	if corner&SideTop != 0 {
		result.Y = math.Min(p.Y, initial.Bottom())
		result.Height = math.Abs(initial.Bottom() - p.Y)
	}
	if corner&SideBottom != 0 {
		result.Y = math.Min(p.Y, initial.Y)
		result.Height = math.Abs(p.Y - initial.Y)
	}

	return result
}

// HandleRect returns the hit box of a resize handle of the given size drawn on
// the edge or corner of bounds.
func HandleRect(bounds Rect, corner Side, size float64) Rect {
	cx := bounds.X + bounds.Width/2
	cy := bounds.Y + bounds.Height/2
	if corner&SideLeft != 0 {
		cx = bounds.X
	}
	if corner&SideRight != 0 {
		cx = bounds.Right()
	}
	if corner&SideTop != 0 {
		cy = bounds.Y
	}
	if corner&SideBottom != 0 {
		cy = bounds.Bottom()
	}
	return Rect{X: cx - size/2, Y: cy - size/2, Width: size, Height: size}
}

// HitHandle returns the handle of bounds under p, or 0.
func HitHandle(bounds Rect, p Point, size float64) Side {
	for _, h := range Handles {
		if HandleRect(bounds, h, size).Contains(p) {
			return h
		}
	}
	return 0
}
