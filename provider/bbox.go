package provider

import (
	"math"

	"github.com/jwmdev/trafficcore/model"
)

// BBox is an axis-aligned bounding box approximation of a vehicle's oriented
// footprint. An exact oriented-box separating-axis test is straightforward
// to add later; this module's emission/reservation checks only need a
// conservative overlap test, and AABB overlap is a safe (slightly
// over-cautious) stand-in: two boxes whose AABBs don't intersect can never
// have intersecting OBBs either.
type BBox struct {
	MinX, MinY, MaxX, MaxY float64
}

// BoundsOf computes the AABB of a vehicle at pose with the given dimensions,
// padding each end of its length by cushion before the box is formed. Pass 0 for an
// uncushioned box.
func BoundsOf(pose model.Pose, dims model.Dimensions, cushion float64) BBox {
	halfDiag := 0.5 * math.Hypot(dims.Length+2*cushion, dims.Width)
	return BBox{
		MinX: pose.X - halfDiag, MinY: pose.Y - halfDiag,
		MaxX: pose.X + halfDiag, MaxY: pose.Y + halfDiag,
	}
}

// Intersects reports whether two AABBs overlap.
func (b BBox) Intersects(o BBox) bool {
	return b.MinX <= o.MaxX && o.MinX <= b.MaxX && b.MinY <= o.MaxY && o.MinY <= b.MaxY
}
