package roadmap

import (
	"math"

	"github.com/jwmdev/trafficcore/model"
)

// Lane is a single-arc (possibly straight) lane segment. Radius of 0 means
// "straight" (infinite radius); this mirrors the angle_scale special case in
// the lane-window geometry corrections, which treats both |radius| > 1e5 and
// radius == 0 as effectively straight.
type Lane struct {
	LaneID    string
	Index     int
	Length    float64
	SpeedLim  *float64 // optional
	RoadID    string
	Composite string // canonical lane id; equals LaneID if not composite
	Width     float64
	Radius    float64 // signed curvature radius; 0 => straight

	Start   model.Point
	Heading float64 // heading at s=0, radians

	IncomingLaneIDs []string
	OutgoingLaneIDs []string
}

// LaneCoord is a longitudinal/lateral coordinate within a lane's local frame.
type LaneCoord struct {
	S, T float64
}

func (l *Lane) isStraight() bool {
	return l.Radius == 0 || math.Abs(l.Radius) > 1e5
}

// FromLaneCoord returns the world point at longitudinal offset s along the
// lane's centerline (t=0).
func (l *Lane) FromLaneCoord(s float64) model.Point {
	if l.isStraight() {
		return model.Point{
			X: l.Start.X + math.Cos(l.Heading)*s,
			Y: l.Start.Y + math.Sin(l.Heading)*s,
		}
	}
	// Arc of radius R: turning left for R>0, right for R<0.
	theta := s / l.Radius
	// Center is perpendicular to heading, at distance R.
	cx := l.Start.X - l.Radius*math.Sin(l.Heading)
	cy := l.Start.Y + l.Radius*math.Cos(l.Heading)
	ang0 := math.Atan2(l.Start.Y-cy, l.Start.X-cx)
	ang := ang0 + theta
	return model.Point{
		X: cx + l.Radius*math.Cos(ang),
		Y: cy + l.Radius*math.Sin(ang),
	}
}

// VectorAtOffset returns the unit heading vector at longitudinal offset s.
func (l *Lane) VectorAtOffset(s float64) model.Point {
	if l.isStraight() {
		return model.Point{X: math.Cos(l.Heading), Y: math.Sin(l.Heading)}
	}
	theta := s / l.Radius
	h := l.Heading + theta
	return model.Point{X: math.Cos(h), Y: math.Sin(h)}
}

// WidthAtOffset returns the lane width at longitudinal offset s. This
// implementation carries a constant width per lane; hosts with flared lanes
// can supply their own RoadMap.
func (l *Lane) WidthAtOffset(s float64) float64 {
	return l.Width
}

// CurvatureRadiusAtOffset returns the signed curvature radius at offset s,
// looking ahead the given distance. A single-arc lane has constant
// curvature, so lookahead does not change the result; it is accepted to
// satisfy the interface contract hosts with clothoid/spline lanes need.
func (l *Lane) CurvatureRadiusAtOffset(s, lookahead float64) float64 {
	if l.Radius == 0 {
		return math.Inf(1)
	}
	return l.Radius
}

// ToLaneCoord projects a world point onto the lane, returning its
// longitudinal/lateral coordinate. For straight lanes this is an exact
// projection; for arcs it is approximated by projecting onto the polar angle
// from the arc center.
func (l *Lane) ToLaneCoord(p model.Point) LaneCoord {
	if l.isStraight() {
		dx, dy := p.X-l.Start.X, p.Y-l.Start.Y
		hx, hy := math.Cos(l.Heading), math.Sin(l.Heading)
		s := dx*hx + dy*hy
		t := -dx*hy + dy*hx
		return LaneCoord{S: s, T: t}
	}
	cx := l.Start.X - l.Radius*math.Sin(l.Heading)
	cy := l.Start.Y + l.Radius*math.Cos(l.Heading)
	ang0 := math.Atan2(l.Start.Y-cy, l.Start.X-cx)
	ang := math.Atan2(p.Y-cy, p.X-cx)
	dtheta := model.SignedMinAngle(ang, ang0)
	s := dtheta * l.Radius
	r := math.Hypot(p.X-cx, p.Y-cy)
	t := r - math.Abs(l.Radius)
	if l.Radius < 0 {
		t = -t
	}
	return LaneCoord{S: s, T: t}
}

// OffsetAlongLane returns only the longitudinal component of ToLaneCoord.
func (l *Lane) OffsetAlongLane(p model.Point) float64 {
	return l.ToLaneCoord(p).S
}
