// Package control implements the longitudinal/lateral controller (component
// G): target-speed selection with a curvature cap, heading-tracking angular
// velocity, and a two-gate PID longitudinal acceleration.
package control

import (
	"math"

	"github.com/jwmdev/trafficcore/model"
	"github.com/jwmdev/trafficcore/roadmap"
)

// curvatureSpeedFactor is the 0.5714 constant from the target-speed cap.
const curvatureSpeedFactor = 0.5714

// TargetSpeed computes the speed an actor should aim for on targetLane,
// capped by curvature and by the vehicle type's maxSpeed.
func TargetSpeed(targetLane *roadmap.Lane, offset float64, speedFactor, currentSpeed, maxSpeed float64) float64 {
	base := currentSpeed
	if targetLane.SpeedLim != nil {
		base = *targetLane.SpeedLim
	}
	target := base * speedFactor

	lookahead := math.Ceil(1 + safeLn(target))
	radius := targetLane.CurvatureRadiusAtOffset(offset, lookahead)
	if !math.IsInf(radius, 0) {
		cap := curvatureSpeedFactor * math.Abs(radius)
		if cap < target {
			target = cap
		}
	}
	if target > maxSpeed {
		target = maxSpeed
	}
	return target
}

func safeLn(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Log(v)
}

// AngularVelocity implements the lateral heading-tracking controller: it
// projects a look-ahead point along the current heading, maps it onto the
// target lane, and steers toward the lane's direction there while
// correcting lateral offset.
func AngularVelocity(targetLane *roadmap.Lane, pose model.Pose, speed, dt float64) float64 {
	lookAhead := math.Max(dt*speed, 2)
	aheadPoint := model.Point{
		X: pose.X + math.Cos(pose.Heading)*lookAhead,
		Y: pose.Y + math.Sin(pose.Heading)*lookAhead,
	}
	coord := targetLane.ToLaneCoord(aheadPoint)
	targetHeadingVec := targetLane.VectorAtOffset(coord.S)
	targetHeading := math.Atan2(targetHeadingVec.Y, targetHeadingVec.X)

	headingErr := model.SignedMinAngle(targetHeading, pose.Heading)
	return 3.75*headingErr - 1.25*coord.T
}
