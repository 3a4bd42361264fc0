package control

import (
	"math"

	"github.com/jwmdev/trafficcore/model"
	"github.com/jwmdev/trafficcore/roadmap"
)

// LaneWindowLike is the subset of model.LaneWindow the longitudinal
// controller needs; kept as an interface-free struct alias for clarity at
// call sites.
type LaneWindowLike = model.LaneWindow

// LongitudinalParams bundles the vehicle-type constants the controller
// needs, avoiding a dependency on the full model.VType for just five fields.
type LongitudinalParams struct {
	Tau            float64
	EmergencyDecel float64
	MinSpaceCush   float64
	Accel          float64
	Decel          float64
}

// Acceleration runs two safety gates (time cushion, space cushion) followed
// by a PID, given the target lane window, the current lane window, target
// speed, the actor's own current/target lane curvature (for the per-lane
// speed/accel projection), and dt.
func Acceleration(
	target, current *LaneWindowLike,
	targetLane, currentLane *roadmap.Lane,
	speed, targetSpeed, currentAcc float64,
	p LongitudinalParams,
	dt float64,
) float64 {
	// Gate 1: time cushion.
	timeCush := math.Min(target.TimeLeft, safeDiv(target.Gap, speed))
	timeCush = math.Min(timeCush, current.TimeLeft)
	timeCush = math.Min(timeCush, safeDiv(current.Gap, speed))
	if timeCush < 0 {
		timeCush = 0
	}
	if timeCush < p.Tau {
		if speed == 0 {
			return 0
		}
		severity := model.Clip(3*(p.Tau-timeCush)/p.Tau, 0, 1)
		return -p.EmergencyDecel * severity
	}

	// Gate 2: space cushion.
	spaceCush := math.Min(target.Gap, current.Gap)
	if spaceCush < 0 {
		spaceCush = 0
	}
	if spaceCush < p.MinSpaceCush {
		if speed == 0 {
			return 0
		}
		severity := model.Clip(2*(p.MinSpaceCush-spaceCush)/p.MinSpaceCush, 0, 1)
		return -p.EmergencyDecel * severity
	}

	// PID.
	ratio := 1.0
	targetRadius := targetLane.CurvatureRadiusAtOffset(target.S, 0)
	currentRadius := currentLane.CurvatureRadiusAtOffset(current.S, 0)
	if !math.IsInf(targetRadius, 0) && !math.IsInf(currentRadius, 0) && currentRadius != 0 &&
		model.Sign(targetRadius) == model.Sign(currentRadius) {
		ratio = targetRadius / currentRadius
	}
	mySpeedOnTgt := speed * ratio
	myAccOnTgt := currentAcc * ratio

	P := 0.0060 * (targetSpeed - mySpeedOnTgt)
	D := -0.0010 * myAccOnTgt
	pid := model.Clip((P+D)/dt, -1, 1)

	if pid >= 0 {
		return pid * p.Accel
	}
	return pid * p.Decel
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		if a == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return a / b
}
