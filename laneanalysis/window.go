// Package laneanalysis computes per-lane kinematic windows for an actor
// (component E) and selects a target lane from them (component F).
package laneanalysis

import (
	"math"

	"github.com/jwmdev/trafficcore/model"
	"github.com/jwmdev/trafficcore/roadmap"
	"github.com/jwmdev/trafficcore/routecache"
)

// VehicleSnapshot is the frozen, per-tick cached position of one known
// vehicle (managed or foreign), rebuilt once per tick by the provider before
// Phase 1 decisions run.
type VehicleSnapshot struct {
	VehicleID  string
	State      model.VehicleState
	Lane       *roadmap.Lane
	LaneOffset float64
	Route      []string // nil if this vehicle has no known route
	RouteInd   int       // meaningful only when Route != nil
}

// tan30 and sin30 are tan(30deg) and sin(30deg), used by the crossing-time angle
// scale per the geometry corrections.
var (
	tan30 = math.Tan(30 * math.Pi / 180)
	sin30 = math.Sin(30 * math.Pi / 180)
)

// straightAngleScale is 1/sin(30deg) = 2, used for nearly-straight lanes.
const straightAngleScale = 1.0 / 0.5 // sin(30) == 0.5 exactly

// angleScale implements the curvature-dependent crossing-angle correction:
// nearly-straight lanes (|radius| > 1e5, or radius == 0) use the constant
// 1/sin(30deg); curved lanes scale by whether the crossing moves toward the
// inside or outside of the curve.
func angleScale(radius, width float64, selfIndex, toIndex int) float64 {
	if radius == 0 || math.Abs(radius) > 1e5 {
		return straightAngleScale
	}
	T := radius / width
	sign := -1.0
	if toIndex > selfIndex {
		sign = 1.0
	}
	se := T * (T - sign)
	cosArg := 1 / (tan30 * (T - sign))
	inner := se + 0.5 - se*math.Cos(cosArg)
	if inner < 0 {
		inner = 0
	}
	return math.Sqrt(2 * inner)
}

// crossingTimeAtSpeed is the time to cross one lane's width at the given
// speed/acceleration, via the curvature-corrected angle scale.
func crossingTimeAtSpeed(lane *roadmap.Lane, offset float64, speed, acc float64, selfIndex, toIndex int) float64 {
	radius := lane.CurvatureRadiusAtOffset(offset, 0)
	if math.IsInf(radius, 0) {
		radius = 0
	}
	scale := angleScale(radius, lane.Width, selfIndex, toIndex)
	return model.TimeToCover(scale*lane.Width, speed, acc)
}

// exitTime accounts for the lateral offset t already held within the
// current lane when crossing out of it.
func exitTime(lane *roadmap.Lane, offset, t float64, speed, acc float64, selfIndex, toIndex int) float64 {
	radius := lane.CurvatureRadiusAtOffset(offset, 0)
	if math.IsInf(radius, 0) {
		radius = 0
	}
	scale := angleScale(radius, lane.Width, selfIndex, toIndex)
	crossing := model.TimeToCover(scale*lane.Width, speed, acc)

	sign := -1.0
	if toIndex < selfIndex {
		sign = 1.0
	}
	sign *= model.Sign(t)

	return 0.5*crossing + sign*model.TimeToCover(scale*math.Abs(t), speed, acc)
}

// ComputeWindows builds one LaneWindow per lane of the actor's current road.
func ComputeWindows(
	actor *model.TrafficActor,
	road *roadmap.Road,
	table routecache.Table,
	vehicles []VehicleSnapshot,
) []*model.LaneWindow {
	windows := make([]*model.LaneWindow, 0, len(road.Lanes))
	curLane := currentLane(road, actor.LaneID)

	for _, lane := range road.Lanes {
		w := computeOneLane(actor, lane, table, vehicles)
		windows = append(windows, w)
	}

	for _, w := range windows {
		w.CrossingTime = crossingTimeInto(curLane, windows, w, actor.State.Speed, accelMagnitude(actor))
		w.AdjTimeLeft = w.TimeLeft - w.CrossingTime
		w.Feasible = feasibilityCheck(curLane, windows, w, actor.State.Speed, accelMagnitude(actor))
	}
	return windows
}

func accelMagnitude(actor *model.TrafficActor) float64 {
	return actor.State.LinearAccelerationOrZero().Norm()
}

func currentLane(road *roadmap.Road, laneID string) *roadmap.Lane {
	for _, l := range road.Lanes {
		if l.LaneID == laneID {
			return l
		}
	}
	if len(road.Lanes) > 0 {
		return road.Lanes[0]
	}
	return nil
}

func computeOneLane(actor *model.TrafficActor, lane *roadmap.Lane, table routecache.Table, vehicles []VehicleSnapshot) *model.LaneWindow {
	coord := lane.ToLaneCoord(actor.State.Pose.Point)
	myOffset := coord.S

	var pathLen float64
	if rl, ok := table.RemainingLength(lane.LaneID, actor.RouteInd); ok {
		pathLen = rl - myOffset
	} else {
		pathLen = lane.Length - myOffset
	}

	laneTimeLeft := math.Inf(1)
	if actor.State.Speed > 0 {
		laneTimeLeft = pathLen / actor.State.Speed
	} else if pathLen <= 0 {
		laneTimeLeft = 0
	}

	w := &model.LaneWindow{
		LaneID:    lane.LaneID,
		LaneIndex: lane.Index,
		S:         myOffset,
		T:         coord.T,
		TTC:       math.Inf(1),
		TTRE:      math.Inf(1),
		Gap:       math.Inf(1),
	}

	myHalf := actor.State.Dimensions.Length / 2
	myAcc := accelMagnitude(actor)

	for _, ov := range vehicles {
		if ov.VehicleID == actor.ActorID {
			continue
		}
		ovOffset, ok := projectOntoLane(actor, lane, pathLen, table, ov)
		if !ok {
			continue
		}
		ovHalf := ov.State.Dimensions.Length / 2
		speedDelta := actor.State.Speed - ov.State.Speed
		accDelta := myAcc - ov.State.LinearAccelerationOrZero().Norm()

		if myOffset <= ovOffset {
			frontGap := (ovOffset - ovHalf) - (myOffset + myHalf)
			if frontGap < 0 {
				frontGap = 0
			}
			if frontGap < w.Gap {
				w.Gap = frontGap
			}
			cushioned := frontGap - actor.MinSpaceCush
			if cushioned < 0 {
				cushioned = 0
			}
			ttc := model.TimeToCover(cushioned, speedDelta, accDelta)
			if ttc < w.TTC {
				w.TTC = ttc
			}
		} else {
			backGap := (myOffset - myHalf) - (ovOffset + ovHalf)
			if backGap < 0 {
				backGap = 0
			}
			ttre := model.TimeToCover(backGap, -speedDelta, -accDelta)
			if ttre < w.TTRE {
				w.TTRE = ttre
			}
			if ov.State.Role == model.RoleEgoAgent {
				if w.AgentGap == nil || backGap < *w.AgentGap {
					bg := backGap
					w.AgentGap = &bg
				}
			}
		}
		if w.TTC == 0 && w.TTRE == 0 {
			break
		}
	}

	w.TimeLeft = math.Min(laneTimeLeft, w.TTC)
	return w
}

// projectOntoLane maps another vehicle onto this lane's longitudinal axis,
// either directly (same cached lane) or via the route-table projection.
func projectOntoLane(actor *model.TrafficActor, lane *roadmap.Lane, pathLen float64, table routecache.Table, ov VehicleSnapshot) (float64, bool) {
	if ov.Lane != nil && ov.Lane.LaneID == lane.LaneID {
		return ov.LaneOffset, true
	}
	if ov.Lane == nil || ov.Route == nil {
		return 0, false
	}
	if ov.RouteInd != actor.RouteInd {
		return 0, false
	}
	ovRouteLen, ok := table.RemainingLength(ov.Lane.LaneID, ov.RouteInd)
	if !ok {
		return 0, false
	}
	myOffset := lane.ToLaneCoord(actor.State.Pose.Point).S
	return actorOffsetForOtherLane(myOffset, pathLen, ovRouteLen), true
}

// actorOffsetForOtherLane maps a vehicle on a different lane of the same
// route onto this lane's longitudinal axis: its effective offset is this
// lane's remaining length beyond the vehicle's own lane, added to this
// actor's own offset.
func actorOffsetForOtherLane(myOffset, pathLen, ovRouteLen float64) float64 {
	return myOffset + (pathLen - ovRouteLen)
}

// crossingTimeInto sums exitTime for the current lane plus crossingTimeAtSpeed
// for each intermediate lane between current and target, halving the
// contribution of the final target lane.
func crossingTimeInto(cur *roadmap.Lane, all []*model.LaneWindow, target *model.LaneWindow, speed, acc float64) float64 {
	if cur == nil || cur.LaneID == target.LaneID {
		return 0
	}
	total := exitTime(cur, 0, currentLaneT(all, cur), speed, acc, cur.Index, target.LaneIndex)

	step := 1
	if target.LaneIndex < cur.Index {
		step = -1
	}
	idx := cur.Index + step
	for idx != target.LaneIndex {
		total += crossingTimeAtSpeed(cur, 0, speed, acc, cur.Index, idx)
		idx += step
	}
	total += 0.5 * crossingTimeAtSpeed(cur, 0, speed, acc, cur.Index, target.LaneIndex)
	return total
}

func currentLaneT(all []*model.LaneWindow, cur *roadmap.Lane) float64 {
	for _, w := range all {
		if w.LaneID == cur.LaneID {
			return w.T
		}
	}
	return 0
}

// feasibilityCheck reports false if any intermediate lane's min(time_left,
// ttre) is at or below the crossing time reaching it.
func feasibilityCheck(cur *roadmap.Lane, all []*model.LaneWindow, target *model.LaneWindow, speed, acc float64) bool {
	if cur == nil || cur.LaneID == target.LaneID {
		return true
	}
	step := 1
	if target.LaneIndex < cur.Index {
		step = -1
	}
	byIndex := make(map[int]*model.LaneWindow, len(all))
	for _, w := range all {
		byIndex[w.LaneIndex] = w
	}

	accCross := 0.0
	idx := cur.Index
	for idx != target.LaneIndex {
		next := idx + step
		accCross += crossingTimeAtSpeed(cur, 0, speed, acc, idx, next)
		if w, ok := byIndex[next]; ok && next != target.LaneIndex {
			if math.Min(w.TimeLeft, w.TTRE) <= accCross {
				return false
			}
		}
		idx = next
	}
	return true
}
