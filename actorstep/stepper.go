// Package actorstep implements the actor stepper (component H): semi-implicit
// Euler integration of an actor's pose, commit-time re-localization to the
// nearest route lane, and reroute/teleport handling.
package actorstep

import (
	"math"

	"github.com/jwmdev/trafficcore/model"
	"github.com/jwmdev/trafficcore/roadmap"
)

// Decide computes next_pose/next_speed/next_linear_acceleration from the
// current state, acceleration a, and angular velocity omega, and stashes
// them onto the actor (to be applied at Commit). This is a semi-implicit
// Euler step: position advances using the *current* speed, not the speed
// just computed.
func Decide(actor *model.TrafficActor, a, omega, dt float64) {
	heading := actor.State.Pose.Heading
	speed := actor.State.Speed

	nextHeading := model.NormalizeAngle(heading + omega*dt)
	headingVec := model.Point{X: math.Cos(nextHeading), Y: math.Sin(nextHeading)}

	nextLinearAccel := model.Vec3{X: dt * a * headingVec.X, Y: dt * a * headingVec.Y, Z: 0}
	nextSpeed := speed + a*dt
	if nextSpeed < 0 {
		nextSpeed = 0
	}
	nextPos := model.Point{
		X: actor.State.Pose.X + headingVec.X*speed*dt,
		Y: actor.State.Pose.Y + headingVec.Y*speed*dt,
	}

	actor.StashNext(model.Pose{Point: nextPos, Heading: nextHeading}, nextSpeed, nextLinearAccel)
}

// localizeRadius is the search radius for commit-time re-localization:
// half the actor's length.
func localizeRadius(actor *model.TrafficActor) float64 {
	return actor.State.Dimensions.Length / 2
}

// Commit applies the stashed next_* fields, re-localizes the actor to the
// nearest lane on its route (falling back to the globally closest lane and
// marking off_route), advances route_ind if the owning road changed, and
// handles the endless-mode reroute/teleport transition when the actor
// reaches its destination. It returns a *model.LocalizationError if no lane
// at all is found within the search radius.
func Commit(actor *model.TrafficActor, rm roadmap.RoadMap, endlessTraffic bool, departLaneID string, departPos, departSpeed float64) error {
	actor.State.Pose = actor.NextPose
	actor.State.Speed = actor.NextSpeed
	actor.State.LinearAcceleration = &actor.NextLinearAcceleration

	cands := rm.NearestLanes(actor.State.Pose.Point, localizeRadius(actor), true)
	if len(cands) == 0 {
		return model.NewLocalizationError(actor.ActorID, "no lane found within length/2 of committed position")
	}

	chosen := pickRouteLane(actor, cands)
	actor.OffRoute = chosen.onRoute == false
	lane := chosen.lane

	if lane.RoadID != currentRoadID(actor) {
		actor.RouteInd++
	}
	actor.LaneID = lane.LaneID
	actor.Offset = lane.OffsetAlongLane(actor.State.Pose.Point)

	if reachedDestination(actor, lane) {
		handleRouteCompletion(actor, rm, endlessTraffic, departLaneID, departPos, departSpeed)
	}
	return nil
}

func currentRoadID(actor *model.TrafficActor) string {
	if actor.RouteInd >= 0 && actor.RouteInd < len(actor.Route) {
		return actor.Route[actor.RouteInd]
	}
	return ""
}

type laneChoice struct {
	lane   *roadmap.Lane
	onRoute bool
}

// pickRouteLane prefers the first candidate whose road is in the current
// route, else falls back to the closest candidate overall.
func pickRouteLane(actor *model.TrafficActor, cands []roadmap.LaneDistance) laneChoice {
	routeRoads := make(map[string]bool, len(actor.Route))
	for _, r := range actor.Route {
		routeRoads[r] = true
	}
	for _, c := range cands {
		if routeRoads[c.Lane.RoadID] {
			return laneChoice{lane: c.Lane, onRoute: true}
		}
	}
	return laneChoice{lane: cands[0].Lane, onRoute: false}
}

func reachedDestination(actor *model.TrafficActor, lane *roadmap.Lane) bool {
	return lane.LaneID == actor.DestLaneID && actor.Offset >= actor.DestOffset
}

// handleRouteCompletion: in endless mode, either wrap route_ind back to the
// start (if the route is a closed loop from here) or teleport to the flow's
// depart position; in non-endless mode, mark the actor done.
func handleRouteCompletion(actor *model.TrafficActor, rm roadmap.RoadMap, endlessTraffic bool, departLaneID string, departPos, departSpeed float64) {
	if !endlessTraffic {
		actor.DoneWithRoute = true
		return
	}
	curRoad, ok := rm.RoadByID(currentRoadID(actor))
	if ok && len(actor.Route) > 0 {
		firstRoad := actor.Route[0]
		for _, out := range curRoad.OutgoingRoads {
			if out == firstRoad {
				// route_ind = -1 so the next tick's commit-phase increment
				// (road changed) lands exactly on 0.
				actor.RouteInd = -1
				return
			}
		}
	}
	teleport(actor, rm, departLaneID, departPos, departSpeed)
}

func teleport(actor *model.TrafficActor, rm roadmap.RoadMap, departLaneID string, departPos, departSpeed float64) {
	if len(actor.Route) > 0 {
		if road, ok := rm.RoadByID(actor.Route[0]); ok {
			for _, l := range road.Lanes {
				if l.LaneID == departLaneID {
					actor.State.Pose = model.Pose{Point: l.FromLaneCoord(departPos), Heading: l.Heading}
				}
			}
		}
	}
	actor.RouteInd = 0
	actor.LaneID = departLaneID
	actor.Offset = departPos
	actor.State.Speed = departSpeed
	actor.State.LinearAcceleration = &model.Vec3{}
}
