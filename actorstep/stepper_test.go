package actorstep

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwmdev/trafficcore/model"
	"github.com/jwmdev/trafficcore/roadmap"
)

func buildLoopMap(t *testing.T) roadmap.RoadMap {
	rm := roadmap.NewGraphRoadMap()
	laneE1 := &roadmap.Lane{LaneID: "E1_0", Index: 0, Length: 100, RoadID: "E1", Composite: "E1", Width: 3.2}
	laneE2 := &roadmap.Lane{LaneID: "E2_0", Index: 0, Length: 100, RoadID: "E2", Composite: "E2", Width: 3.2}
	e1 := &roadmap.Road{RoadID: "E1", CompositeRoad: "E1", Lanes: []*roadmap.Lane{laneE1}, OutgoingRoads: []string{"E2"}}
	e2 := &roadmap.Road{RoadID: "E2", CompositeRoad: "E2", Lanes: []*roadmap.Lane{laneE2}, OutgoingRoads: []string{"E1"}}
	if err := rm.AddRoad(e1); err != nil {
		t.Fatalf("add e1: %v", err)
	}
	if err := rm.AddRoad(e2); err != nil {
		t.Fatalf("add e2: %v", err)
	}
	return rm
}

func TestHandleRouteCompletionEndlessLoopWrapsRouteInd(t *testing.T) {
	rm := buildLoopMap(t)
	actor := &model.TrafficActor{
		ActorID: "a1", Route: []string{"E1", "E2"}, RouteInd: 1,
	}

	handleRouteCompletion(actor, rm, true, "E1_0", 0, 10)

	assert.Equal(t, -1, actor.RouteInd)
}

func TestHandleRouteCompletionNonEndlessMarksDone(t *testing.T) {
	rm := buildLoopMap(t)
	actor := &model.TrafficActor{
		ActorID: "a1", Route: []string{"E1", "E2"}, RouteInd: 1,
	}

	handleRouteCompletion(actor, rm, false, "E1_0", 0, 10)

	assert.True(t, actor.DoneWithRoute)
	assert.Equal(t, 1, actor.RouteInd)
}

func TestHandleRouteCompletionTeleportsWhenNotALoop(t *testing.T) {
	rm := roadmap.NewGraphRoadMap()
	laneE1 := &roadmap.Lane{LaneID: "E1_0", Index: 0, Length: 100, RoadID: "E1", Composite: "E1", Width: 3.2}
	laneE2 := &roadmap.Lane{LaneID: "E2_0", Index: 0, Length: 100, RoadID: "E2", Composite: "E2", Width: 3.2}
	e1 := &roadmap.Road{RoadID: "E1", CompositeRoad: "E1", Lanes: []*roadmap.Lane{laneE1}}
	e2 := &roadmap.Road{RoadID: "E2", CompositeRoad: "E2", Lanes: []*roadmap.Lane{laneE2}}
	if err := rm.AddRoad(e1); err != nil {
		t.Fatalf("add e1: %v", err)
	}
	if err := rm.AddRoad(e2); err != nil {
		t.Fatalf("add e2: %v", err)
	}
	actor := &model.TrafficActor{
		ActorID: "a1", Route: []string{"E1", "E2"}, RouteInd: 1,
	}

	handleRouteCompletion(actor, rm, true, "E1_0", 5, 12)

	assert.Equal(t, 0, actor.RouteInd)
	assert.Equal(t, "E1_0", actor.LaneID)
	assert.Equal(t, 5.0, actor.Offset)
	assert.Equal(t, 12.0, actor.State.Speed)
}

func TestCommitIncrementsRouteIndFromNegativeOneAfterRoadChange(t *testing.T) {
	rm := buildLoopMap(t)
	actor := &model.TrafficActor{
		ActorID: "a1", Route: []string{"E1", "E2"}, RouteInd: -1,
		DestLaneID: "__none__",
		State: model.VehicleState{
			Pose:       model.Pose{Point: model.Point{X: 1, Y: 0}, Heading: 0},
			Dimensions: model.Dimensions{Length: 4, Width: 1.8},
		},
	}
	actor.NextPose = model.Pose{Point: model.Point{X: 1, Y: 0}, Heading: 0}
	actor.NextSpeed = 5
	actor.NextLinearAcceleration = model.Vec3{}

	err := Commit(actor, rm, true, "E1_0", 0, 10)

	assert.NoError(t, err)
	assert.Equal(t, 0, actor.RouteInd)
}
