package laneanalysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwmdev/trafficcore/model"
	"github.com/jwmdev/trafficcore/roadmap"
	"github.com/jwmdev/trafficcore/routecache"
)

func straightLane(id string, length float64) *roadmap.Lane {
	return &roadmap.Lane{
		LaneID: id, Index: 0, Length: length, RoadID: "R", Composite: "R",
		Width: 3.2, Radius: 0, Start: model.Point{X: 0, Y: 0}, Heading: 0,
	}
}

func TestLaneWindowGapAndTTCOnStraightRoad(t *testing.T) {
	lane := straightLane("L0", 200)
	road := &roadmap.Road{RoadID: "R", Lanes: []*roadmap.Lane{lane}}

	follower := &model.TrafficActor{
		ActorID: "follower", LaneID: "L0", RouteInd: 0,
		MinSpaceCush: 2.5,
		State: model.VehicleState{
			VehicleID: "follower", Speed: 15,
			Pose:       model.Pose{Point: model.Point{X: 20, Y: 0}, Heading: 0},
			Dimensions: model.Dimensions{Length: 4, Width: 1.8},
		},
	}
	leaderSnap := VehicleSnapshot{
		VehicleID: "leader", Lane: lane, LaneOffset: 50,
		State: model.VehicleState{
			VehicleID: "leader", Speed: 10,
			Pose:       model.Pose{Point: model.Point{X: 50, Y: 0}, Heading: 0},
			Dimensions: model.Dimensions{Length: 4, Width: 1.8},
		},
	}

	table := routecache.Table{}
	windows := ComputeWindows(follower, road, table, []VehicleSnapshot{leaderSnap})
	if assert.Len(t, windows, 1) {
		w := windows[0]
		assert.InDelta(t, 26.0, w.Gap, 1e-6)
		assert.InDelta(t, 4.7, w.TTC, 1e-6)
	}
}
