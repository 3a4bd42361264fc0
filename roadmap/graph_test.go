package roadmap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwmdev/trafficcore/model"
	"github.com/jwmdev/trafficcore/simrand"
)

func buildThreeRoadChain() *GraphRoadMap {
	rm := NewGraphRoadMap()
	l1 := &Lane{LaneID: "E1_0", Index: 0, Length: 100, RoadID: "E1", Composite: "E1", Width: 3.2, Start: model.Point{X: 0, Y: 0}, Heading: 0}
	l2 := &Lane{LaneID: "E2_0", Index: 0, Length: 100, RoadID: "E2", Composite: "E2", Width: 3.2, Start: model.Point{X: 100, Y: 0}, Heading: 0}
	l3 := &Lane{LaneID: "E3_0", Index: 0, Length: 100, RoadID: "E3", Composite: "E3", Width: 3.2, Start: model.Point{X: 200, Y: 0}, Heading: 0}
	rm.AddRoad(&Road{RoadID: "E1", CompositeRoad: "E1", Lanes: []*Lane{l1}, OutgoingRoads: []string{"E2"}})
	rm.AddRoad(&Road{RoadID: "E2", CompositeRoad: "E2", Lanes: []*Lane{l2}, OutgoingRoads: []string{"E3"}})
	rm.AddRoad(&Road{RoadID: "E3", CompositeRoad: "E3", Lanes: []*Lane{l3}})
	return rm
}

func TestRoadByID(t *testing.T) {
	rm := buildThreeRoadChain()
	r, ok := rm.RoadByID("E2")
	if assert.True(t, ok) {
		assert.Equal(t, []string{"E3"}, r.OutgoingRoads)
	}
	_, ok = rm.RoadByID("nope")
	assert.False(t, ok)
}

func TestNearestLaneFindsClosestWithinRadius(t *testing.T) {
	rm := buildThreeRoadChain()
	lane, dist, ok := rm.NearestLane(model.Point{X: 150, Y: 1}, 5)
	if assert.True(t, ok) {
		assert.Equal(t, "E2_0", lane.LaneID)
		assert.InDelta(t, 1.0, dist, 1e-9)
	}
}

func TestNearestLaneOutOfRadius(t *testing.T) {
	rm := buildThreeRoadChain()
	_, _, ok := rm.NearestLane(model.Point{X: 150, Y: 50}, 5)
	assert.False(t, ok)
}

func TestRandomRouteStaysWithinConnectivity(t *testing.T) {
	rm := buildThreeRoadChain()
	rng := simrand.New(42)
	route := rm.RandomRoute(rng, 1, 3)
	if !assert.NotEmpty(t, route) {
		return
	}
	seen := map[string]bool{}
	for _, r := range route {
		assert.False(t, seen[r], "route should not repeat a road in this chain")
		seen[r] = true
	}
	for i := 1; i < len(route); i++ {
		prev, _ := rm.RoadByID(route[i-1])
		found := false
		for _, out := range prev.OutgoingRoads {
			if out == route[i] {
				found = true
			}
		}
		assert.True(t, found, "route must follow outgoing-road connectivity")
	}
}

func TestRandomRouteEmptyMap(t *testing.T) {
	rm := NewGraphRoadMap()
	rng := simrand.New(1)
	assert.Nil(t, rm.RandomRoute(rng, 1, 3))
}
