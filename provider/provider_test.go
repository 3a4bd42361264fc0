package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwmdev/trafficcore/model"
	"github.com/jwmdev/trafficcore/roadmap"
	"github.com/jwmdev/trafficcore/telemetry"
)

func buildSingleLaneMap() roadmap.RoadMap {
	rm := roadmap.NewGraphRoadMap()
	lane := &roadmap.Lane{LaneID: "R0_0", Index: 0, Length: 200, RoadID: "R0", Composite: "R0", Width: 3.2}
	road := &roadmap.Road{RoadID: "R0", CompositeRoad: "R0", Lanes: []*roadmap.Lane{lane}}
	rm.AddRoad(road)
	return rm
}

func newTestProvider(t *testing.T, rm roadmap.RoadMap) *Provider {
	p := New(telemetry.NewLogger(nil), telemetry.NewMetrics())
	err := p.Setup(Scenario{RoadMap: rm, Seed: 1, SourceID: "test"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	return p
}

func testFlow() *model.Flow {
	f := &model.Flow{
		ID:          "f0",
		Route:       []string{"R0"},
		VType:       model.VType{},
		Begin:       0,
		End:         1000,
		VehsPerHour: 3600, // EmitPeriod = 1s
		DepartPos:   model.Token{Kind: model.TokenNumeric, Value: 0},
		DepartSpeed: model.Token{Kind: model.TokenNumeric, Value: 10},
	}
	f.Normalize()
	return f
}

// TestEmissionCollisionIsRetriedSilentlyNextTick covers the case where a due
// flow's depart bbox collides with a standing reservation: the emission is
// skipped without marking last_added, so the same flow is still due (and
// will be retried) on the very next call.
func TestEmissionCollisionIsRetriedSilentlyNextTick(t *testing.T) {
	rm := buildSingleLaneMap()
	p := newTestProvider(t, rm)
	f := testFlow()
	p.flows = []*model.Flow{f}

	lane, ok := p.laneByID("R0_0")
	if !ok {
		t.Fatal("lane not found")
	}
	pose := model.Pose{Point: lane.FromLaneCoord(0), Heading: lane.Heading}
	blocking := BoundsOf(pose, model.Dimensions{Length: 4.5, Width: 1.8, Height: 1.5}, 0)
	p.reserved["blocker"] = blocking

	events := p.addActorsForTime(1.0)

	assert.Empty(t, events)
	assert.Nil(t, f.LastAdded)
	assert.Len(t, p.actors, 0)
	assert.True(t, f.Due(1.0), "flow should remain due after a collided emission attempt")

	delete(p.reserved, "blocker")
	events = p.addActorsForTime(1.0)
	assert.Len(t, events, 1)
	assert.NotNil(t, f.LastAdded)
	assert.Len(t, p.actors, 1)
}
