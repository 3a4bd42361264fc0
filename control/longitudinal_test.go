package control

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwmdev/trafficcore/model"
	"github.com/jwmdev/trafficcore/roadmap"
)

func TestAccelerationEmergencyBrakeOnTimeCushion(t *testing.T) {
	lane := &roadmap.Lane{LaneID: "L0", Length: 200, Width: 3.2, Radius: 0}
	target := &model.LaneWindow{LaneID: "L0", LaneIndex: 0, TimeLeft: 0.2, Gap: 0.1}
	current := &model.LaneWindow{LaneID: "L0", LaneIndex: 0, TimeLeft: 5, Gap: 5}

	params := LongitudinalParams{Tau: 1.0, EmergencyDecel: 4.5, MinSpaceCush: 2.5, Accel: 2.0, Decel: 3.0}
	accel := Acceleration(target, current, lane, lane, 20, 15, 0, params, 0.1)

	assert.InDelta(t, -4.5, accel, 1e-6)
}

func TestAccelerationPIDWhenCushionsClear(t *testing.T) {
	lane := &roadmap.Lane{LaneID: "L0", Length: 200, Width: 3.2, Radius: 0}
	target := &model.LaneWindow{LaneID: "L0", LaneIndex: 0, TimeLeft: 30, Gap: 50}
	current := &model.LaneWindow{LaneID: "L0", LaneIndex: 0, TimeLeft: 30, Gap: 50}

	params := LongitudinalParams{Tau: 1.0, EmergencyDecel: 4.5, MinSpaceCush: 2.5, Accel: 2.0, Decel: 3.0}
	accel := Acceleration(target, current, lane, lane, 10, 15, 0, params, 0.1)

	assert.Greater(t, accel, 0.0)
}
