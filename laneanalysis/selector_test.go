package laneanalysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwmdev/trafficcore/model"
	"github.com/jwmdev/trafficcore/simrand"
)

func TestTargetCutinGapBand(t *testing.T) {
	lo, hi := targetCutinGapBand(2.5, 1.0)
	assert.InDelta(t, 6.25, lo, 1e-9)
	assert.InDelta(t, 8.25, hi, 1e-9)
}

func TestTryCutinCommitsWithinBandAndForcedProb(t *testing.T) {
	rng := simrand.New(1)
	sel := NewSelector(rng)
	gap := 7.0
	actor := &model.TrafficActor{MinSpaceCush: 2.5, Aggressiveness: 1.0, CutinProb: 1.0}
	cand := &model.LaneWindow{LaneID: "L1", AgentGap: &gap}

	ok := sel.tryCutin(actor, cand)
	assert.True(t, ok)
	assert.Same(t, cand, actor.CuttingInto)
	assert.Equal(t, 0.0, actor.InFrontAfterCutinSecs)
}

func TestTryCutinRejectsOutsideBand(t *testing.T) {
	rng := simrand.New(1)
	sel := NewSelector(rng)
	gap := 9.0
	actor := &model.TrafficActor{MinSpaceCush: 2.5, Aggressiveness: 1.0, CutinProb: 1.0}
	cand := &model.LaneWindow{LaneID: "L1", AgentGap: &gap}

	assert.False(t, sel.tryCutin(actor, cand))
	assert.Nil(t, actor.CuttingInto)
}

func TestTryCutinRejectsWithoutAgentGap(t *testing.T) {
	rng := simrand.New(1)
	sel := NewSelector(rng)
	actor := &model.TrafficActor{MinSpaceCush: 2.5, Aggressiveness: 1.0, CutinProb: 1.0}
	cand := &model.LaneWindow{LaneID: "L1"}

	assert.False(t, sel.tryCutin(actor, cand))
}
