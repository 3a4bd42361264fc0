package laneanalysis

import (
	"github.com/jwmdev/trafficcore/model"
	"github.com/jwmdev/trafficcore/simrand"
)

// ScanDirection controls which way the selector scans lane indices outward
// from the current lane. The default, ScanAscending, walks increasing index
// with wraparound; ScanDescending is available for hosts whose map
// convention runs the other way.
type ScanDirection int

const (
	ScanAscending ScanDirection = iota
	ScanDescending
)

// Selector chooses a target lane from a set of computed LaneWindows,
// honoring destination lane, cut-in discipline, and crossing feasibility.
type Selector struct {
	Direction ScanDirection
	RNG       *simrand.Source
}

// NewSelector builds a Selector with the default (ascending) scan direction.
func NewSelector(rng *simrand.Source) *Selector {
	return &Selector{Direction: ScanAscending, RNG: rng}
}

// targetCutinGapBand returns the (lo, hi] band a candidate's agent_gap must
// fall in to be considered for a cut-in.
func targetCutinGapBand(minSpaceCush, aggressiveness float64) (lo, hi float64) {
	target := 2.5 * minSpaceCush
	return target / aggressiveness, target + 2
}

// Select runs the lane-selection algorithm (component F) and returns the
// chosen LaneWindow, mutating actor's cut-in bookkeeping in place.
func (sel *Selector) Select(actor *model.TrafficActor, windows []*model.LaneWindow, currentLaneID string, dt float64) *model.LaneWindow {
	byID := make(map[string]*model.LaneWindow, len(windows))
	var order []int
	n := len(windows)
	curIdx := 0
	for i, w := range windows {
		byID[w.LaneID] = w
		if w.LaneID == currentLaneID {
			curIdx = i
		}
	}

	best := byID[currentLaneID]
	if best == nil && n > 0 {
		best = windows[0]
		curIdx = 0
	}
	if best == nil {
		return nil
	}

	if sel.Direction == ScanAscending {
		for k := 0; k < n; k++ {
			order = append(order, (curIdx+k)%n)
		}
	} else {
		for k := 0; k < n; k++ {
			order = append(order, (curIdx-k+n)%n)
		}
	}

	for _, idx := range order {
		cand := windows[idx]
		isCurrent := cand.LaneID == currentLaneID

		if !isCurrent && !cand.Feasible {
			// Stop scanning in this direction once infeasible.
			break
		}

		if cand.LaneID == actor.DestLaneID && cand.S+cand.Gap >= actor.DestOffset {
			sel.clearCutin(actor)
			return cand
		}

		// Evaluated even for the current lane: this is where
		// InFrontAfterCutinSecs accumulates and the hold timer releases a
		// completed cut-in once the actor is actually in the committed lane.
		if sel.handleCutinPersistence(actor, cand, currentLaneID, dt) {
			return actor.CuttingInto
		}

		if isCurrent {
			continue
		}

		if sel.tryCutin(actor, cand) {
			best = cand
			continue
		}

		if preferCandidate(best, cand, actor) {
			best = cand
		}
	}

	return best
}

// handleCutinPersistence: if a prior cut-in commitment is still feasible,
// keep it; release only after cutin_hold_secs of being in the committed
// lane.
func (sel *Selector) handleCutinPersistence(actor *model.TrafficActor, cand *model.LaneWindow, currentLaneID string, dt float64) bool {
	if actor.CuttingInto == nil {
		return false
	}
	committed := actor.CuttingInto
	if committed.LaneID != cand.LaneID {
		return false
	}
	if !cand.Feasible {
		sel.clearCutin(actor)
		return false
	}
	if committed.LaneID == currentLaneID {
		actor.InFrontAfterCutinSecs += dt
		if actor.InFrontAfterCutinSecs >= actor.CutinHoldSecs {
			sel.clearCutin(actor)
			return false
		}
	}
	actor.CuttingInto = cand
	return true
}

func (sel *Selector) clearCutin(actor *model.TrafficActor) {
	actor.CuttingInto = nil
	actor.InFrontAfterCutinSecs = 0
}

// tryCutin is a probability-gated commitment into a modest gap behind an
// ego agent.
func (sel *Selector) tryCutin(actor *model.TrafficActor, cand *model.LaneWindow) bool {
	if cand.AgentGap == nil {
		return false
	}
	lo, hi := targetCutinGapBand(actor.MinSpaceCush, actor.Aggressiveness)
	gap := *cand.AgentGap
	if !(gap > lo && gap <= hi) {
		return false
	}
	if sel.RNG.Float64() >= actor.CutinProb {
		return false
	}
	actor.CuttingInto = cand
	actor.InFrontAfterCutinSecs = 0
	return true
}

// preferCandidate breaks a tie between the running best lane and a new
// candidate.
func preferCandidate(best, cand *model.LaneWindow, actor *model.TrafficActor) bool {
	if cand.AdjTimeLeft > best.AdjTimeLeft {
		return true
	}
	if cand.AdjTimeLeft < best.AdjTimeLeft {
		return false
	}
	if cand.LaneID == actor.DestLaneID && cand.S+cand.Gap >= actor.DestOffset {
		return true
	}
	return cand.TTRE > best.TTRE && cand.LaneIndex < best.LaneIndex
}
