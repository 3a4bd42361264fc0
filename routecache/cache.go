// Package routecache implements the precomputed (lane_id, route_index) →
// remaining_length tables shared by every actor following the same route.
package routecache

import (
	"sync"

	"github.com/samber/lo"

	"github.com/jwmdev/trafficcore/model"
	"github.com/jwmdev/trafficcore/roadmap"
)

// loopCloseBonus rewards lanes that feed back into the first road of a
// route, so endless/closed-loop routes are preferred by tie-breaking logic
// downstream (the lane selector), per the back-propagation algorithm.
const loopCloseBonus = 1.0

// key identifies one cell of a route's remaining-length table.
type key struct {
	LaneID     string
	RouteIndex int
}

// Table maps (lane_id, route_index) to the distance from the start of that
// lane to the end of the route.
type Table map[key]float64

// RemainingLength returns the remaining route length from the start of
// laneID at routeIndex, or ok=false if the lane never appears in the route
// at that index.
func (t Table) RemainingLength(laneID string, routeIndex int) (float64, bool) {
	v, ok := t[key{laneID, routeIndex}]
	return v, ok
}

// Cache owns the write-once-per-route-id table set, shared across every
// actor traversing the same route.
type Cache struct {
	mu     sync.Mutex
	once   map[uint64]*sync.Once
	tables map[uint64]Table
	rm     roadmap.RoadMap
}

// New creates a route cache bound to a road map.
func New(rm roadmap.RoadMap) *Cache {
	return &Cache{
		once:   make(map[uint64]*sync.Once),
		tables: make(map[uint64]Table),
		rm:     rm,
	}
}

// Get returns the (possibly freshly built) table for a route, building it
// exactly once per distinct route_id no matter how many actors share it.
func (c *Cache) Get(route []string) Table {
	routeID := model.RouteIDHash(route)

	c.mu.Lock()
	once, ok := c.once[routeID]
	if !ok {
		once = &sync.Once{}
		c.once[routeID] = once
	}
	c.mu.Unlock()

	once.Do(func() {
		t := build(c.rm, route)
		c.mu.Lock()
		c.tables[routeID] = t
		c.mu.Unlock()
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tables[routeID]
}

// build walks the route from its last road back to its first, accumulating
// each lane's remaining length and back-propagating it into the lanes of the
// preceding road that feed into it. Processing in reverse order is what
// makes "remaining length to the end of the route" available to propagate:
// a lane's entry is only complete once everything downstream of it has been
// folded in.
func build(rm roadmap.RoadMap, route []string) Table {
	t := make(Table)
	if len(route) == 0 {
		return t
	}
	firstRoadID := route[0]

	// Seed every route lane's cell to zero first, so the back-propagation
	// pass below can tell "this incoming lane is on the route at i-1" apart
	// from a junction/side-street lane that merely happens to feed into a
	// route lane geometrically. Without this, the existence check on an
	// unprocessed index would always be false and propagation would never
	// fire at all, since this loop walks the route in reverse.
	roads := make([]*roadmap.Road, len(route))
	for i, roadID := range route {
		road, ok := rm.RoadByID(roadID)
		if !ok {
			continue
		}
		roads[i] = road
		for _, lane := range road.Lanes {
			t[key{lane.LaneID, i}] = 0
		}
	}

	for i := len(route) - 1; i >= 0; i-- {
		road := roads[i]
		if road == nil {
			continue
		}
		for _, lane := range road.Lanes {
			entry := t[key{lane.LaneID, i}] + lane.Length
			if lo.SomeBy(lane.OutgoingLaneIDs, func(outID string) bool {
				out, ok := rm.RoadByID(laneRoadID(rm, outID))
				return ok && out.RoadID == firstRoadID
			}) {
				entry += loopCloseBonus
			}
			t[key{lane.LaneID, i}] = entry

			if i == 0 {
				continue
			}
			for _, incID := range lane.IncomingLaneIDs {
				if _, ok := t[key{incID, i - 1}]; ok {
					t[key{incID, i - 1}] += entry
				}
			}
		}
	}
	return t
}

// laneRoadID looks up the road id a lane belongs to. Returns "" if unknown.
func laneRoadID(rm roadmap.RoadMap, laneID string) string {
	type laneLookup interface {
		Lane(id string) (*roadmap.Lane, bool)
	}
	if lr, ok := rm.(laneLookup); ok {
		if l, ok := lr.Lane(laneID); ok {
			return l.RoadID
		}
	}
	return ""
}
