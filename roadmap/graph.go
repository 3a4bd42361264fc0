package roadmap

import (
	"math"
	"sort"

	"github.com/katalvlaran/lvlath/core"

	"github.com/jwmdev/trafficcore/model"
)

// GraphRoadMap is a concrete, in-memory RoadMap. Connectivity between lanes
// (incoming/outgoing links) is carried by a directed lvlath graph: one vertex
// per lane id, one edge per outgoing-lane link. Geometry and grouping live in
// this package; the graph library is responsible only for adjacency.
type GraphRoadMap struct {
	g     *core.Graph
	lanes map[string]*Lane
	roads map[string]*Road
}

// NewGraphRoadMap builds an empty road map ready for AddRoad calls.
func NewGraphRoadMap() *GraphRoadMap {
	return &GraphRoadMap{
		g:     core.NewMixedGraph(core.WithDirected()),
		lanes: make(map[string]*Lane),
		roads: make(map[string]*Road),
	}
}

// AddRoad registers a road and its lanes, and wires each lane's
// outgoing-lane links into the underlying graph.
func (m *GraphRoadMap) AddRoad(r *Road) error {
	m.roads[r.RoadID] = r
	for _, l := range r.Lanes {
		m.lanes[l.LaneID] = l
		if err := m.g.AddVertex(l.LaneID); err != nil {
			return err
		}
	}
	for _, l := range r.Lanes {
		for _, out := range l.OutgoingLaneIDs {
			if _, err := m.g.AddEdge(l.LaneID, out, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

// Lane returns a lane by id.
func (m *GraphRoadMap) Lane(id string) (*Lane, bool) {
	l, ok := m.lanes[id]
	return l, ok
}

// RoadByID implements RoadMap.
func (m *GraphRoadMap) RoadByID(id string) (*Road, bool) {
	r, ok := m.roads[id]
	return r, ok
}

// OutgoingLaneIDs returns the lane ids reachable from id via the graph,
// sorted for deterministic iteration (lvlath's own Neighbors/NeighborIDs
// methods already sort by id; this re-derives the same order directly from
// the Lane's own OutgoingLaneIDs to avoid an extra graph round trip on the
// hot lane-window path).
func (m *GraphRoadMap) OutgoingLaneIDs(id string) []string {
	l, ok := m.lanes[id]
	if !ok {
		return nil
	}
	out := append([]string(nil), l.OutgoingLaneIDs...)
	sort.Strings(out)
	return out
}

// NearestLane implements RoadMap: returns the single closest lane within
// radius, or false if none qualifies.
func (m *GraphRoadMap) NearestLane(point model.Point, radius float64) (*Lane, float64, bool) {
	cands := m.NearestLanes(point, radius, true)
	if len(cands) == 0 {
		return nil, 0, false
	}
	return cands[0].Lane, cands[0].Distance, true
}

// NearestLanes implements RoadMap. includeJunctions is honored by filtering
// out lanes whose Composite id differs from their own (this module's
// convention for "is a junction-internal lane").
func (m *GraphRoadMap) NearestLanes(point model.Point, radius float64, includeJunctions bool) []LaneDistance {
	var out []LaneDistance
	for _, l := range m.lanes {
		if !includeJunctions && l.Composite != l.LaneID {
			continue
		}
		coord := l.ToLaneCoord(point)
		s := model.Clip(coord.S, 0, l.Length)
		p := l.FromLaneCoord(s)
		d := math.Hypot(point.X-p.X, point.Y-p.Y)
		if d <= radius {
			out = append(out, LaneDistance{Lane: l, Distance: d})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Lane.LaneID < out[j].Lane.LaneID
	})
	return out
}

// RandomRoute implements RoadMap: a bounded random walk over road
// connectivity, grounded on lvlath's BFS walker bookkeeping (visited set,
// frontier) but driven by rng.Intn instead of FIFO order, since the goal
// here is a plausible route, not a shortest path.
func (m *GraphRoadMap) RandomRoute(rng RNG, minRoads, maxRoads int) []string {
	if len(m.roads) == 0 {
		return nil
	}
	ids := make([]string, 0, len(m.roads))
	for id := range m.roads {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	start := ids[rng.Intn(len(ids))]
	route := []string{start}
	cur := m.roads[start]
	for len(route) < maxRoads {
		if len(cur.OutgoingRoads) == 0 {
			break
		}
		if len(route) >= minRoads && rng.Float64() < 0.3 {
			break
		}
		next := cur.OutgoingRoads[rng.Intn(len(cur.OutgoingRoads))]
		nr, ok := m.roads[next]
		if !ok {
			break
		}
		route = append(route, next)
		cur = nr
	}
	return route
}
