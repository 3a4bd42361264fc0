// Package roadmap defines the lane-graph accessor the engine consumes and an
// in-memory implementation the module can run standalone against (tests, the
// headless driver, the visualization server). A host embedding the engine in
// a larger simulator is free to satisfy RoadMap with its own map instead.
package roadmap

import "github.com/jwmdev/trafficcore/model"

// RoadMap is the opaque lane-graph accessor consumed by the core.
type RoadMap interface {
	RoadByID(id string) (*Road, bool)
	NearestLane(point model.Point, radius float64) (*Lane, float64, bool)
	NearestLanes(point model.Point, radius float64, includeJunctions bool) []LaneDistance
	RandomRoute(rng RNG, minRoads, maxRoads int) []string
}

// RNG is the minimal random-number surface RoadMap needs; satisfied by
// *math/rand.Rand via simrand.Source.
type RNG interface {
	Intn(n int) int
	Float64() float64
}

// LaneDistance pairs a lane with its distance from a query point.
type LaneDistance struct {
	Lane     *Lane
	Distance float64
}

// Road groups an ordered set of lanes and the roads reachable after it.
type Road struct {
	RoadID        string
	Lanes         []*Lane // ordered by index
	OutgoingRoads []string
	CompositeRoad string // canonical road id, equals RoadID if not composite
}
