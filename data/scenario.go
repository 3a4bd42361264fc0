// Package data loads a road-map scenario description from YAML into a
// roadmap.GraphRoadMap.
package data

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jwmdev/trafficcore/model"
	"github.com/jwmdev/trafficcore/roadmap"
)

// LaneSpec is one lane's YAML shape.
type LaneSpec struct {
	ID              string   `yaml:"id"`
	Index           int      `yaml:"index"`
	Length          float64  `yaml:"length"`
	SpeedLimit      *float64 `yaml:"speed_limit"`
	Width           float64  `yaml:"width"`
	Radius          float64  `yaml:"radius"`
	StartX          float64  `yaml:"start_x"`
	StartY          float64  `yaml:"start_y"`
	Heading         float64  `yaml:"heading"`
	IncomingLaneIDs []string `yaml:"incoming_lanes"`
	OutgoingLaneIDs []string `yaml:"outgoing_lanes"`
}

// RoadSpec is one road's YAML shape.
type RoadSpec struct {
	ID            string     `yaml:"id"`
	Lanes         []LaneSpec `yaml:"lanes"`
	OutgoingRoads []string   `yaml:"outgoing_roads"`
	CompositeRoad string     `yaml:"composite_road"`
}

// ScenarioSpec is the top-level YAML document: a road map plus a pointer to
// a traffic spec XML file to load flows from.
type ScenarioSpec struct {
	Roads          []RoadSpec `yaml:"roads"`
	TrafficSpec    string     `yaml:"traffic_spec"`
	EndlessTraffic bool       `yaml:"endless_traffic"`
	Seed           int64      `yaml:"seed"`
}

// LoadScenario parses a YAML scenario document and builds a road map from
// it. It does not load the traffic spec XML; callers use the returned
// ScenarioSpec.TrafficSpec path for that.
func LoadScenario(r io.Reader) (*ScenarioSpec, roadmap.RoadMap, error) {
	var spec ScenarioSpec
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&spec); err != nil {
		return nil, nil, model.NewConfigError("scenario yaml", err)
	}

	rm := roadmap.NewGraphRoadMap()
	for _, rs := range spec.Roads {
		road := &roadmap.Road{
			RoadID:        rs.ID,
			OutgoingRoads: rs.OutgoingRoads,
			CompositeRoad: rs.CompositeRoad,
		}
		if road.CompositeRoad == "" {
			road.CompositeRoad = rs.ID
		}
		for _, ls := range rs.Lanes {
			lane := &roadmap.Lane{
				LaneID:          ls.ID,
				Index:           ls.Index,
				Length:          ls.Length,
				SpeedLim:        ls.SpeedLimit,
				RoadID:          rs.ID,
				Composite:       ls.ID,
				Width:           ls.Width,
				Radius:          ls.Radius,
				Start:           model.Point{X: ls.StartX, Y: ls.StartY},
				Heading:         ls.Heading,
				IncomingLaneIDs: ls.IncomingLaneIDs,
				OutgoingLaneIDs: ls.OutgoingLaneIDs,
			}
			road.Lanes = append(road.Lanes, lane)
		}
		if err := rm.AddRoad(road); err != nil {
			return nil, nil, fmt.Errorf("scenario: add road %s: %w", rs.ID, err)
		}
	}
	return &spec, rm, nil
}
