// Package flowspec parses the SUMO-subset traffic-specification document
// (<routes> containing <vType>, <route>, <flow>) into normalized Flow
// descriptors. Unknown elements are ignored; missing vType/route references
// are a fatal model.ConfigError.
package flowspec

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/jwmdev/trafficcore/model"
)

type rawRoutes struct {
	XMLName xml.Name   `xml:"routes"`
	VTypes  []rawVType `xml:"vType"`
	Routes  []rawRoute `xml:"route"`
	Flows   []rawFlow  `xml:"flow"`
}

type rawVType struct {
	ID             string `xml:"id,attr"`
	VClass         string `xml:"vClass,attr"`
	Accel          string `xml:"accel,attr"`
	Decel          string `xml:"decel,attr"`
	EmergencyDecel string `xml:"emergencyDecel,attr"`
	MaxSpeed       string `xml:"maxSpeed,attr"`
	Tau            string `xml:"tau,attr"`
	MinGap         string `xml:"minGap,attr"`
	SpeedFactor    string `xml:"speedFactor,attr"`
	SpeedDev       string `xml:"speedDev,attr"`
	LCAssertive    string `xml:"lcAssertive,attr"`
	LCCutinProb    string `xml:"lcCutinProb,attr"`
}

type rawRoute struct {
	ID    string `xml:"id,attr"`
	Edges string `xml:"edges,attr"`
}

type rawFlow struct {
	ID          string `xml:"id,attr"`
	Type        string `xml:"type,attr"`
	Route       string `xml:"route,attr"`
	Begin       string `xml:"begin,attr"`
	End         string `xml:"end,attr"`
	VehsPerHour string `xml:"vehsPerHour,attr"`
	DepartLane  string `xml:"departLane,attr"`
	DepartPos   string `xml:"departPos,attr"`
	DepartSpeed string `xml:"departSpeed,attr"`
	ArrivalLane string `xml:"arrivalLane,attr"`
	ArrivalPos  string `xml:"arrivalPos,attr"`
}

// Document is the normalized result of parsing a traffic-specification file.
type Document struct {
	VTypes map[string]model.VType
	Flows  []*model.Flow
}

// Parse reads a traffic-specification document and returns normalized flows.
// Every error returned is a *model.ConfigError.
func Parse(r io.Reader) (*Document, error) {
	var raw rawRoutes
	if err := xml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, model.NewConfigError("decode traffic spec", err)
	}

	vtypes := make(map[string]model.VType, len(raw.VTypes))
	for _, rv := range raw.VTypes {
		vt, err := parseVType(rv)
		if err != nil {
			return nil, model.NewConfigError(fmt.Sprintf("vType %q", rv.ID), err)
		}
		applied, _ := model.ApplyDefaults(vt)
		vtypes[rv.ID] = applied
	}

	routes := make(map[string][]string, len(raw.Routes))
	for _, rr := range raw.Routes {
		routes[rr.ID] = splitEdges(rr.Edges)
	}

	doc := &Document{VTypes: vtypes}
	for _, rf := range raw.Flows {
		vt, ok := vtypes[rf.Type]
		if !ok {
			return nil, model.NewConfigError(fmt.Sprintf("flow %q", rf.ID), fmt.Errorf("undefined vType %q", rf.Type))
		}
		route, ok := routes[rf.Route]
		if !ok {
			return nil, model.NewConfigError(fmt.Sprintf("flow %q", rf.ID), fmt.Errorf("undefined route %q", rf.Route))
		}
		flow, err := parseFlow(rf, vt, route)
		if err != nil {
			return nil, model.NewConfigError(fmt.Sprintf("flow %q", rf.ID), err)
		}
		flow.Normalize()
		doc.Flows = append(doc.Flows, flow)
	}
	return doc, nil
}

func splitEdges(edges string) []string {
	var out []string
	cur := ""
	for _, r := range edges {
		if r == ' ' || r == '\t' {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func parseVType(rv rawVType) (model.VType, error) {
	f := func(s string) (float64, error) {
		if s == "" {
			return 0, nil
		}
		return strconv.ParseFloat(s, 64)
	}
	var vt model.VType
	vt.ID = rv.ID
	vt.VClass = rv.VClass
	var err error
	if vt.Accel, err = f(rv.Accel); err != nil {
		return vt, fmt.Errorf("accel: %w", err)
	}
	if vt.Decel, err = f(rv.Decel); err != nil {
		return vt, fmt.Errorf("decel: %w", err)
	}
	if vt.EmergencyDecel, err = f(rv.EmergencyDecel); err != nil {
		return vt, fmt.Errorf("emergencyDecel: %w", err)
	}
	if vt.MaxSpeed, err = f(rv.MaxSpeed); err != nil {
		return vt, fmt.Errorf("maxSpeed: %w", err)
	}
	if vt.Tau, err = f(rv.Tau); err != nil {
		return vt, fmt.Errorf("tau: %w", err)
	}
	if vt.MinGap, err = f(rv.MinGap); err != nil {
		return vt, fmt.Errorf("minGap: %w", err)
	}
	if vt.SpeedFactor, err = f(rv.SpeedFactor); err != nil {
		return vt, fmt.Errorf("speedFactor: %w", err)
	}
	if vt.SpeedDev, err = f(rv.SpeedDev); err != nil {
		return vt, fmt.Errorf("speedDev: %w", err)
	}
	if vt.LCAssertive, err = f(rv.LCAssertive); err != nil {
		return vt, fmt.Errorf("lcAssertive: %w", err)
	}
	if vt.LCCutinProb, err = f(rv.LCCutinProb); err != nil {
		return vt, fmt.Errorf("lcCutinProb: %w", err)
	}
	return vt, nil
}

func parseFlow(rf rawFlow, vt model.VType, route []string) (*model.Flow, error) {
	pf := func(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

	begin, err := pf(rf.Begin)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	end, err := pf(rf.End)
	if err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	vph, err := pf(rf.VehsPerHour)
	if err != nil {
		return nil, fmt.Errorf("vehsPerHour: %w", err)
	}
	departLane, err := strconv.Atoi(rf.DepartLane)
	if err != nil {
		departLane = 0
	}
	arrivalLane, err := strconv.Atoi(rf.ArrivalLane)
	if err != nil {
		arrivalLane = 0
	}
	departPos, err := model.ParseToken(rf.DepartPos)
	if err != nil {
		return nil, fmt.Errorf("departPos: %w", err)
	}
	departSpeed, err := model.ParseToken(rf.DepartSpeed)
	if err != nil {
		return nil, fmt.Errorf("departSpeed: %w", err)
	}
	arrivalPos, err := model.ParseToken(rf.ArrivalPos)
	if err != nil {
		return nil, fmt.Errorf("arrivalPos: %w", err)
	}

	return &model.Flow{
		ID:          rf.ID,
		Route:       route,
		VType:       vt,
		Begin:       begin,
		End:         end,
		VehsPerHour: vph,
		DepartLane:  departLane,
		DepartPos:   departPos,
		DepartSpeed: departSpeed,
		ArrivalLane: arrivalLane,
		ArrivalPos:  arrivalPos,
	}, nil
}
