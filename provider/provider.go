// Package provider implements the outer-loop Provider (component I): the
// two-phase tick, flow emission, reserved-area admission, sync with foreign
// vehicles, and the teardown/destroy lifecycle.
package provider

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jwmdev/trafficcore/actorstep"
	"github.com/jwmdev/trafficcore/control"
	"github.com/jwmdev/trafficcore/flowspec"
	"github.com/jwmdev/trafficcore/laneanalysis"
	"github.com/jwmdev/trafficcore/model"
	"github.com/jwmdev/trafficcore/roadmap"
	"github.com/jwmdev/trafficcore/routecache"
	"github.com/jwmdev/trafficcore/simrand"
	"github.com/jwmdev/trafficcore/telemetry"
)

// ProviderState is the boundary object returned to the host: managed-actor
// vehicle states only.
type ProviderState struct {
	Vehicles []model.VehicleState
}

// Scenario bundles everything Setup needs.
type Scenario struct {
	RoadMap        roadmap.RoadMap
	TrafficSpec    io.Reader // optional; nil means no flows are loaded
	Seed           int64
	SourceID       string
	EndlessTraffic bool
}

// Provider is the engine's outer loop. It is single-threaded and
// tick-synchronous: Step must run to completion before any other entry
// point is invoked.
type Provider struct {
	rm       roadmap.RoadMap
	routes   *routecache.Cache
	flows    []*model.Flow
	sourceID string
	endless  bool

	actors     map[string]*model.TrafficActor
	actorOrder []string

	foreign  map[string]model.VehicleState
	reserved map[string]BBox // keyed by foreign vehicle id

	nearestLane map[string]laneanalysis.VehicleSnapshot

	rng      *simrand.Source
	selector *laneanalysis.Selector

	logger  *telemetry.Logger
	metrics *telemetry.Metrics

	tick int64
}

// New constructs an unconfigured Provider; call Setup before Step.
func New(logger *telemetry.Logger, metrics *telemetry.Metrics) *Provider {
	return &Provider{
		actors:      make(map[string]*model.TrafficActor),
		foreign:     make(map[string]model.VehicleState),
		reserved:    make(map[string]BBox),
		nearestLane: make(map[string]laneanalysis.VehicleSnapshot),
		logger:      logger,
		metrics:     metrics,
	}
}

// Setup captures the road map, optionally loads a traffic spec, and seeds
// emissions at t=0.
func (p *Provider) Setup(s Scenario) error {
	p.rm = s.RoadMap
	p.routes = routecache.New(s.RoadMap)
	p.sourceID = s.SourceID
	p.endless = s.EndlessTraffic
	p.rng = simrand.New(s.Seed)
	p.selector = laneanalysis.NewSelector(p.rng)

	if s.TrafficSpec != nil {
		doc, err := flowspec.Parse(s.TrafficSpec)
		if err != nil {
			return err
		}
		for _, f := range doc.Flows {
			if f.DepartSpeed.Kind != model.TokenSpeedLimit || len(f.Route) == 0 {
				continue
			}
			road, ok := p.rm.RoadByID(f.Route[0])
			if ok && f.DepartLane < len(road.Lanes) && road.Lanes[f.DepartLane].SpeedLim == nil {
				return model.NewConfigError(fmt.Sprintf("flow %q", f.ID),
					fmt.Errorf("departSpeed speedLimit on lane %s with no speed limit", road.Lanes[f.DepartLane].LaneID))
			}
		}
		p.flows = doc.Flows
	}
	p.addActorsForTime(0)
	return nil
}

// Step runs one full tick: emission, nearest-lane cache rebuild, decide-all,
// commit-all. It returns the events produced and the new ProviderState.
func (p *Provider) Step(dt, simTime float64) (ProviderState, []Event, error) {
	if p.metrics != nil {
		defer func(start time.Time) { p.metrics.TickDuration.Observe(time.Since(start).Seconds()) }(time.Now())
	}
	p.tick++
	var events []Event

	emitted := p.addActorsForTime(simTime)
	events = append(events, emitted...)

	p.pruneStaleReservations()
	p.rebuildNearestLaneCache()

	type decision struct {
		accel float64
		omega float64
	}
	decisions := make(map[string]decision, len(p.actorOrder))

	for _, id := range p.actorOrder {
		actor := p.actors[id]
		a, omega, ev := p.decideOne(actor, dt)
		decisions[id] = decision{accel: a, omega: omega}
		events = append(events, ev...)
		actorstep.Decide(actor, a, omega, dt)
	}

	var finished []string
	for _, id := range p.actorOrder {
		actor := p.actors[id]
		departLane, departPos, departSpeed := p.departureFor(actor.Flow)
		if err := actorstep.Commit(actor, p.rm, p.endless, departLane, departPos, departSpeed); err != nil {
			return ProviderState{}, events, err
		}
		if actor.DoneWithRoute {
			finished = append(finished, id)
			events = append(events, ActorFinishedEvent{ActorID: id, Reason: "finished_route", Tick: p.tick})
		}
	}
	for _, id := range finished {
		delete(p.actors, id)
	}
	if len(finished) > 0 {
		p.actorOrder = removeAll(p.actorOrder, finished)
	}

	if p.metrics != nil {
		p.metrics.ActorsManaged.Set(float64(len(p.actorOrder)))
	}

	return p.snapshot(), events, nil
}

// decideOne runs E->F->G for one actor against the frozen snapshot.
func (p *Provider) decideOne(actor *model.TrafficActor, dt float64) (accel, omega float64, events []Event) {
	road, ok := p.rm.RoadByID(currentRoadID(actor))
	if !ok {
		return 0, 0, nil
	}
	table := p.routes.Get(actor.Route)

	vehicles := make([]laneanalysis.VehicleSnapshot, 0, len(p.nearestLane))
	for _, v := range p.nearestLane {
		vehicles = append(vehicles, v)
	}
	sort.Slice(vehicles, func(i, j int) bool { return vehicles[i].VehicleID < vehicles[j].VehicleID })

	windows := laneanalysis.ComputeWindows(actor, road, table, vehicles)
	targetWin := p.selector.Select(actor, windows, actor.LaneID, dt)
	if targetWin == nil {
		return 0, 0, nil
	}
	if actor.CuttingInto == targetWin {
		events = append(events, CutInEvent{ActorID: actor.ActorID, LaneID: targetWin.LaneID, Tick: p.tick})
		if p.metrics != nil {
			p.metrics.CutIns.Inc()
		}
	}

	var curWin *model.LaneWindow
	for _, w := range windows {
		if w.LaneID == actor.LaneID {
			curWin = w
			break
		}
	}
	if curWin == nil {
		curWin = targetWin
	}

	targetLane, _ := p.laneByID(targetWin.LaneID)
	curLane, _ := p.laneByID(actor.LaneID)
	if targetLane == nil || curLane == nil {
		return 0, 0, events
	}

	targetSpeed := control.TargetSpeed(targetLane, targetWin.S, actor.SpeedFactor, actor.State.Speed, actor.VType.MaxSpeed)
	omega = control.AngularVelocity(targetLane, actor.State.Pose, actor.State.Speed, dt)

	params := control.LongitudinalParams{
		Tau: actor.VType.Tau, EmergencyDecel: actor.VType.EmergencyDecel,
		MinSpaceCush: actor.MinSpaceCush, Accel: actor.VType.Accel, Decel: actor.VType.Decel,
	}
	accel = control.Acceleration(targetWin, curWin, targetLane, curLane, actor.State.Speed, targetSpeed,
		actor.State.LinearAccelerationOrZero().Norm(), params, dt)

	if accel <= -actor.VType.EmergencyDecel+1e-9 {
		events = append(events, EmergencyBrakeEvent{ActorID: actor.ActorID, Accel: accel, Tick: p.tick})
		if p.metrics != nil {
			p.metrics.EmergencyBrakes.Inc()
		}
	}
	return accel, omega, events
}

func (p *Provider) laneByID(id string) (*roadmap.Lane, bool) {
	type laneLookup interface {
		Lane(id string) (*roadmap.Lane, bool)
	}
	if lr, ok := p.rm.(laneLookup); ok {
		return lr.Lane(id)
	}
	return nil, false
}

func currentRoadID(actor *model.TrafficActor) string {
	if actor.RouteInd >= 0 && actor.RouteInd < len(actor.Route) {
		return actor.Route[actor.RouteInd]
	}
	return ""
}

func (p *Provider) departureFor(f *model.Flow) (laneID string, pos, speed float64) {
	if f == nil || len(f.Route) == 0 {
		return "", 0, 0
	}
	road, ok := p.rm.RoadByID(f.Route[0])
	if !ok || f.DepartLane >= len(road.Lanes) {
		return "", 0, 0
	}
	lane := road.Lanes[f.DepartLane]
	pos = resolvePosToken(f.DepartPos, lane, p.rng, true)
	if f.DepartPos.Kind == model.TokenMax {
		pos -= model.DimensionsForVClass(f.VType.VClass).Length / 2
	}
	return lane.LaneID, pos, resolveSpeedToken(f.DepartSpeed, lane, f.VType, p.rng)
}

func resolvePosToken(t model.Token, lane *roadmap.Lane, rng *simrand.Source, isDepart bool) float64 {
	switch t.Kind {
	case model.TokenMax:
		if isDepart {
			return lane.Length // half-vehicle-length correction applied by departureFor with dimensions
		}
		return lane.Length
	case model.TokenRandom:
		return rng.Uniform(0, lane.Length)
	default:
		return t.Value
	}
}

func resolveSpeedToken(t model.Token, lane *roadmap.Lane, vt model.VType, rng *simrand.Source) float64 {
	switch t.Kind {
	case model.TokenMax:
		if lane.SpeedLim != nil && *lane.SpeedLim < vt.MaxSpeed {
			return *lane.SpeedLim
		}
		return vt.MaxSpeed
	case model.TokenRandom:
		return rng.Uniform(0, vt.MaxSpeed)
	case model.TokenSpeedLimit:
		if lane.SpeedLim == nil {
			return 0 // Setup rejects such flows with a ConfigError, so loaded flows never reach this
		}
		return *lane.SpeedLim
	default:
		return t.Value
	}
}

// addActorsForTime attempts emission for every due flow, skipping ones
// whose depart bbox collides with a reservation or an existing managed
// actor.
func (p *Provider) addActorsForTime(simTime float64) []Event {
	var events []Event
	for _, f := range p.flows {
		if !f.Due(simTime) {
			continue
		}
		if p.metrics != nil {
			p.metrics.EmissionsAttempted.Inc()
		}
		actor, warnEvents, ok := p.tryEmit(f, simTime)
		events = append(events, warnEvents...)
		if !ok {
			continue // silent failure; retried next tick, last_added untouched
		}
		f.MarkEmitted(simTime)
		p.actors[actor.ActorID] = actor
		p.actorOrder = append(p.actorOrder, actor.ActorID)
		if p.metrics != nil {
			p.metrics.EmissionsSucceeded.Inc()
		}
		events = append(events, ActorEmittedEvent{ActorID: actor.ActorID, FlowID: f.ID, Tick: p.tick})
	}
	return events
}

func (p *Provider) tryEmit(f *model.Flow, simTime float64) (*model.TrafficActor, []Event, bool) {
	laneID, pos, speed := p.departureFor(f)
	if laneID == "" {
		return nil, nil, false
	}
	lane, _ := p.laneByID(laneID)
	point := lane.FromLaneCoord(pos)
	pose := model.Pose{Point: point, Heading: lane.Heading}

	applied, warnings := model.ApplyDefaults(f.VType)
	var warnEvents []Event
	for _, w := range warnings {
		p.logger.Warn("vtype parameter clamped", "field", w.Field, "value", w.Value, "message", w.Message)
		warnEvents = append(warnEvents, WarningEvent{Warning: w, Tick: p.tick})
	}

	dims := model.DimensionsForVClass(applied.VClass)
	// The candidate's own box is cushion-padded by its minGap; existing
	// actors' boxes are not, matching the asymmetric admission check.
	bbox := BoundsOf(pose, dims, applied.MinGap)

	for _, rb := range p.reserved {
		if bbox.Intersects(rb) {
			return nil, nil, false
		}
	}
	for _, id := range p.actorOrder {
		other := p.actors[id]
		ob := BoundsOf(other.State.Pose, other.State.Dimensions, 0)
		if bbox.Intersects(ob) {
			return nil, nil, false
		}
	}

	actorID := fmt.Sprintf("%s-%d", f.ID, p.tick)
	actor := &model.TrafficActor{
		ActorID:        actorID,
		Flow:           f,
		VType:          applied,
		Route:          f.Route,
		RouteID:        f.RouteID,
		RouteInd:       0,
		LaneID:         laneID,
		Offset:         pos,
		SpeedFactor:    p.rng.Gaussian(applied.SpeedFactor, applied.SpeedDev),
		MinSpaceCush:   applied.MinGap,
		Aggressiveness: applied.LCAssertive,
		CutinProb:      applied.LCCutinProb,
		CutinHoldSecs:  3,
		State: model.VehicleState{
			VehicleID:   actorID,
			Pose:        pose,
			Speed:       speed,
			Dimensions:  dims,
			Role:        model.RoleSocial,
			VehicleType: f.VType.ID,
			Source:      p.sourceID,
		},
	}
	actor.DestLaneID, actor.DestOffset = p.resolveArrival(f)
	return actor, warnEvents, true
}

func (p *Provider) resolveArrival(f *model.Flow) (string, float64) {
	if len(f.Route) == 0 {
		return "", 0
	}
	road, ok := p.rm.RoadByID(f.Route[len(f.Route)-1])
	if !ok || f.ArrivalLane >= len(road.Lanes) {
		return "", 0
	}
	lane := road.Lanes[f.ArrivalLane]
	return lane.LaneID, resolvePosToken(f.ArrivalPos, lane, p.rng, false)
}

func (p *Provider) pruneStaleReservations() {
	for id := range p.reserved {
		if _, ok := p.foreign[id]; !ok {
			delete(p.reserved, id)
		}
	}
}

// rebuildNearestLaneCache is a per-tick cache of nearest lane + lane offset
// for every known vehicle, managed and foreign, using radius = vehicle
// length.
func (p *Provider) rebuildNearestLaneCache() {
	p.nearestLane = make(map[string]laneanalysis.VehicleSnapshot, len(p.actorOrder)+len(p.foreign))
	for _, id := range p.actorOrder {
		a := p.actors[id]
		lane, _ := p.laneByID(a.LaneID)
		p.nearestLane[id] = laneanalysis.VehicleSnapshot{
			VehicleID: id, State: a.State, Lane: lane, LaneOffset: a.Offset,
			Route: a.Route, RouteInd: a.RouteInd,
		}
	}
	for id, st := range p.foreign {
		lane, dist, ok := p.rm.NearestLane(st.Pose.Point, st.Dimensions.Length)
		if !ok || dist > st.Dimensions.Length {
			continue
		}
		p.nearestLane[id] = laneanalysis.VehicleSnapshot{
			VehicleID: id, State: st, Lane: lane, LaneOffset: lane.OffsetAlongLane(st.Pose.Point),
		}
	}
}

func (p *Provider) snapshot() ProviderState {
	out := make([]model.VehicleState, 0, len(p.actorOrder))
	for _, id := range p.actorOrder {
		out = append(out, p.actors[id].State)
	}
	return ProviderState{Vehicles: out}
}

// Sync implements spec 4.I's sync semantics.
func (p *Provider) Sync(state ProviderState) []Event {
	var events []Event
	incoming := make(map[string]model.VehicleState, len(state.Vehicles))
	for _, v := range state.Vehicles {
		incoming[v.VehicleID] = v
	}

	for _, id := range p.actorOrder {
		v, ok := incoming[id]
		if !ok {
			delete(p.actors, id)
			events = append(events, ActorFinishedEvent{ActorID: id, Reason: "dropped_missing_from_sync", Tick: p.tick})
			p.logger.Warn("managed actor missing from sync, dropped", "actor_id", id)
			continue
		}
		if v.Source != p.sourceID {
			delete(p.actors, id)
			events = append(events, ActorFinishedEvent{ActorID: id, Reason: "hijacked", Tick: p.tick})
			continue
		}
		p.actors[id].State = v
	}
	p.actorOrder = aliveOrder(p.actorOrder, p.actors)

	p.foreign = make(map[string]model.VehicleState)
	for _, v := range state.Vehicles {
		if v.Source == p.sourceID {
			continue
		}
		p.foreign[v.VehicleID] = v
	}
	return events
}

// Reset clears all actors and foreign vehicles but keeps the road map,
// flows, and RNG seed state as configured at Setup.
func (p *Provider) Reset() {
	p.actors = make(map[string]*model.TrafficActor)
	p.actorOrder = nil
	p.foreign = make(map[string]model.VehicleState)
	p.reserved = make(map[string]BBox)
	p.nearestLane = make(map[string]laneanalysis.VehicleSnapshot)
	for _, f := range p.flows {
		f.LastAdded = nil
	}
}

// Teardown clears all collections synchronously. Cancellation is not
// modeled: the host terminates a run by calling Teardown or Destroy.
func (p *Provider) Teardown() {
	p.Reset()
}

// Destroy releases everything Teardown does, plus the road map/flow
// references, making the Provider unusable until Setup is called again.
func (p *Provider) Destroy() {
	p.Teardown()
	p.rm = nil
	p.flows = nil
	p.routes = nil
}

// ManagesVehicle reports whether id is a currently managed actor.
func (p *Provider) ManagesVehicle(id string) bool {
	_, ok := p.actors[id]
	return ok
}

// StopManaging hijacks a managed actor away immediately.
func (p *Provider) StopManaging(id string) error {
	if _, ok := p.actors[id]; !ok {
		return model.NewLookupError(id, "stop_managing")
	}
	delete(p.actors, id)
	p.actorOrder = removeAll(p.actorOrder, []string{id})
	return nil
}

// ReserveTrafficLocationForVehicle stores an exclusion zone for a foreign
// vehicle, consulted at emission time.
func (p *Provider) ReserveTrafficLocationForVehicle(foreignID string, box BBox) {
	p.reserved[foreignID] = box
}

// UpdateRouteForVehicle re-caches lengths and resets the actor's route and
// destination.
func (p *Provider) UpdateRouteForVehicle(id string, roads []string) error {
	actor, ok := p.actors[id]
	if !ok {
		return model.NewLookupError(id, "update_route_for_vehicle")
	}
	actor.Route = roads
	actor.RouteID = model.RouteIDHash(roads)
	actor.RouteInd = 0
	arrival := model.Flow{Route: roads}
	if actor.Flow != nil {
		arrival.ArrivalLane, arrival.ArrivalPos = actor.Flow.ArrivalLane, actor.Flow.ArrivalPos
	}
	actor.DestLaneID, actor.DestOffset = p.resolveArrival(&arrival)
	p.routes.Get(roads)
	return nil
}

// VehicleDestRoad returns the road id of a managed actor's destination.
func (p *Provider) VehicleDestRoad(id string) (string, error) {
	actor, ok := p.actors[id]
	if !ok {
		return "", model.NewLookupError(id, "vehicle_dest_road")
	}
	if len(actor.Route) == 0 {
		return "", nil
	}
	return actor.Route[len(actor.Route)-1], nil
}

// CanAcceptVehicle accepts roles Social/Unknown.
func (p *Provider) CanAcceptVehicle(state model.VehicleState) bool {
	return state.Role == model.RoleSocial || state.Role == model.RoleUnknown
}

// AddVehicle transfers a foreign vehicle in under this provider's
// management. If route is empty, a random route is chosen from the road
// map.
func (p *Provider) AddVehicle(state model.VehicleState, route []string) *model.TrafficActor {
	if len(route) == 0 {
		route = p.rm.RandomRoute(p.rng, 1, 6)
	}
	applied, _ := model.ApplyDefaults(model.DefaultVType())
	actor := &model.TrafficActor{
		ActorID: state.VehicleID, Route: route, RouteID: model.RouteIDHash(route),
		VType: applied, State: state,
		SpeedFactor: p.rng.Gaussian(applied.SpeedFactor, applied.SpeedDev),
		MinSpaceCush: applied.MinGap, Aggressiveness: applied.LCAssertive, CutinHoldSecs: 3,
	}
	actor.State.Source = p.sourceID
	lane, _, ok := p.rm.NearestLane(state.Pose.Point, state.Dimensions.Length)
	if ok {
		actor.LaneID = lane.LaneID
		actor.Offset = lane.OffsetAlongLane(state.Pose.Point)
	}
	actor.DestLaneID, actor.DestOffset = p.resolveArrival(&model.Flow{Route: route})
	p.actors[actor.ActorID] = actor
	p.actorOrder = append(p.actorOrder, actor.ActorID)
	return actor
}

func removeAll(order []string, drop []string) []string {
	dropSet := make(map[string]bool, len(drop))
	for _, d := range drop {
		dropSet[d] = true
	}
	out := order[:0:0]
	for _, id := range order {
		if !dropSet[id] {
			out = append(out, id)
		}
	}
	return out
}

func aliveOrder(order []string, alive map[string]*model.TrafficActor) []string {
	out := order[:0:0]
	for _, id := range order {
		if _, ok := alive[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
