package model

// LaneWindow is the per-tick, per-lane kinematic summary computed by the
// lane-window analyzer and consumed by the lane selector.
type LaneWindow struct {
	LaneID       string
	LaneIndex    int
	S, T         float64 // lane_coord: longitudinal / lateral position
	TimeLeft     float64
	AdjTimeLeft  float64
	TTC          float64
	TTRE         float64
	Gap          float64
	AgentGap     *float64 // optional: nearest ego-agent behind, by back-gap
	Feasible     bool      // crossing_time_into feasibility
	CrossingTime float64
}

// TrafficActor is a vehicle whose motion is driven by this engine.
type TrafficActor struct {
	ActorID string
	Flow    *Flow
	VType   VType

	Route    []string
	RouteID  uint64
	RouteInd int

	LaneID string
	Offset float64

	DestLaneID string
	DestOffset float64

	State VehicleState

	SpeedFactor    float64
	MinSpaceCush   float64
	Aggressiveness float64
	CutinProb      float64

	CuttingInto         *LaneWindow
	InFrontAfterCutinSecs float64
	CutinHoldSecs       float64

	NextPose               Pose
	NextSpeed              float64
	NextLinearAcceleration Vec3

	DoneWithRoute bool
	OffRoute      bool
}

// StashNext records the decide-phase outputs to be applied at commit time.
func (a *TrafficActor) StashNext(pose Pose, speed float64, accel Vec3) {
	a.NextPose = pose
	a.NextSpeed = speed
	a.NextLinearAcceleration = accel
}
