package model

import "math"

// Role classifies who is driving a vehicle in the host simulation.
type Role int

const (
	RoleUnknown Role = iota
	RoleSocial
	RoleEgoAgent
)

func (r Role) String() string {
	switch r {
	case RoleSocial:
		return "social"
	case RoleEgoAgent:
		return "ego_agent"
	default:
		return "unknown"
	}
}

// Point is a 2D point or vector.
type Point struct {
	X, Y float64
}

// Pose is a 2D position plus heading, in radians.
type Pose struct {
	Point
	Heading float64
}

// Vec3 is a 3-component vector, used for linear acceleration.
type Vec3 struct {
	X, Y, Z float64
}

// Norm returns the Euclidean magnitude of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Dimensions describes a vehicle's oriented bounding box extents.
type Dimensions struct {
	Length, Width, Height float64
}

// vClassDimensions holds the default bounding box for each known vClass,
// mirroring typical vehicle-config presets. passenger is the fallback for
// an unrecognized or empty vClass.
var vClassDimensions = map[string]Dimensions{
	"passenger":  {Length: 4.5, Width: 1.8, Height: 1.5},
	"truck":      {Length: 9.0, Width: 2.5, Height: 3.5},
	"trailer":    {Length: 14.0, Width: 2.5, Height: 4.0},
	"bus":        {Length: 12.0, Width: 2.6, Height: 3.0},
	"coach":      {Length: 12.0, Width: 2.6, Height: 3.0},
	"motorcycle": {Length: 2.2, Width: 0.9, Height: 1.3},
}

// DimensionsForVClass returns the bounding box for a vClass, falling back to
// the passenger preset for anything not in the table.
func DimensionsForVClass(vClass string) Dimensions {
	if d, ok := vClassDimensions[vClass]; ok {
		return d
	}
	return vClassDimensions["passenger"]
}

// VehicleState is the boundary object exchanged between the core and its
// host: every vehicle the provider knows about, managed or foreign, is
// represented this way once committed.
type VehicleState struct {
	VehicleID          string
	Pose               Pose
	Speed              float64 // m/s, non-negative
	LinearAcceleration *Vec3   // optional; absent treated as zero
	Dimensions         Dimensions
	Role               Role
	VehicleType        string
	Source             string // identifies which provider owns this vehicle
}

// LinearAccelerationOrZero returns the vehicle's linear acceleration, or the
// zero vector if it is not present.
func (v VehicleState) LinearAccelerationOrZero() Vec3 {
	if v.LinearAcceleration == nil {
		return Vec3{}
	}
	return *v.LinearAcceleration
}
