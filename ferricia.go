package ferricia

import "math"

// Version is the engine core version, checked against asset pack
// manifests at load time.
const Version = "0.4.0"

// Subsystem identifies one engine subsystem. The zero value is invalid
// so an uninitialized tag never aliases a real subsystem.
type Subsystem uint8

const (
	SubsystemPhysics Subsystem = iota + 1
	SubsystemAudio
	SubsystemCompute
	SubsystemRender
)

func (s Subsystem) String() string {
	switch s {
	case SubsystemPhysics:
		return "physics"
	case SubsystemAudio:
		return "audio"
	case SubsystemCompute:
		return "compute"
	case SubsystemRender:
		return "render"
	}
	return "unknown"
}

// Valid reports whether s names a real subsystem.
func (s Subsystem) Valid() bool {
	return s >= SubsystemPhysics && s <= SubsystemRender
}

// TickOrder is the fixed order in which the engine loop applies
// commands and steps subsystems within one tick. Render comes last so
// it observes physics transforms updated in the same tick.
var TickOrder = [...]Subsystem{
	SubsystemPhysics,
	SubsystemAudio,
	SubsystemCompute,
	SubsystemRender,
}

// Vec3 is a three-component vector. Values cross the host boundary by
// copy, so the fields stay exported and plain.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Scale(f float64) Vec3 { return Vec3{v.X * f, v.Y * f, v.Z * f} }

func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) LengthSq() float64 { return v.Dot(v) }

func (v Vec3) Length() float64 { return math.Sqrt(v.LengthSq()) }

// Normalize returns the unit vector, or the zero vector when v has no
// length.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Transform is a body pose: position plus Euler rotation in radians.
type Transform struct {
	Position Vec3
	Rotation Vec3
}
