package physics

import (
	"time"

	"github.com/terramodulus/ferricia"
)

// Sleep thresholds: a body whose motion stays below the linear
// tolerance for the sleep time stops integrating until something wakes
// it.
const (
	sleepLinearTolerance = 0.01
	sleepTime            = 500 * time.Millisecond
)

// BodyParams is the OpCreate payload for a rigid body.
type BodyParams struct {
	Position ferricia.Vec3
	Velocity ferricia.Vec3

	// Mass in kilograms. Zero or negative means static.
	Mass float64

	// Radius of the body's bounding sphere.
	Radius float64

	// Restitution is the bounciness in [0,1]. Defaults to 0.5.
	Restitution float64

	// Damping multiplies velocity each integration step. Defaults to
	// 0.999.
	Damping float64

	// GravityScale scales the world gravity for this body. Defaults
	// to 1.
	GravityScale float64
}

// Prop selects a body property for OpSetProp.
type Prop uint8

const (
	PropPosition Prop = iota + 1
	PropVelocity
	PropGravityScale
)

// SetProp is the OpSetProp payload.
type SetProp struct {
	Vec    ferricia.Vec3
	Scalar float64
	Prop   Prop
}

// Impulse is the OpInvoke payload: an instantaneous momentum change.
type Impulse struct {
	Linear ferricia.Vec3
}

type body struct {
	transform    ferricia.Transform
	velocity     ferricia.Vec3
	invMass      float64
	radius       float64
	restitution  float64
	damping      float64
	gravityScale float64
	sleepFor     time.Duration
	sleeping     bool
	static       bool
}

func newBody(p BodyParams) *body {
	b := &body{
		transform:    ferricia.Transform{Position: p.Position},
		velocity:     p.Velocity,
		radius:       p.Radius,
		restitution:  p.Restitution,
		damping:      p.Damping,
		gravityScale: p.GravityScale,
	}
	if p.Mass <= 0 {
		b.static = true
	} else {
		b.invMass = 1 / p.Mass
	}
	if b.radius <= 0 {
		b.radius = 0.5
	}
	if b.restitution == 0 {
		b.restitution = 0.5
	}
	if b.damping == 0 {
		b.damping = 0.999
	}
	if b.gravityScale == 0 {
		b.gravityScale = 1
	}
	return b
}

// integrate advances the body by dt using semi-implicit Euler: velocity
// first, then position from the new velocity.
func (b *body) integrate(dt time.Duration, gravity ferricia.Vec3) {
	if b.static || b.sleeping {
		return
	}
	s := dt.Seconds()
	b.velocity = b.velocity.Add(gravity.Scale(b.gravityScale * s)).Scale(b.damping)
	b.transform.Position = b.transform.Position.Add(b.velocity.Scale(s))
	b.updateSleep(dt)
}

func (b *body) updateSleep(dt time.Duration) {
	if b.velocity.LengthSq() < sleepLinearTolerance*sleepLinearTolerance {
		b.sleepFor += dt
		if b.sleepFor >= sleepTime {
			b.sleeping = true
			b.velocity = ferricia.Vec3{}
		}
		return
	}
	b.sleepFor = 0
}

// wake clears the sleep state; called whenever the host mutates the
// body.
func (b *body) wake() {
	b.sleeping = false
	b.sleepFor = 0
}
