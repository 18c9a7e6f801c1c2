// Package camera holds the local player's first person viewpoint.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const PitchLimit = math.Pi / 2

var (
	up    = mgl64.Vec3{0, 1, 0}
	right = mgl64.Vec3{1, 0, 0}
)

type Camera struct {
	Position mgl64.Vec3
	Yaw      float64
	Pitch    float64

	// Orientation is Ry(Yaw) * Rx(Pitch). Always derived, never set directly.
	Orientation mgl64.Quat

	FovY   float64 // degrees
	Aspect float64
	Near   float64
	Far    float64
}

func New(aspect float64) *Camera {
	c := &Camera{
		Position: mgl64.Vec3{0, 1.6, 5},
		FovY:     75,
		Aspect:   aspect,
		Near:     0.1,
		Far:      1000,
	}
	c.updateOrientation()
	return c
}

// Look applies one raw pointer sample and recomputes the orientation.
func (c *Camera) Look(dx, dy, sensitivity float64) {
	c.Yaw -= dx * sensitivity
	c.Pitch = mgl64.Clamp(c.Pitch-dy*sensitivity, -PitchLimit, PitchLimit)
	c.updateOrientation()
}

func (c *Camera) updateOrientation() {
	yaw := mgl64.QuatRotate(c.Yaw, up)
	pitch := mgl64.QuatRotate(c.Pitch, right)
	c.Orientation = yaw.Mul(pitch).Normalize()
}

// Translate rotates a local space displacement into world space, drops its
// vertical component and adds it to the position.
func (c *Camera) Translate(local mgl64.Vec3) {
	if local.ApproxEqual(mgl64.Vec3{}) {
		return
	}
	world := c.Orientation.Rotate(local)
	world[1] = 0
	c.Position = c.Position.Add(world)
}

func (c *Camera) Forward() mgl64.Vec3 {
	return c.Orientation.Rotate(mgl64.Vec3{0, 0, -1})
}

func (c *Camera) SetAspect(aspect float64) {
	if aspect <= 0 || math.IsInf(aspect, 0) || math.IsNaN(aspect) {
		return
	}
	c.Aspect = aspect
}

// View is the world to camera transform.
func (c *Camera) View() mgl64.Mat4 {
	p := c.Position
	return c.Orientation.Inverse().Mat4().Mul4(mgl64.Translate3D(-p[0], -p[1], -p[2]))
}

func (c *Camera) Projection() mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(c.FovY), c.Aspect, c.Near, c.Far)
}

// Euler returns the orientation as (pitch, yaw, 0), the shape peers expect.
func (c *Camera) Euler() mgl64.Vec3 {
	return mgl64.Vec3{c.Pitch, c.Yaw, 0}
}
