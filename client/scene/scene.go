// Package scene builds the static outdoor scene the client renders.
package scene

import (
	"image"
	"image/color"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	GroundSize = 200.0
	spread     = 160.0
	spawnClear = 6.0

	// share of a surface color taken from the reflection map
	reflectivity = 0.15
)

// SkyColor is the clear color used until a backdrop is installed.
var SkyColor = color.RGBA{0x87, 0xce, 0xeb, 0xff}

var Spawn = mgl64.Vec3{0, 1.6, 5}

// Box is an axis aligned box resting on the ground.
type Box struct {
	Center mgl64.Vec3
	Size   mgl64.Vec3
	Color  color.RGBA
}

// Corners returns the eight corners, bottom face first.
func (b Box) Corners() [8]mgl64.Vec3 {
	h := b.Size.Mul(0.5)
	c := b.Center
	return [8]mgl64.Vec3{
		{c[0] - h[0], c[1] - h[1], c[2] - h[2]},
		{c[0] + h[0], c[1] - h[1], c[2] - h[2]},
		{c[0] + h[0], c[1] - h[1], c[2] + h[2]},
		{c[0] - h[0], c[1] - h[1], c[2] + h[2]},
		{c[0] - h[0], c[1] + h[1], c[2] - h[2]},
		{c[0] + h[0], c[1] + h[1], c[2] - h[2]},
		{c[0] + h[0], c[1] + h[1], c[2] + h[2]},
		{c[0] - h[0], c[1] + h[1], c[2] + h[2]},
	}
}

type LightKind int

const (
	Ambient LightKind = iota
	Directional
)

type Light struct {
	Kind      LightKind
	Color     color.RGBA
	Intensity float64
	// Direction the light travels, only for Directional.
	Direction mgl64.Vec3
}

type Scene struct {
	Ground    Box
	Buildings []Box
	Lights    []Light

	// Background and Reflection stay nil until the backdrop arrives.
	Background image.Image
	Reflection image.Image
}

type Config struct {
	Buildings int
	Seed      int64
}

func New(config Config) *Scene {
	rng := rand.New(rand.NewSource(config.Seed))
	s := &Scene{
		Ground: Box{
			Center: mgl64.Vec3{0, 0, 0},
			Size:   mgl64.Vec3{GroundSize, 0, GroundSize},
			Color:  color.RGBA{0x3a, 0x5f, 0x2b, 0xff},
		},
		Lights: []Light{
			{Kind: Ambient, Color: color.RGBA{0xff, 0xff, 0xff, 0xff}, Intensity: 0.4},
			{
				Kind:      Directional,
				Color:     color.RGBA{0xff, 0xf4, 0xe0, 0xff},
				Intensity: 0.8,
				Direction: mgl64.Vec3{-50, -100, -50}.Normalize(),
			},
		},
	}
	for len(s.Buildings) < config.Buildings {
		s.Buildings = append(s.Buildings, randomBuilding(rng))
	}
	return s
}

func randomBuilding(rng *rand.Rand) Box {
	width := 2 + rng.Float64()*6
	depth := 2 + rng.Float64()*6
	height := 4 + rng.Float64()*16
	var x, z float64
	for {
		x = (rng.Float64() - 0.5) * spread
		z = (rng.Float64() - 0.5) * spread
		if mgl64.Abs(x-Spawn[0]) > spawnClear+width/2 || mgl64.Abs(z-Spawn[2]) > spawnClear+depth/2 {
			break
		}
	}
	gray := uint8(0x60 + rng.Intn(0x60))
	return Box{
		Center: mgl64.Vec3{x, height / 2, z},
		Size:   mgl64.Vec3{width, height, depth},
		Color:  color.RGBA{gray, gray, gray, 0xff},
	}
}

// SetBackdrop installs the environment images. It is called at most once.
func (s *Scene) SetBackdrop(background, reflection image.Image) {
	s.Background = background
	s.Reflection = reflection
}

// Shade lights base for a surface facing normal.
func (s *Scene) Shade(base color.RGBA, normal mgl64.Vec3) color.RGBA {
	var k float64
	for _, l := range s.Lights {
		switch l.Kind {
		case Ambient:
			k += l.Intensity
		case Directional:
			if d := normal.Dot(l.Direction.Mul(-1)); d > 0 {
				k += l.Intensity * d
			}
		}
	}
	env, tinted := s.Environment(normal)
	scale := func(v, e uint8) uint8 {
		f := float64(v) * k
		if tinted {
			f = f*(1-reflectivity) + float64(e)*reflectivity
		}
		if f > 255 {
			return 255
		}
		return uint8(f)
	}
	return color.RGBA{scale(base.R, env.R), scale(base.G, env.G), scale(base.B, env.B), base.A}
}

// Environment samples the reflection map in direction dir. It reports false
// until a backdrop is installed.
func (s *Scene) Environment(dir mgl64.Vec3) (color.RGBA, bool) {
	if s.Reflection == nil || dir.Len() == 0 {
		return color.RGBA{}, false
	}
	d := dir.Normalize()
	b := s.Reflection.Bounds()
	u := 0.5 + math.Atan2(d[0], -d[2])/(2*math.Pi)
	v := 0.5 - math.Asin(mgl64.Clamp(d[1], -1, 1))/math.Pi
	x := b.Min.X + clampInt(int(u*float64(b.Dx())), 0, b.Dx()-1)
	y := b.Min.Y + clampInt(int(v*float64(b.Dy())), 0, b.Dy()-1)
	return color.RGBAModel.Convert(s.Reflection.At(x, y)).(color.RGBA), true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
