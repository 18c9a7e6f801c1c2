// Package render draws a scene from a camera into an RGBA frame.
//
// The renderer is a software wireframe rasterizer: the sky is sampled from
// the equirectangular backdrop, the ground is a grid and buildings are box
// outlines shaded by the scene lights.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/caolo-game/frontline/client/camera"
	"github.com/caolo-game/frontline/client/scene"
	"github.com/go-gl/mathgl/mgl64"
)

const gridStep = 10.0

var boxEdges = [12][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0},
	{4, 5}, {5, 6}, {6, 7}, {7, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

var up = mgl64.Vec3{0, 1, 0}

type Raster struct {
	frame *image.RGBA

	// per frame
	view, proj mgl64.Mat4
	near       float64
}

func NewRaster(width, height int) *Raster {
	r := &Raster{}
	r.Resize(width, height)
	return r
}

// Resize reallocates the output surface. Non positive sizes are ignored.
func (r *Raster) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.frame = image.NewRGBA(image.Rect(0, 0, width, height))
}

func (r *Raster) Frame() *image.RGBA { return r.frame }

func (r *Raster) WritePNG(w io.Writer) error {
	return png.Encode(w, r.frame)
}

func (r *Raster) Render(s *scene.Scene, c *camera.Camera) {
	r.view = c.View()
	r.proj = c.Projection()
	r.near = c.Near

	if s.Background == nil {
		draw.Draw(r.frame, r.frame.Bounds(), &image.Uniform{scene.SkyColor}, image.Point{}, draw.Src)
	} else {
		r.sky(s.Background, c)
	}

	if g := s.Ground; g.Size[0] > 0 {
		col := s.Shade(g.Color, up)
		half := g.Size[0] / 2
		for v := -half; v <= half; v += gridStep {
			r.line(mgl64.Vec3{v, 0, -half}, mgl64.Vec3{v, 0, half}, col)
			r.line(mgl64.Vec3{-half, 0, v}, mgl64.Vec3{half, 0, v}, col)
		}
	}

	for _, b := range s.Buildings {
		corners := b.Corners()
		for _, e := range boxEdges {
			col := s.Shade(b.Color, edgeNormal(b, corners, e))
			r.line(corners[e[0]], corners[e[1]], col)
		}
	}
}

// edgeNormal averages the normals of the faces meeting at edge e. The bottom
// face rests on the ground and never counts.
func edgeNormal(b scene.Box, corners [8]mgl64.Vec3, e [2]int) mgl64.Vec3 {
	mid := corners[e[0]].Add(corners[e[1]]).Mul(0.5).Sub(b.Center)
	var n mgl64.Vec3
	for i := range n {
		if h := b.Size[i] / 2; h > 0 {
			n[i] = math.Round(mid[i] / h)
		}
	}
	if n[1] < 0 {
		n[1] = 0
	}
	if n.Len() == 0 {
		return up
	}
	return n.Normalize()
}

// sky fills the frame by casting a ray through every pixel into the
// equirectangular backdrop.
func (r *Raster) sky(bg image.Image, c *camera.Camera) {
	b := r.frame.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	tanY := math.Tan(mgl64.DegToRad(c.FovY) / 2)
	tanX := tanY * c.Aspect
	src := bg.Bounds()
	sw, sh := float64(src.Dx()), float64(src.Dy())

	for py := 0; py < b.Dy(); py++ {
		ndcY := 1 - 2*(float64(py)+0.5)/h
		for px := 0; px < b.Dx(); px++ {
			ndcX := 2*(float64(px)+0.5)/w - 1
			d := c.Orientation.Rotate(mgl64.Vec3{ndcX * tanX, ndcY * tanY, -1}).Normalize()
			u := 0.5 + math.Atan2(d[0], -d[2])/(2*math.Pi)
			v := 0.5 - math.Asin(mgl64.Clamp(d[1], -1, 1))/math.Pi
			sx := src.Min.X + clampInt(int(u*sw), 0, src.Dx()-1)
			sy := src.Min.Y + clampInt(int(v*sh), 0, src.Dy()-1)
			r.frame.Set(px, py, bg.At(sx, sy))
		}
	}
}

// line draws the world space segment a-b, clipped to the near plane and the
// viewport.
func (r *Raster) line(a, b mgl64.Vec3, col color.RGBA) {
	va := r.view.Mul4x1(a.Vec4(1))
	vb := r.view.Mul4x1(b.Vec4(1))
	zLimit := -r.near
	if va[2] > zLimit && vb[2] > zLimit {
		return
	}
	if va[2] > zLimit {
		va = clipNear(vb, va, zLimit)
	} else if vb[2] > zLimit {
		vb = clipNear(va, vb, zLimit)
	}
	x0, y0 := r.toScreen(va)
	x1, y1 := r.toScreen(vb)
	bounds := r.frame.Bounds()
	x0, y0, x1, y1, ok := clipViewport(x0, y0, x1, y1, float64(bounds.Dx()-1), float64(bounds.Dy()-1))
	if !ok {
		return
	}
	r.bresenham(int(math.Round(x0)), int(math.Round(y0)), int(math.Round(x1)), int(math.Round(y1)), col)
}

// clipNear moves out, which lies in front of the near plane, onto it along
// the segment from in.
func clipNear(in, out mgl64.Vec4, zLimit float64) mgl64.Vec4 {
	t := (zLimit - in[2]) / (out[2] - in[2])
	return in.Add(out.Sub(in).Mul(t))
}

func (r *Raster) toScreen(v mgl64.Vec4) (float64, float64) {
	clip := r.proj.Mul4x1(v)
	ndc := clip.Vec3().Mul(1 / clip[3])
	b := r.frame.Bounds()
	return (ndc[0] + 1) / 2 * float64(b.Dx()), (1 - ndc[1]) / 2 * float64(b.Dy())
}

// clipViewport is Liang-Barsky against [0,maxX]x[0,maxY].
func clipViewport(x0, y0, x1, y1, maxX, maxY float64) (float64, float64, float64, float64, bool) {
	dx, dy := x1-x0, y1-y0
	t0, t1 := 0.0, 1.0
	p := [4]float64{-dx, dx, -dy, dy}
	q := [4]float64{x0, maxX - x0, y0, maxY - y0}
	for i := range p {
		if p[i] == 0 {
			if q[i] < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		t := q[i] / p[i]
		if p[i] < 0 {
			if t > t1 {
				return 0, 0, 0, 0, false
			}
			if t > t0 {
				t0 = t
			}
		} else {
			if t < t0 {
				return 0, 0, 0, 0, false
			}
			if t < t1 {
				t1 = t
			}
		}
	}
	return x0 + t0*dx, y0 + t0*dy, x0 + t1*dx, y0 + t1*dy, true
}

func (r *Raster) bresenham(x0, y0, x1, y1 int, col color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		r.frame.SetRGBA(x0, y0, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
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
