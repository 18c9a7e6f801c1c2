package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/caolo-game/frontline/client/backdrop"
	"github.com/caolo-game/frontline/client/camera"
	"github.com/caolo-game/frontline/client/scene"
	"github.com/go-gl/mathgl/mgl64"
)

func countNot(img *image.RGBA, c color.RGBA) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y) != c {
				n++
			}
		}
	}
	return n
}

func oneBox(center mgl64.Vec3) *scene.Scene {
	return &scene.Scene{
		Buildings: []scene.Box{{
			Center: center,
			Size:   mgl64.Vec3{2, 2, 2},
			Color:  color.RGBA{200, 0, 0, 255},
		}},
		Lights: []scene.Light{{Kind: scene.Ambient, Intensity: 1}},
	}
}

func TestFlatClearBeforeBackdrop(t *testing.T) {
	r := NewRaster(64, 48)
	r.Render(&scene.Scene{}, camera.New(64.0/48.0))

	if n := countNot(r.Frame(), scene.SkyColor); n != 0 {
		t.Errorf("Expected a flat sky, %d pixels differ", n)
	}
}

func TestBoxAheadIsDrawn(t *testing.T) {
	r := NewRaster(64, 48)
	c := camera.New(64.0 / 48.0)
	r.Render(oneBox(mgl64.Vec3{0, 1.6, -5}), c)

	if countNot(r.Frame(), scene.SkyColor) == 0 {
		t.Error("Expected the box outline in the frame")
	}
	if got := r.Frame().RGBAAt(0, 0); got != scene.SkyColor {
		t.Errorf("Corner should stay sky, got %v", got)
	}
}

func TestBoxBehindIsNotDrawn(t *testing.T) {
	r := NewRaster(64, 48)
	r.Render(oneBox(mgl64.Vec3{0, 1.6, 20}), camera.New(64.0/48.0))

	if n := countNot(r.Frame(), scene.SkyColor); n != 0 {
		t.Errorf("Box behind the camera leaked %d pixels", n)
	}
}

func TestGroundCrossingNearPlaneIsClipped(t *testing.T) {
	r := NewRaster(64, 48)
	s := scene.New(scene.Config{})
	r.Render(s, camera.New(64.0/48.0))

	if countNot(r.Frame(), scene.SkyColor) == 0 {
		t.Error("Expected ground grid lines")
	}
}

func TestBackdropSky(t *testing.T) {
	r := NewRaster(32, 32)
	s := &scene.Scene{}
	g := backdrop.Gradient()
	s.SetBackdrop(g, backdrop.Reflection(g))
	c := camera.New(1)
	r.Render(s, c)

	top := r.Frame().RGBAAt(16, 0)
	bottom := r.Frame().RGBAAt(16, 31)
	if top == bottom {
		t.Errorf("Expected the gradient across the view, got %v top and bottom", top)
	}
	if top.R >= bottom.R {
		t.Errorf("Top of view should lean toward the zenith color, got %v vs %v", top, bottom)
	}
}

func TestResize(t *testing.T) {
	r := NewRaster(64, 48)
	r.Resize(0, 10)
	if r.Frame().Bounds().Dx() != 64 {
		t.Error("Invalid resize applied")
	}
	r.Resize(100, 50)
	if b := r.Frame().Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("Unexpected bounds %v", b)
	}
}

func TestWritePNG(t *testing.T) {
	r := NewRaster(8, 8)
	r.Render(&scene.Scene{}, camera.New(1))

	var buf bytes.Buffer
	if err := r.WritePNG(&buf); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 8 {
		t.Errorf("Unexpected bounds %v", img.Bounds())
	}
}

func TestClipViewport(t *testing.T) {
	if _, _, _, _, ok := clipViewport(-10, -10, -5, -1, 9, 9); ok {
		t.Error("Segment outside the viewport was kept")
	}
	x0, y0, x1, y1, ok := clipViewport(-10, 5, 20, 5, 9, 9)
	near := func(a, b float64) bool { return mgl64.FloatEqualThreshold(a, b, 1e-9) }
	if !ok || !near(x0, 0) || !near(x1, 9) || y0 != 5 || y1 != 5 {
		t.Errorf("Unexpected clip %v %v %v %v %v", x0, y0, x1, y1, ok)
	}
}

func TestEdgeShadingFollowsLight(t *testing.T) {
	s := scene.New(scene.Config{})
	b := scene.Box{Center: mgl64.Vec3{0, 1, 0}, Size: mgl64.Vec3{2, 2, 2}, Color: color.RGBA{100, 100, 100, 255}}
	corners := b.Corners()

	lit := edgeNormal(b, corners, boxEdges[10])
	shadowed := edgeNormal(b, corners, boxEdges[8])
	if !lit.ApproxEqual(mgl64.Vec3{1, 0, 1}.Normalize()) || !shadowed.ApproxEqual(mgl64.Vec3{-1, 0, -1}.Normalize()) {
		t.Fatalf("Unexpected normals %v %v", lit, shadowed)
	}
	if n := edgeNormal(b, corners, boxEdges[0]); !n.ApproxEqual(mgl64.Vec3{0, 0, -1}) {
		t.Errorf("Bottom edge should face sideways, got %v", n)
	}
	if a, c := s.Shade(b.Color, lit), s.Shade(b.Color, shadowed); a.R <= c.R {
		t.Errorf("Expected the sunlit edge brighter, got %v vs %v", a, c)
	}
}
