// Package backdrop loads the environment image behind the scene.
//
// Loading happens once, off the render goroutine. The caller receives exactly
// one Result: either the decoded image with its reflection map, or a generated
// sky gradient when the image could not be used.
package backdrop

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	reflectionWidth  = 64
	reflectionHeight = 32
	gradientHeight   = 256
)

var (
	zenith  = color.RGBA{0x3b, 0x7d, 0xd8, 0xff}
	horizon = color.RGBA{0xf0, 0xf4, 0xf8, 0xff}
)

type Result struct {
	Background image.Image
	Reflection image.Image
	// Fallback is set when the gradient replaced the image; Err says why.
	Fallback bool
	Err      error
}

// Load starts reading the equirectangular image at path. The returned
// channel yields one Result and is then closed.
func Load(ctx context.Context, path string) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		res := load(path)
		if res.Err != nil {
			log.Printf("Environment image unavailable, using gradient: %v", res.Err)
		}
		select {
		case out <- res:
		case <-ctx.Done():
		}
	}()
	return out
}

func load(path string) Result {
	img, err := decode(path)
	if err != nil {
		g := Gradient()
		return Result{Background: g, Reflection: Reflection(g), Fallback: true, Err: err}
	}
	return Result{Background: img, Reflection: Reflection(img)}
}

func decode(path string) (image.Image, error) {
	if path == "" {
		return nil, fmt.Errorf("no environment image configured")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("decode %s: empty image", path)
	}
	return img, nil
}

// Reflection downsamples src into the small map used for reflections.
func Reflection(src image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, reflectionWidth, reflectionHeight))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// Gradient is the procedural sky: zenith color at the top row fading to the
// horizon color at the bottom.
func Gradient() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, gradientHeight))
	for y := 0; y < gradientHeight; y++ {
		c := lerp(zenith, horizon, float64(y)/float64(gradientHeight-1))
		img.SetRGBA(0, y, c)
		img.SetRGBA(1, y, c)
	}
	return img
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5)
	}
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 0xff}
}
