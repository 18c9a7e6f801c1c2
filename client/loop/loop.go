// Package loop drives the client's per frame cycle.
//
// Everything that mutates client state (frame ticks, input events, backdrop
// completion) is handled on the goroutine running Run, one event at a time.
package loop

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/caolo-game/frontline/client/backdrop"
	"github.com/caolo-game/frontline/client/camera"
	"github.com/caolo-game/frontline/client/input"
	"github.com/caolo-game/frontline/client/scene"
	"github.com/caolo-game/frontline/rt/protocol"
)

type Renderer interface {
	Render(s *scene.Scene, c *camera.Camera)
	Resize(width, height int)
	WritePNG(w io.Writer) error
}

// Reporter forwards pose changes to the relay. ReportMove must not block.
type Reporter interface {
	ReportMove(pl protocol.MovePayload) bool
}

type Config struct {
	FPS         int
	Speed       float64 // units per second
	Sensitivity float64 // radians per pixel
	LogFPS      bool
}

func DefaultConfig() Config {
	return Config{FPS: 60, Speed: 5.0, Sensitivity: 0.002}
}

type Loop struct {
	config   Config
	camera   *camera.Camera
	scene    *scene.Scene
	input    *input.State
	renderer Renderer
	reporter Reporter

	last     time.Time
	started  bool
	fps      fpsCounter
	reported protocol.MovePayload
	pending  bool
}

func New(config Config, s *scene.Scene, c *camera.Camera, r Renderer) *Loop {
	return &Loop{
		config:   config,
		camera:   c,
		scene:    s,
		input:    input.NewState(),
		renderer: r,
		pending:  true,
	}
}

func (l *Loop) SetReporter(r Reporter) { l.reporter = r }

func (l *Loop) Camera() *camera.Camera { return l.camera }
func (l *Loop) Input() *input.State    { return l.input }

// FPS is the frame count of the last complete one second window.
func (l *Loop) FPS() int { return l.fps.fps }

// Frame runs one cycle: delta time, fps window, movement, render, report.
func (l *Loop) Frame(now time.Time) {
	var dt time.Duration
	if l.started {
		dt = now.Sub(l.last)
	}
	l.started = true
	l.last = now

	if l.fps.tick(dt) && l.config.LogFPS {
		log.Printf("%d fps", l.fps.fps)
	}
	l.Advance(dt.Seconds())
	l.renderer.Render(l.scene, l.camera)
	l.report()
}

// Advance moves the camera along the held keys for dt seconds.
func (l *Loop) Advance(dt float64) {
	dir := l.input.Direction()
	if dt <= 0 || dir.Len() == 0 {
		return
	}
	l.camera.Translate(dir.Mul(l.config.Speed * dt))
}

func (l *Loop) pose() protocol.MovePayload {
	p := l.camera.Position
	r := l.camera.Euler()
	return protocol.MovePayload{
		Position: protocol.Vec3{X: p[0], Y: p[1], Z: p[2]},
		Rotation: protocol.Vec3{X: r[0], Y: r[1], Z: r[2]},
	}
}

func (l *Loop) report() {
	if l.reporter == nil {
		return
	}
	pose := l.pose()
	if !l.pending && pose == l.reported {
		return
	}
	if l.reporter.ReportMove(pose) {
		l.reported = pose
		l.pending = false
	}
}

// Handle applies one input event immediately.
func (l *Loop) Handle(ev input.Event) {
	switch ev := ev.(type) {
	case input.KeyDown:
		l.input.Press(ev.Key)
	case input.KeyUp:
		l.input.Release(ev.Key)
	case input.Capture:
		l.input.SetCaptured(ev.On)
	case input.PointerMove:
		if l.input.Captured() {
			l.camera.Look(ev.DX, ev.DY, l.config.Sensitivity)
		}
	case input.Resize:
		if ev.Width <= 0 || ev.Height <= 0 {
			return
		}
		l.camera.SetAspect(float64(ev.Width) / float64(ev.Height))
		l.renderer.Resize(ev.Width, ev.Height)
	case input.Snapshot:
		if err := l.snapshot(ev.Path); err != nil {
			log.Printf("Snapshot failed: %v", err)
		}
	}
}

func (l *Loop) snapshot(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := l.renderer.WritePNG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (l *Loop) InstallBackdrop(res backdrop.Result) {
	l.scene.SetBackdrop(res.Background, res.Reflection)
	if res.Fallback {
		log.Println("Installed gradient backdrop")
	} else {
		log.Println("Installed environment backdrop")
	}
}

// Run ticks frames until ctx is done or events is closed. A frame is only
// scheduled after the previous one returned; late ticks are dropped.
func (l *Loop) Run(ctx context.Context, events <-chan input.Event, backdrops <-chan backdrop.Result) error {
	fps := l.config.FPS
	if fps <= 0 {
		fps = DefaultConfig().FPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			l.Handle(ev)
		case res, ok := <-backdrops:
			// single shot
			backdrops = nil
			if ok {
				l.InstallBackdrop(res)
			}
		case now := <-ticker.C:
			l.Frame(now)
		}
	}
}

type fpsCounter struct {
	frames  int
	elapsed time.Duration
	fps     int
}

// tick counts one frame and reports whether a one second window closed.
func (f *fpsCounter) tick(dt time.Duration) bool {
	f.frames++
	f.elapsed += dt
	if f.elapsed < time.Second {
		return false
	}
	f.fps = f.frames
	f.frames = 0
	f.elapsed = 0
	return true
}
