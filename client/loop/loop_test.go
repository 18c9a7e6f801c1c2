package loop

import (
	"context"
	"image"
	"io"
	"math"
	"testing"
	"time"

	"github.com/caolo-game/frontline/client/backdrop"
	"github.com/caolo-game/frontline/client/camera"
	"github.com/caolo-game/frontline/client/input"
	"github.com/caolo-game/frontline/client/scene"
	"github.com/caolo-game/frontline/rt/protocol"
	"github.com/go-gl/mathgl/mgl64"
)

type fakeRenderer struct {
	renders       int
	width, height int
}

func (f *fakeRenderer) Render(*scene.Scene, *camera.Camera) { f.renders++ }
func (f *fakeRenderer) Resize(w, h int)                     { f.width, f.height = w, h }
func (f *fakeRenderer) WritePNG(io.Writer) error            { return nil }

type fakeReporter struct {
	moves []protocol.MovePayload
}

func (f *fakeReporter) ReportMove(pl protocol.MovePayload) bool {
	f.moves = append(f.moves, pl)
	return true
}

func newLoop() (*Loop, *fakeRenderer) {
	r := &fakeRenderer{}
	return New(DefaultConfig(), scene.New(scene.Config{Buildings: 3}), camera.New(16.0/9.0), r), r
}

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFirstFrameDoesNotMove(t *testing.T) {
	l, r := newLoop()
	start := l.Camera().Position
	l.Handle(input.KeyDown{Key: input.KeyW})

	l.Frame(t0)

	if l.Camera().Position != start {
		t.Errorf("First frame moved the camera to %v", l.Camera().Position)
	}
	if r.renders != 1 {
		t.Errorf("Expected one render, got %d", r.renders)
	}
}

func TestForwardForOneSecondMovesSpeedUnits(t *testing.T) {
	l, _ := newLoop()
	start := l.Camera().Position
	l.Handle(input.KeyDown{Key: input.KeyW})

	l.Frame(t0)
	l.Frame(t0.Add(time.Second))

	moved := l.Camera().Position.Sub(start)
	if moved[1] != 0 {
		t.Errorf("Vertical displacement %v", moved[1])
	}
	want := mgl64.Vec3{0, 0, -5}
	if !moved.ApproxEqualThreshold(want, 1e-9) {
		t.Errorf("Expected %v, got %v", want, moved)
	}
}

func TestForwardFollowsYawAndIgnoresPitch(t *testing.T) {
	l, _ := newLoop()
	l.Handle(input.Capture{On: true})
	// quarter turn left, then look up
	l.Handle(input.PointerMove{DX: -math.Pi / 2 / 0.002, DY: -200})
	start := l.Camera().Position
	l.Handle(input.KeyDown{Key: input.KeyW})

	l.Advance(1)

	moved := l.Camera().Position.Sub(start)
	if moved[1] != 0 {
		t.Errorf("Vertical displacement %v", moved[1])
	}
	if moved[0] >= 0 || math.Abs(moved[2]) > 1e-9 {
		t.Errorf("Expected movement along -X, got %v", moved)
	}
}

func TestNoKeysNoMovement(t *testing.T) {
	l, _ := newLoop()
	start := l.Camera().Position

	l.Frame(t0)
	l.Frame(t0.Add(500 * time.Millisecond))

	if l.Camera().Position != start {
		t.Errorf("Camera drifted to %v", l.Camera().Position)
	}
}

func TestReleasedKeyStops(t *testing.T) {
	l, _ := newLoop()
	l.Handle(input.KeyDown{Key: input.KeyD})
	l.Advance(0.5)
	l.Handle(input.KeyUp{Key: input.KeyD})
	pos := l.Camera().Position

	l.Advance(0.5)

	if l.Camera().Position != pos {
		t.Error("Camera kept moving after release")
	}
	if math.Abs(pos[0]-2.5) > 1e-9 {
		t.Errorf("Expected strafe of 2.5, got %v", pos[0])
	}
}

func TestPointerIgnoredWithoutCapture(t *testing.T) {
	l, _ := newLoop()
	l.Handle(input.PointerMove{DX: 100, DY: 100})
	if l.Camera().Yaw != 0 || l.Camera().Pitch != 0 {
		t.Error("Uncaptured pointer turned the camera")
	}

	l.Handle(input.Capture{On: true})
	l.Handle(input.PointerMove{DX: 0, DY: -1e6})
	if l.Camera().Pitch != camera.PitchLimit {
		t.Errorf("Expected pitch at the limit, got %v", l.Camera().Pitch)
	}

	l.Handle(input.Capture{On: false})
	l.Handle(input.PointerMove{DX: 50, DY: 0})
	if l.Camera().Yaw != 0 {
		t.Error("Pointer applied after release")
	}
}

func TestResize(t *testing.T) {
	l, r := newLoop()
	l.Handle(input.Resize{Width: 800, Height: 400})

	if l.Camera().Aspect != 2 {
		t.Errorf("Expected aspect 2, got %v", l.Camera().Aspect)
	}
	if r.width != 800 || r.height != 400 {
		t.Errorf("Renderer not resized: %dx%d", r.width, r.height)
	}

	l.Handle(input.Resize{Width: 0, Height: 400})
	if l.Camera().Aspect != 2 || r.width != 800 {
		t.Error("Invalid resize applied")
	}
}

func TestFpsWindow(t *testing.T) {
	var f fpsCounter
	f.tick(0)
	for i := 0; i < 19; i++ {
		if f.tick(50 * time.Millisecond) {
			t.Fatalf("Window closed early at frame %d", i)
		}
	}
	if !f.tick(50 * time.Millisecond) {
		t.Fatal("Expected the window to close after one second")
	}
	if f.fps != 21 {
		t.Errorf("Expected 21 fps, got %d", f.fps)
	}
	if f.frames != 0 || f.elapsed != 0 {
		t.Error("Counter not reset")
	}
}

func TestReportsOnlyChanges(t *testing.T) {
	l, _ := newLoop()
	rep := &fakeReporter{}
	l.SetReporter(rep)

	l.Frame(t0)
	l.Frame(t0.Add(16 * time.Millisecond))
	if len(rep.moves) != 1 {
		t.Fatalf("Expected the initial pose only, got %d reports", len(rep.moves))
	}

	l.Handle(input.KeyDown{Key: input.KeyW})
	l.Frame(t0.Add(32 * time.Millisecond))
	if len(rep.moves) != 2 {
		t.Fatalf("Expected a report after moving, got %d", len(rep.moves))
	}
	last := rep.moves[1]
	if last.Position.Z >= rep.moves[0].Position.Z {
		t.Errorf("Report does not reflect movement: %+v", last)
	}
}

// skyWatcher signals once a frame is rendered with a backdrop installed.
type skyWatcher struct {
	fakeRenderer
	seen chan struct{}
}

func (s *skyWatcher) Render(sc *scene.Scene, c *camera.Camera) {
	if sc.Background != nil {
		select {
		case s.seen <- struct{}{}:
		default:
		}
	}
}

func TestRunInstallsBackdropAndStopsAtEndOfInput(t *testing.T) {
	r := &skyWatcher{seen: make(chan struct{}, 1)}
	l := New(DefaultConfig(), scene.New(scene.Config{}), camera.New(1), r)
	events := make(chan input.Event)
	backdrops := make(chan backdrop.Result, 1)
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	backdrops <- backdrop.Result{Background: img, Reflection: img}
	close(backdrops)

	done := make(chan error)
	go func() { done <- l.Run(context.Background(), events, backdrops) }()

	events <- input.KeyDown{Key: input.KeyA}
	select {
	case <-r.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("Backdrop never rendered")
	}
	close(events)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Unexpected error %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop at end of input")
	}
	if !l.Input().Held(input.KeyA) {
		t.Error("Key event not applied")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	l, r := newLoop()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- l.Run(ctx, nil, nil) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	if r.renders == 0 {
		t.Error("Expected frames to be rendered")
	}
}
