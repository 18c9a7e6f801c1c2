// Package input tracks held keys and pointer capture, and parses the scripted
// event stream the headless client is driven by.
package input

import "github.com/go-gl/mathgl/mgl64"

type Key string

const (
	KeyW Key = "KeyW"
	KeyA Key = "KeyA"
	KeyS Key = "KeyS"
	KeyD Key = "KeyD"
)

// local space axis for each movement key
var axes = map[Key]mgl64.Vec3{
	KeyW: {0, 0, -1},
	KeyS: {0, 0, 1},
	KeyA: {-1, 0, 0},
	KeyD: {1, 0, 0},
}

type State struct {
	keydown  map[Key]bool
	captured bool
}

func NewState() *State {
	return &State{keydown: map[Key]bool{}}
}

func (s *State) Press(k Key)   { s.keydown[k] = true }
func (s *State) Release(k Key) { delete(s.keydown, k) }

func (s *State) Held(k Key) bool { return s.keydown[k] }

func (s *State) SetCaptured(on bool) { s.captured = on }
func (s *State) Captured() bool      { return s.captured }

// Direction sums the local axis of every held movement key. Opposing keys
// cancel out; diagonals are not normalized.
func (s *State) Direction() mgl64.Vec3 {
	var dir mgl64.Vec3
	for k, axis := range axes {
		if s.keydown[k] {
			dir = dir.Add(axis)
		}
	}
	return dir
}
