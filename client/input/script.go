package input

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"
)

type Event interface{ isEvent() }

type KeyDown struct{ Key Key }
type KeyUp struct{ Key Key }

// PointerMove is one raw movement sample, in reported pixels.
type PointerMove struct{ DX, DY float64 }

type Capture struct{ On bool }

type Resize struct{ Width, Height int }

type Snapshot struct{ Path string }

// Wait pauses the script; it never reaches the consumer.
type Wait struct{ D time.Duration }

func (KeyDown) isEvent()     {}
func (KeyUp) isEvent()       {}
func (PointerMove) isEvent() {}
func (Capture) isEvent()     {}
func (Resize) isEvent()      {}
func (Snapshot) isEvent()    {}
func (Wait) isEvent()        {}

// ParseLine turns one script line into an event. Blank lines and comments
// yield a nil event.
func ParseLine(line string) (Event, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}
	fields := strings.Fields(line)
	args := fields[1:]
	switch fields[0] {
	case "down", "up":
		if len(args) != 1 {
			return nil, fmt.Errorf("%s: expected a key code", fields[0])
		}
		if fields[0] == "down" {
			return KeyDown{Key(args[0])}, nil
		}
		return KeyUp{Key(args[0])}, nil
	case "lock":
		return Capture{On: true}, nil
	case "unlock":
		return Capture{On: false}, nil
	case "move":
		if len(args) != 2 {
			return nil, fmt.Errorf("move: expected dx dy")
		}
		dx, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return nil, fmt.Errorf("move: %w", err)
		}
		dy, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return nil, fmt.Errorf("move: %w", err)
		}
		return PointerMove{dx, dy}, nil
	case "resize":
		if len(args) != 2 {
			return nil, fmt.Errorf("resize: expected width height")
		}
		w, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("resize: %w", err)
		}
		h, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("resize: %w", err)
		}
		return Resize{w, h}, nil
	case "wait":
		if len(args) != 1 {
			return nil, fmt.Errorf("wait: expected a duration")
		}
		d, err := time.ParseDuration(args[0])
		if err != nil {
			return nil, fmt.Errorf("wait: %w", err)
		}
		return Wait{d}, nil
	case "snapshot":
		if len(args) != 1 {
			return nil, fmt.Errorf("snapshot: expected a path")
		}
		return Snapshot{args[0]}, nil
	}
	return nil, fmt.Errorf("unknown command %q", fields[0])
}

// Script reads events from r and sends them on out until r is exhausted or
// ctx is done. out is closed on return.
func Script(ctx context.Context, r io.Reader, out chan<- Event) error {
	defer close(out)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		ev, err := ParseLine(scanner.Text())
		if err != nil {
			log.Printf("input line %d: %v", lineNo, err)
			continue
		}
		switch ev := ev.(type) {
		case nil:
		case Wait:
			select {
			case <-time.After(ev.D):
			case <-ctx.Done():
				return ctx.Err()
			}
		default:
			select {
			case out <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return scanner.Err()
}
