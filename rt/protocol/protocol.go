// Package protocol holds the named events exchanged between the relay and its
// clients. Every websocket text frame carries one Envelope.
package protocol

import (
	"encoding/json"
	"fmt"
)

const (
	Welcome     = "welcome"
	PlayerMove  = "player-move"
	PlayerMoved = "player-moved"
	JoinTeam    = "join-team"
	TeamJoined  = "team-joined"
	TeamUpdate  = "team-update"
	PlayerLeft  = "player-left"
)

const (
	TeamResistance = "resistance"
	TeamNazi       = "nazi"
)

// Envelope is the outer shape of every message on the socket.
type Envelope struct {
	Ty      string          `json:"ty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type WelcomePayload struct {
	Message  string `json:"message"`
	PlayerId string `json:"playerId"`
}

type MovePayload struct {
	Position Vec3 `json:"position"`
	Rotation Vec3 `json:"rotation"`
}

// MovedPayload carries the mover's claims exactly as they were reported.
// Missing claims are left out.
type MovedPayload struct {
	PlayerId string          `json:"playerId"`
	Position json.RawMessage `json:"position,omitempty"`
	Rotation json.RawMessage `json:"rotation,omitempty"`
}

type TeamJoinedPayload struct {
	Team string `json:"team"`
}

type TeamUpdatePayload struct {
	Message     string `json:"message"`
	PlayerCount int    `json:"playerCount"`
}

type PlayerLeftPayload struct {
	PlayerId string `json:"playerId"`
}

// Encode wraps payload into an envelope and serializes it.
func Encode(ty string, payload interface{}) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		pl, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", ty, err)
		}
		raw = pl
	}
	return json.Marshal(Envelope{Ty: ty, Payload: raw})
}

// Moved tags a player-move payload with the mover's id. Position and rotation
// are copied untouched, whatever their shape; a payload that is not an object
// carries no claims.
func Moved(playerId string, payload json.RawMessage) MovedPayload {
	var claim struct {
		Position json.RawMessage `json:"position"`
		Rotation json.RawMessage `json:"rotation"`
	}
	json.Unmarshal(payload, &claim)
	return MovedPayload{PlayerId: playerId, Position: claim.Position, Rotation: claim.Rotation}
}

// Decode parses a frame into its envelope. The payload is left raw so the
// receiver can pick the type from Ty.
func Decode(msg []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return Envelope{}, err
	}
	if env.Ty == "" {
		return Envelope{}, fmt.Errorf("missing event name")
	}
	return env, nil
}
