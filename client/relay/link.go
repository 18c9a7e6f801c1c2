// Package relay connects the client to the presence relay.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/caolo-game/frontline/rt/protocol"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 32
)

// Link is one socket to the relay. Reports are queued without blocking; the
// render loop never waits on the network.
type Link struct {
	conn *websocket.Conn
	send chan []byte

	mu       sync.Mutex
	playerId string

	welcomeOnce sync.Once
	welcomed    chan struct{}

	closeOnce sync.Once
	done      chan struct{}
}

// Dial opens the socket at ws://server/socket.
func Dial(ctx context.Context, server string) (*Link, error) {
	u := url.URL{Scheme: "ws", Host: server, Path: "/socket"}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}
	l := &Link{
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		welcomed: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go l.readPump()
	go l.writePump()
	return l, nil
}

// PlayerId is empty until the welcome arrived.
func (l *Link) PlayerId() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.playerId
}

// Welcomed is closed when the first welcome arrives.
func (l *Link) Welcomed() <-chan struct{} { return l.welcomed }

// Done is closed when the link is gone.
func (l *Link) Done() <-chan struct{} { return l.done }

// ReportMove queues a movement report, reporting false when it was dropped.
func (l *Link) ReportMove(pl protocol.MovePayload) bool {
	return l.enqueue(protocol.PlayerMove, pl)
}

func (l *Link) JoinTeam(team string) bool {
	return l.enqueue(protocol.JoinTeam, team)
}

func (l *Link) enqueue(ty string, payload interface{}) bool {
	msg, err := protocol.Encode(ty, payload)
	if err != nil {
		log.Printf("Failed to serialize %s: %v", ty, err)
		return false
	}
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.send <- msg:
		return true
	default:
		return false
	}
}

func (l *Link) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
		l.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		l.conn.Close()
	})
}

func (l *Link) readPump() {
	defer l.Close()
	for {
		_, msg, err := l.conn.ReadMessage()
		if err != nil {
			select {
			case <-l.done:
			default:
				log.Printf("Relay link closed: %v", err)
			}
			return
		}
		env, err := protocol.Decode(msg)
		if err != nil {
			log.Printf("Invalid message from relay: %v", err)
			continue
		}
		l.handle(env)
	}
}

// handle logs peer events. Remote players are not drawn yet.
func (l *Link) handle(env protocol.Envelope) {
	switch env.Ty {
	case protocol.Welcome:
		var pl protocol.WelcomePayload
		if err := json.Unmarshal(env.Payload, &pl); err != nil {
			log.Printf("Invalid welcome: %v", err)
			return
		}
		l.mu.Lock()
		l.playerId = pl.PlayerId
		l.mu.Unlock()
		l.welcomeOnce.Do(func() { close(l.welcomed) })
		log.Printf("%s, player id %s", pl.Message, pl.PlayerId)
	case protocol.PlayerMoved:
		var pl protocol.MovedPayload
		if err := json.Unmarshal(env.Payload, &pl); err != nil {
			return
		}
		var pos protocol.Vec3
		if err := json.Unmarshal(pl.Position, &pos); err != nil {
			log.Printf("Player %s moved to %s", pl.PlayerId, pl.Position)
			return
		}
		log.Printf("Player %s moved to (%.2f, %.2f, %.2f)", pl.PlayerId, pos.X, pos.Y, pos.Z)
	case protocol.TeamJoined:
		var pl protocol.TeamJoinedPayload
		if err := json.Unmarshal(env.Payload, &pl); err == nil {
			log.Printf("Joined team %s", pl.Team)
		}
	case protocol.TeamUpdate:
		var pl protocol.TeamUpdatePayload
		if err := json.Unmarshal(env.Payload, &pl); err == nil {
			log.Printf("%s (%d players)", pl.Message, pl.PlayerCount)
		}
	case protocol.PlayerLeft:
		var pl protocol.PlayerLeftPayload
		if err := json.Unmarshal(env.Payload, &pl); err == nil {
			log.Printf("Player %s left", pl.PlayerId)
		}
	default:
		log.Printf("Unhandled msg type %v", env.Ty)
	}
}

func (l *Link) writePump() {
	for {
		select {
		case msg := <-l.send:
			l.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("Relay write failed: %v", err)
				l.Close()
				return
			}
		case <-l.done:
			return
		}
	}
}
