package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/caolo-game/frontline/rt/protocol"
	"github.com/caolo-game/frontline/rt/rooms"
)

const welcomeMessage = "Connected to the frontline relay"

type Config struct {
	Policy rooms.Policy
	// AnnounceDepartures sends player-left to the remaining connections when
	// one goes away. Off by default, the relay historically stayed silent.
	AnnounceDepartures bool
	// AllowedOrigin is the only browser origin allowed to open a socket.
	// Requests without an Origin header are always accepted.
	AllowedOrigin string
}

// Hub owns every live connection and the room registry. Only the Run
// goroutine touches them.
type Hub struct {
	config   Config
	registry *rooms.Registry
	clients  map[string]*client

	/// register new clients
	register chan *client
	/// un-register clients
	unregister chan *client
	/// events read from clients
	inbound chan inboundMsg

	done chan struct{}
}

type inboundMsg struct {
	from *client
	env  protocol.Envelope
}

func NewHub(config Config) *Hub {
	return &Hub{
		config:     config,
		registry:   rooms.NewRegistry(config.Policy),
		clients:    map[string]*client{},
		register:   make(chan *client),
		unregister: make(chan *client),
		inbound:    make(chan inboundMsg),
		done:       make(chan struct{}),
	}
}

// Run processes hub events until ctx is cancelled.
func (hub *Hub) Run(ctx context.Context) {
	defer close(hub.done)
	for {
		select {
		case c := <-hub.register:
			hub.connect(c)
		case c := <-hub.unregister:
			hub.disconnect(c)
		case msg := <-hub.inbound:
			hub.dispatch(msg.from, msg.env)
		case <-ctx.Done():
			for _, c := range hub.clients {
				hub.drop(c)
			}
			return
		}
	}
}

func (hub *Hub) connect(c *client) {
	hub.clients[c.id] = c
	log.Printf("Player %s connected, %d online", c.id, len(hub.clients))
	hub.sendTo(c, protocol.Welcome, protocol.WelcomePayload{
		Message:  welcomeMessage,
		PlayerId: c.id,
	})
}

func (hub *Hub) disconnect(c *client) {
	if hub.clients[c.id] != c {
		return
	}
	hub.drop(c)
	log.Printf("Player %s disconnected, %d online", c.id, len(hub.clients))
	if hub.config.AnnounceDepartures {
		hub.broadcast(c.id, protocol.PlayerLeft, protocol.PlayerLeftPayload{PlayerId: c.id})
	}
}

// drop forgets the client and closes its send channel, which stops the
// write pump.
func (hub *Hub) drop(c *client) {
	if hub.clients[c.id] != c {
		return
	}
	delete(hub.clients, c.id)
	hub.registry.Leave(c.id)
	close(c.send)
}

func (hub *Hub) dispatch(from *client, env protocol.Envelope) {
	if hub.clients[from.id] != from {
		return
	}
	switch env.Ty {
	case protocol.PlayerMove:
		hub.broadcast(from.id, protocol.PlayerMoved, protocol.Moved(from.id, env.Payload))
	case protocol.JoinTeam:
		var team string
		if err := json.Unmarshal(env.Payload, &team); err != nil {
			log.Printf("Invalid %s from %s: %v", env.Ty, from.id, err)
			return
		}
		hub.joinTeam(from, team)
	default:
		log.Printf("Unhandled msg type %v", env.Ty)
	}
}

func (hub *Hub) joinTeam(c *client, team string) {
	count := hub.registry.Join(c.id, team)
	log.Printf("Player %s joined team %s (%d members)", c.id, team, count)

	hub.sendTo(c, protocol.TeamJoined, protocol.TeamJoinedPayload{Team: team})
	// the reply may have dropped the sender
	update := protocol.TeamUpdatePayload{
		Message:     fmt.Sprintf("A new player joined team %s", team),
		PlayerCount: hub.registry.Count(team),
	}
	for _, id := range hub.registry.Members(team) {
		if member, ok := hub.clients[id]; ok {
			hub.sendTo(member, protocol.TeamUpdate, update)
		}
	}
}

// broadcast sends to every client except the one with id except.
func (hub *Hub) broadcast(except string, ty string, payload interface{}) {
	msg, err := protocol.Encode(ty, payload)
	if err != nil {
		log.Printf("Failed to serialize %s: %v", ty, err)
		return
	}
	for id, c := range hub.clients {
		if id == except {
			continue
		}
		hub.enqueue(c, msg)
	}
}

func (hub *Hub) sendTo(c *client, ty string, payload interface{}) {
	msg, err := protocol.Encode(ty, payload)
	if err != nil {
		log.Printf("Failed to serialize %s: %v", ty, err)
		return
	}
	hub.enqueue(c, msg)
}

// enqueue never blocks the hub; a client that cannot keep up is dropped.
func (hub *Hub) enqueue(c *client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		log.Printf("Player %s send buffer full, dropping", c.id)
		hub.drop(c)
	}
}
