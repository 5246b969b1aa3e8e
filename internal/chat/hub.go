package chat

import (
	"context"

	"github.com/sirupsen/logrus"
)

// MessageStore is the slice of the repository the delivery layer needs.
// An interface so the hub is testable without a database.
type MessageStore interface {
	Append(ctx context.Context, from, to int, text string) (*Message, error)
}

// PresenceTracker mirrors connection lifecycle into the presence store.
type PresenceTracker interface {
	Online(ctx context.Context, userID int)
	Offline(ctx context.Context, userID int)
}

type joinRequest struct {
	client *Client
	room   string
}

type roomMessage struct {
	room    string
	payload []byte
}

type directMessage struct {
	client  *Client
	payload []byte
}

// Hub is the process-scoped room registry: a mapping from room key to the
// set of currently subscribed connections. The Run goroutine is the only
// thing that touches rooms, conns and per-client membership, so membership
// mutation is serialized by construction: a broadcast can never miss a
// concurrently-joining connection or hit a concurrently-leaving one.
type Hub struct {
	rooms map[string]map[*Client]bool
	conns map[int]int // live connections per user, drives presence

	Register   chan *Client
	Unregister chan *Client
	join       chan joinRequest
	broadcast  chan roomMessage
	direct     chan directMessage

	store    MessageStore
	presence PresenceTracker // optional
}

func NewHub(store MessageStore, presence PresenceTracker) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		conns:      make(map[int]int),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		join:       make(chan joinRequest),
		broadcast:  make(chan roomMessage),
		direct:     make(chan directMessage),
		store:      store,
		presence:   presence,
	}
}

// Broadcast fans a prebuilt delivery event out to every connection in the
// room. Callers must only hand over events whose message is already
// persisted; the hub itself never writes to the store on this path.
func (h *Hub) Broadcast(room string, payload []byte) {
	h.broadcast <- roomMessage{room: room, payload: payload}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.conns[client.UserID]++
			if h.presence != nil && h.conns[client.UserID] == 1 {
				h.presence.Online(context.Background(), client.UserID)
			}

		case client := <-h.Unregister:
			h.drop(client)

		case req := <-h.join:
			if req.client.gone {
				continue
			}
			if _, ok := h.rooms[req.room]; !ok {
				h.rooms[req.room] = make(map[*Client]bool)
			}
			h.rooms[req.room][req.client] = true
			req.client.rooms[req.room] = true
			logrus.WithFields(logrus.Fields{
				"user_id": req.client.UserID,
				"room":    req.room,
			}).Debug("chat: joined room")

		case m := <-h.direct:
			// Single-connection events (errors, acks). Routed through the
			// hub so nothing ever writes to a Send channel the hub already
			// closed.
			if m.client.gone {
				continue
			}
			select {
			case m.client.Send <- m.payload:
			default:
				h.drop(m.client)
			}

		case m := <-h.broadcast:
			for client := range h.rooms[m.room] {
				select {
				case client.Send <- m.payload:
				default:
					// Slow consumer; drop it rather than stall the room.
					h.drop(client)
				}
			}
		}
	}
}

// drop removes a client from every room it joined and closes its write
// channel. Safe to reach twice (unregister racing a slow-consumer drop).
func (h *Hub) drop(client *Client) {
	if client.gone {
		return
	}
	client.gone = true

	for room := range client.rooms {
		delete(h.rooms[room], client)
		if len(h.rooms[room]) == 0 {
			delete(h.rooms, room)
		}
	}
	close(client.Send)

	if n := h.conns[client.UserID]; n <= 1 {
		delete(h.conns, client.UserID)
		if h.presence != nil {
			h.presence.Offline(context.Background(), client.UserID)
		}
	} else {
		h.conns[client.UserID] = n - 1
	}
}
