package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Send pings to peer with this period. Must be less than pongWait.
	maxMessageSize = 4096                // Maximum event size allowed from peer.

	appendTimeout = 5 * time.Second
)

// Client is a middleman between one websocket connection and the hub. A user
// may hold several clients at once (multiple devices); every one of them is
// a separate fan-out target.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn

	// Buffered channel of outbound events; closed by the hub on drop.
	Send chan []byte

	ID       string // per-connection uuid, for logs
	UserID   int    // bound from the verified token, never from payloads
	Username string

	// rooms this client joined; owned exclusively by the hub goroutine.
	rooms map[string]bool
	gone  bool
}

// ReadPump pumps events from the websocket connection into the hub and the
// store. It runs on its own goroutine per connection, so a slow Append here
// never blocks any other connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).WithField("conn_id", c.ID).Warn("chat: read error")
			}
			break
		}

		var ev ClientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.sendEvent(ErrorEvent{Event: "error", Error: "malformed event"})
			continue
		}

		switch ev.Event {
		case "join":
			c.handleJoin(&ev)
		case "send_message":
			c.handleSend(&ev)
		default:
			c.sendEvent(ErrorEvent{Event: "error", Error: "unknown event: " + ev.Event})
		}
	}
}

func (c *Client) handleJoin(ev *ClientEvent) {
	if ev.CounterpartID == 0 {
		c.sendEvent(ErrorEvent{Event: "error", Error: "counterpartId is required"})
		return
	}
	// The room key is derived from the connection's bound identity, so a
	// client cannot subscribe to a pair it is not part of.
	c.Hub.join <- joinRequest{client: c, room: RoomKey(c.UserID, ev.CounterpartID)}
}

// handleSend persists first and broadcasts only a successfully stored
// message. A store failure is reported to this connection alone and never
// reaches the room.
func (c *Client) handleSend(ev *ClientEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()

	msg, err := c.Hub.store.Append(ctx, c.UserID, ev.To, ev.Text)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"conn_id": c.ID,
			"from":    c.UserID,
			"to":      ev.To,
		}).Warn("chat: send failed")
		c.sendEvent(ErrorEvent{Event: "error", Error: err.Error()})
		return
	}
	msg.SenderName = c.Username

	payload, err := json.Marshal(DeliveryEvent{Event: "receive_message", Message: *msg})
	if err != nil {
		return
	}
	c.Hub.Broadcast(RoomKey(c.UserID, ev.To), payload)
}

// sendEvent queues an event for this connection only, via the hub's direct
// lane so delivery never races the hub closing the Send channel.
func (c *Client) sendEvent(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Hub.direct <- directMessage{client: c, payload: payload}
}

// WritePump pumps events from the hub to the websocket connection and keeps
// the connection (and the user's presence flag) alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub dropped us.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain queued events in one writer to reduce syscalls.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			if c.Hub.presence != nil {
				c.Hub.presence.Online(context.Background(), c.UserID)
			}
		}
	}
}
