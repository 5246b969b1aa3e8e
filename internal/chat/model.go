package chat

import (
	"fmt"
	"time"
)

// ---------------------------------------------
// Database & API Models
// ---------------------------------------------

type Message struct {
	ID         int       `json:"id"`
	From       int       `json:"from"`
	To         int       `json:"to"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	SenderName string    `json:"senderName"` // Denormalized for UI speed (fetched via JOIN)
	Read       bool      `json:"read"`
}

// Conversation is derived per query, never stored: the counterpart, the most
// recent message as a preview, and how many inbound messages are still unread.
type Conversation struct {
	FriendID    int     `json:"friendId"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	LastMessage Message `json:"lastMessage"`
	UnreadCount int     `json:"unreadCount"`
}

// ---------------------------------------------
// Wire contract
// ---------------------------------------------

// ClientEvent is what the frontend SENDS us: join{userId, counterpartId}
// or send_message{to, text}. The userId field exists in the wire contract
// for symmetry with the client-side room derivation, but the server only
// ever trusts the connection's bound identity.
type ClientEvent struct {
	Event         string `json:"event"`
	UserID        int    `json:"userId,omitempty"`
	CounterpartID int    `json:"counterpartId,omitempty"`
	To            int    `json:"to,omitempty"`
	Text          string `json:"text,omitempty"`
}

// DeliveryEvent is the receive_message fan-out payload.
type DeliveryEvent struct {
	Event string `json:"event"`
	Message
}

// ErrorEvent goes to the originating connection only, never to the room.
type ErrorEvent struct {
	Event string `json:"event"`
	Error string `json:"error"`
}

// RoomKey derives the fan-out key for an unordered user pair. Both
// participants compute the same key independently of argument order, and the
// frontend derives it the same way (sorted ids joined by ":").
func RoomKey(a, b int) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}
