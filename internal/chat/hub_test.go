package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-dm/internal/apperr"
)

type fakeStore struct {
	mu   sync.Mutex
	next int
	fail error
}

func (f *fakeStore) Append(_ context.Context, from, to int, text string) (*Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if text == "" {
		return nil, fmt.Errorf("%w: message text is empty", apperr.ErrInvalidArgument)
	}
	if f.fail != nil {
		return nil, f.fail
	}
	f.next++
	return &Message{ID: f.next, From: from, To: to, Text: text, Timestamp: time.Now()}, nil
}

type fakePresence struct {
	mu      sync.Mutex
	online  map[int]int
	offline map[int]int
}

func newFakePresence() *fakePresence {
	return &fakePresence{online: make(map[int]int), offline: make(map[int]int)}
}

func (f *fakePresence) Online(_ context.Context, userID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online[userID]++
}

func (f *fakePresence) Offline(_ context.Context, userID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offline[userID]++
}

func (f *fakePresence) counts(userID int) (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online[userID], f.offline[userID]
}

// newTestClient builds a client with no socket behind it; the hub and the
// send path never touch the connection directly.
func newTestClient(hub *Hub, userID int, name string) *Client {
	return &Client{
		Hub:      hub,
		Send:     make(chan []byte, 16),
		ID:       name,
		UserID:   userID,
		Username: name,
		rooms:    make(map[string]bool),
	}
}

func joinPair(hub *Hub, c *Client, counterpart int) {
	hub.join <- joinRequest{client: c, room: RoomKey(c.UserID, counterpart)}
}

func recvDelivery(t *testing.T, c *Client) DeliveryEvent {
	t.Helper()
	select {
	case payload := <-c.Send:
		var ev DeliveryEvent
		require.NoError(t, json.Unmarshal(payload, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatalf("client %s received nothing", c.ID)
		return DeliveryEvent{}
	}
}

func recvError(t *testing.T, c *Client) ErrorEvent {
	t.Helper()
	select {
	case payload := <-c.Send:
		var ev ErrorEvent
		require.NoError(t, json.Unmarshal(payload, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatalf("client %s received nothing", c.ID)
		return ErrorEvent{}
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case payload := <-c.Send:
		t.Fatalf("client %s unexpectedly received: %s", c.ID, payload)
	default:
	}
}

func TestFanOutToEveryConnectionInRoom(t *testing.T) {
	store := &fakeStore{}
	hub := NewHub(store, nil)
	go hub.Run()

	// Two devices for user 1, one for user 2; joins arrive from both
	// orderings of the pair and must land in the same room.
	a1 := newTestClient(hub, 1, "alice-phone")
	a2 := newTestClient(hub, 1, "alice-laptop")
	b := newTestClient(hub, 2, "bob")
	for _, c := range []*Client{a1, a2, b} {
		hub.Register <- c
	}
	joinPair(hub, a1, 2)
	joinPair(hub, a2, 2)
	joinPair(hub, b, 1)

	b.handleSend(&ClientEvent{Event: "send_message", To: 1, Text: "hello"})

	for _, c := range []*Client{a1, a2, b} {
		ev := recvDelivery(t, c)
		require.Equal(t, "receive_message", ev.Event)
		require.Equal(t, 1, ev.ID, "store-assigned id is carried through")
		require.Equal(t, 2, ev.From)
		require.Equal(t, 1, ev.To)
		require.Equal(t, "hello", ev.Text)
		require.Equal(t, "bob", ev.SenderName)
		require.False(t, ev.Read)
	}
}

func TestStoreFailureReachesSenderOnly(t *testing.T) {
	store := &fakeStore{fail: fmt.Errorf("%w: connection refused", apperr.ErrStore)}
	hub := NewHub(store, nil)
	go hub.Run()

	a := newTestClient(hub, 1, "alice")
	b := newTestClient(hub, 2, "bob")
	hub.Register <- a
	hub.Register <- b
	joinPair(hub, a, 2)
	joinPair(hub, b, 1)

	b.handleSend(&ClientEvent{Event: "send_message", To: 1, Text: "hello"})

	ev := recvError(t, b)
	require.Equal(t, "error", ev.Event)
	require.NotEmpty(t, ev.Error)
	assertSilent(t, a)
}

func TestEmptyTextRejectedBeforeBroadcast(t *testing.T) {
	hub := NewHub(&fakeStore{}, nil)
	go hub.Run()

	a := newTestClient(hub, 1, "alice")
	b := newTestClient(hub, 2, "bob")
	hub.Register <- a
	hub.Register <- b
	joinPair(hub, a, 2)
	joinPair(hub, b, 1)

	b.handleSend(&ClientEvent{Event: "send_message", To: 1, Text: ""})

	ev := recvError(t, b)
	require.Equal(t, "error", ev.Event)
	assertSilent(t, a)
}

func TestUnregisterLeavesAllRooms(t *testing.T) {
	store := &fakeStore{}
	hub := NewHub(store, nil)
	go hub.Run()

	a1 := newTestClient(hub, 1, "alice-phone")
	a2 := newTestClient(hub, 1, "alice-laptop")
	b := newTestClient(hub, 2, "bob")
	for _, c := range []*Client{a1, a2, b} {
		hub.Register <- c
	}
	joinPair(hub, a1, 2)
	joinPair(hub, a2, 2)
	joinPair(hub, b, 1)

	hub.Unregister <- a1

	b.handleSend(&ClientEvent{Event: "send_message", To: 1, Text: "still here?"})

	require.Equal(t, "still here?", recvDelivery(t, a2).Text)
	recvDelivery(t, b)

	// The dropped client's channel is closed and got nothing.
	payload, open := <-a1.Send
	require.False(t, open, "unexpected payload on dropped client: %s", payload)
}

func TestPresenceFollowsConnectionCount(t *testing.T) {
	tracker := newFakePresence()
	hub := NewHub(&fakeStore{}, tracker)
	go hub.Run()

	a1 := newTestClient(hub, 1, "alice-phone")
	a2 := newTestClient(hub, 1, "alice-laptop")
	hub.Register <- a1
	hub.Register <- a2

	require.Eventually(t, func() bool {
		on, _ := tracker.counts(1)
		return on == 1
	}, time.Second, 10*time.Millisecond, "only the first connection flips presence on")

	hub.Unregister <- a1
	hub.Unregister <- a2

	require.Eventually(t, func() bool {
		on, off := tracker.counts(1)
		return on == 1 && off == 1
	}, time.Second, 10*time.Millisecond, "only the last disconnect flips presence off")
}
