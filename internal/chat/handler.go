package chat

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"go-dm/internal/apperr"
	myMiddleware "go-dm/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for now (Dev mode)
	},
}

type Handler struct {
	hub  *Hub
	repo *Repository
}

func NewHandler(hub *Hub, repo *Repository) *Handler {
	return &Handler{hub: hub, repo: repo}
}

// ServeWs upgrades an authenticated request to a websocket connection and
// hands it to the hub. The identity comes from the JWT middleware; nothing
// the socket later sends can change it.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	userID, username, ok := myMiddleware.Identity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("chat: upgrade failed")
		return
	}

	client := &Client{
		Hub:      h.hub,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		ID:       uuid.NewString(),
		UserID:   userID,
		Username: username,
		rooms:    make(map[string]bool),
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

// GetMessages returns the full history with one counterpart, oldest first.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := myMiddleware.Identity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	counterpart, err := strconv.Atoi(chi.URLParam(r, "counterpartID"))
	if err != nil {
		http.Error(w, "invalid counterpart id", http.StatusBadRequest)
		return
	}

	msgs, err := h.repo.Between(r.Context(), userID, counterpart)
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	if msgs == nil {
		msgs = []Message{}
	}
	json.NewEncoder(w).Encode(msgs)
}

type sendBody struct {
	To   int    `json:"to"`
	Text string `json:"text"`
}

// SendMessage is the REST twin of the send_message socket event. It persists
// through the same store and then hands the delivery event to the hub so
// any live sockets on the pair still see it in real time.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, username, ok := myMiddleware.Identity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body sendBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	msg, err := h.repo.Append(r.Context(), userID, body.To, body.Text)
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	msg.SenderName = username

	if payload, err := json.Marshal(DeliveryEvent{Event: "receive_message", Message: *msg}); err == nil {
		h.hub.Broadcast(RoomKey(userID, body.To), payload)
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(msg)
}

type readBody struct {
	FriendID int `json:"friend_id"`
}

// MarkRead flips every unread message from the counterpart to the caller.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := myMiddleware.Identity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body readBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n, err := h.repo.MarkRead(r.Context(), userID, body.FriendID)
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	json.NewEncoder(w).Encode(map[string]int64{"updated": n})
}

// ListConversations builds the caller's conversation list on demand.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := myMiddleware.Identity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	convs, err := h.repo.ListConversations(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	json.NewEncoder(w).Encode(convs)
}
