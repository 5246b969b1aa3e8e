package friend

import (
	"encoding/json"
	"net/http"

	"go-dm/internal/apperr"
	myMiddleware "go-dm/internal/middleware"
)

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

// The request bodies only ever carry the counterpart id; the acting user is
// always the authenticated identity from the context.
type requestBody struct {
	ToID int `json:"to_id"`
}

type decisionBody struct {
	FromID int `json:"from_id"`
}

func (h *Handler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := myMiddleware.Identity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body requestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.SendRequest(r.Context(), userID, body.ToID); err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"message": "friend request sent"})
}

func (h *Handler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := myMiddleware.Identity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body decisionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.AcceptRequest(r.Context(), userID, body.FromID); err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"message": "friend request accepted"})
}

func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := myMiddleware.Identity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body decisionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.RejectRequest(r.Context(), userID, body.FromID); err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"message": "friend request rejected"})
}

func (h *Handler) ListIncoming(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := myMiddleware.Identity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	requests, err := h.Service.ListIncoming(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}
	if requests == nil {
		requests = []Request{}
	}
	json.NewEncoder(w).Encode(requests)
}
