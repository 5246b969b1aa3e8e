package friend

import "time"

// Request is a pending inbound friend request as shown to its recipient.
type Request struct {
	FromID    int       `json:"from_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
