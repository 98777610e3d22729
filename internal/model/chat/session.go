package chat

import "time"

// MaxTurns is the retained conversation window. Older turns are dropped
// before the transcript ever exceeds it.
const MaxTurns = 20

// Session captures a transient anonymous conversation.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Turns     []Turn    `json:"turns"`
}
