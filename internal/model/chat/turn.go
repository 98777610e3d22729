package chat

// Role tags who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message within a session. Content length is not limited
// here; the upstream model enforces its own limits.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
