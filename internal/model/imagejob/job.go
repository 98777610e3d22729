package imagejob

import "time"

// Status is the one-way job lifecycle: processing is the only initial
// state, done and error are terminal. There is no transition out of a
// terminal state; a swept job simply stops existing.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Terminal reports whether the status admits no further transition.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Job tracks one asynchronous image-generation request.
type Job struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Status    Status    `json:"status"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
