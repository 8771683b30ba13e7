package models

import "time"

// ReplySource records which strategy produced a generated reply.
type ReplySource string

const (
	ReplySourceLLM      ReplySource = "llm"
	ReplySourceTemplate ReplySource = "template"
)

// GeneratedReply is the draft produced by the response generation stage. The
// user may edit a local copy before sending; sending never mutates this one.
type GeneratedReply struct {
	Subject        string      `json:"subject"`
	Body           string      `json:"body"`
	Recommendation string      `json:"recommendation,omitempty"`
	Source         ReplySource `json:"source"`
}

// SentMessage is one entry in the append-only send log.
type SentMessage struct {
	ID      string    `json:"id"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

// RunState is the processing state of a pipeline run for one email.
type RunState string

const (
	StateIdle       RunState = "idle"
	StateExtracting RunState = "extracting"
	StateComparing  RunState = "comparing"
	StateGenerating RunState = "generating"
	StateComplete   RunState = "complete"
)

// InFlight reports whether a run is currently between extracting and
// generating, meaning a new run for the same email must be rejected.
func (s RunState) InFlight() bool {
	switch s {
	case StateExtracting, StateComparing, StateGenerating:
		return true
	}
	return false
}
