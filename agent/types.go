package agent

import (
	"encoding/json"
	"io"
)

// ResearchRequest describes one audit initiation call.
type ResearchRequest struct {
	// Input is the natural-language instruction embedding the target URL.
	Input string `json:"input"`
	// Model selects the agent depth, "mini" or "pro".
	Model string `json:"model"`
	// OutputSchema constrains the agent to the structured verdict shape.
	OutputSchema json.RawMessage `json:"output_schema,omitempty"`
	// Stream requests a live event stream instead of a job handle.
	Stream bool `json:"stream,omitempty"`
}

// StatusResponse is the JSON body of an initiation or status-check call. Some
// jobs complete synchronously and carry their content inline.
type StatusResponse struct {
	Status    string          `json:"status"`
	RequestID string          `json:"request_id"`
	Content   json.RawMessage `json:"content"`
	Error     string          `json:"error,omitempty"`
}

// Server-side job statuses after which no further polling occurs.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Terminal reports whether no further polling should occur for this status.
func (s *StatusResponse) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// ResearchResponse is the tagged outcome of an initiation call: exactly one of
// Stream or Status is set, depending on the transport the server selected.
type ResearchResponse struct {
	// Stream is the live event-stream body. The caller owns closing it.
	Stream io.ReadCloser
	// Status is the decoded JSON body for the non-streaming case.
	Status *StatusResponse
}

// JobHandle identifies an in-flight asynchronous job. It lives from the
// initiation call that returned a non-terminal status until a poll returns a
// terminal status or the budget elapses; it is never persisted.
type JobHandle struct {
	RequestID string
}

// RawResult is a consumer's terminal output before normalization: either a
// directly-received structured object or accumulated text. When both are
// present the object wins; text tokens from another content channel never
// partially overwrite a complete object.
type RawResult struct {
	Object json.RawMessage
	Text   string
}

// RawContent maps a terminal status body's content field onto the object/text
// union. A JSON string becomes text, anything else is kept as the structured
// object.
func (s *StatusResponse) RawContent() RawResult {
	if len(s.Content) == 0 {
		return RawResult{}
	}
	var text string
	if err := json.Unmarshal(s.Content, &text); err == nil {
		return RawResult{Text: text}
	}
	return RawResult{Object: s.Content}
}
