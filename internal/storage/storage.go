package storage

import "time"

// Event represents a single interaction of a user and assistant.
// It is intentionally simple to allow future DB implementations.
// Events are expected to be appended in chronological order. The
// conversation window itself stays in memory only; this log exists for
// audit, not for rebuilding context.
type Event struct {
	Timestamp         time.Time `json:"timestamp"`
	UserID            int64     `json:"user_id"`
	UserMessage       string    `json:"user_message,omitempty"`
	AssistantResponse string    `json:"assistant_response,omitempty"`
}

// Recorder abstracts persistence of interaction events.
// Implementations can be file-based, database, etc.
// LoadInteractions should return events in chronological order.
// AppendInteraction should atomically append a new event.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendInteraction(event Event) error
	LoadInteractions() ([]Event, error)
}
