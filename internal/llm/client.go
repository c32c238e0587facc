package llm

import (
	"context"
	"errors"
	"fmt"
)

var errEmptyResponse = errors.New("provider returned empty response")

type Message struct {
	Role    string
	Content string
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client is the completion gateway: it takes an ordered message list
// and returns generated text.
type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
}

// Transcriber is the speech-to-text gateway.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// GatewayError wraps a provider failure (network, auth, quota).
// Handlers turn it into a user-visible error reply; it never enters
// conversation history.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string { return fmt.Sprintf("%s gateway: %v", e.Op, e.Err) }
func (e *GatewayError) Unwrap() error { return e.Err }
