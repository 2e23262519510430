package agent

import (
	"context"

	"github.com/scipunch/xmonitor/agent/cerebras"
)

// Agent defines the interface for language-model backends.
// An agent owns its prompt and returns the raw model reply for a batch of posts.
type Agent interface {
	// Process runs the highlights prompt over formatted posts and returns the text reply
	Process(ctx context.Context, content string) (string, error)

	// Name returns the agent identifier (e.g., "cerebras")
	Name() string
}

var (
	// ErrUnauthorized is returned when the model API rejects the API key
	ErrUnauthorized = cerebras.ErrUnauthorized
	// ErrEmptyResponse is returned when the model API replies without any text
	ErrEmptyResponse = cerebras.ErrEmptyResponse
)
