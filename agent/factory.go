package agent

import (
	"context"
	"fmt"

	"github.com/scipunch/xmonitor/agent/cerebras"
	"github.com/scipunch/xmonitor/agent/gemini"
	"github.com/scipunch/xmonitor/config"
)

// InitAgent creates the agent for the configured provider.
// It fails fast if the agent cannot be initialized (e.g., missing credentials, invalid prompts).
func InitAgent(ctx context.Context, conf config.Config) (Agent, error) {
	switch conf.Provider {
	case config.Cerebras:
		a, err := cerebras.New(ctx, conf.APIKey, conf.Model, conf.BaseURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cerebras agent: %w", err)
		}
		return a, nil
	case config.Gemini:
		a, err := gemini.New(ctx, conf.APIKey, conf.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gemini agent: %w", err)
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", conf.Provider)
	}
}
