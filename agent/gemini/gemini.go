package gemini

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/scipunch/xmonitor/agent/prompts"
)

const agentName = "gemini"

// GeminiAgent runs the highlights prompt on Gemini through genkit
type GeminiAgent struct {
	prompt *ai.Prompt
	g      *genkit.Genkit
}

// New creates a new Gemini agent with its own genkit instance.
// It fails fast if the prompt is not found or credentials are missing.
func New(ctx context.Context, apiKey, model string) (*GeminiAgent, error) {
	if apiKey == "" || model == "" {
		return nil, fmt.Errorf("invalid Gemini credentials: API key and model must be set")
	}

	g := genkit.Init(ctx,
		genkit.WithPlugins(&googlegenai.GoogleAI{
			APIKey: apiKey,
		}),
		genkit.WithPromptFS(prompts.FS),
		genkit.WithPromptDir("."),
		genkit.WithDefaultModel(fmt.Sprintf("googleai/%s", model)),
	)

	prompt := genkit.LookupPrompt(g, prompts.Highlights)
	if prompt == nil {
		return nil, fmt.Errorf("prompt '%s' not found in embedded files", prompts.Highlights)
	}

	return &GeminiAgent{
		prompt: &prompt,
		g:      g,
	}, nil
}

// Name returns the agent identifier
func (a *GeminiAgent) Name() string {
	return agentName
}

// Process runs the highlights prompt over the formatted posts
func (a *GeminiAgent) Process(ctx context.Context, posts string) (string, error) {
	resp, err := (*a.prompt).Execute(ctx,
		ai.WithInput(map[string]any{"posts": posts}))
	if err != nil {
		return "", fmt.Errorf("failed to execute highlights prompt: %w", err)
	}

	return resp.Text(), nil
}
