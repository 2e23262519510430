package cerebras

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/scipunch/xmonitor/agent/prompts"
)

const (
	agentName      = "cerebras"
	defaultBaseURL = "https://api.cerebras.ai/v1"

	maxTokens   = 1000
	temperature = 0.3
	timeout     = 60 * time.Second
)

var (
	ErrUnauthorized  = errors.New("model API rejected credentials")
	ErrEmptyResponse = errors.New("model API returned an empty response")
)

// CerebrasAgent runs the highlights prompt on an OpenAI compatible endpoint through genkit
type CerebrasAgent struct {
	prompt  *ai.Prompt
	g       *genkit.Genkit
	config  *openai.ChatCompletionNewParams
	baseURL string
}

// New creates a chat completions agent with its own genkit instance.
// An empty baseURL selects the Cerebras API.
func New(ctx context.Context, apiKey, model, baseURL string, client *http.Client) (*CerebrasAgent, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is not set: %w", ErrUnauthorized)
	}
	if model == "" {
		return nil, errors.New("model is not set")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	g := genkit.Init(ctx,
		genkit.WithPlugins(&compat_oai.OpenAICompatible{
			Provider: agentName,
			APIKey:   apiKey,
			BaseURL:  baseURL,
			// A failed account is retried on the next scan cycle
			Opts: []option.RequestOption{
				option.WithHTTPClient(client),
				option.WithMaxRetries(0),
			},
		}),
		genkit.WithPromptFS(prompts.FS),
		genkit.WithPromptDir("."),
		genkit.WithDefaultModel(fmt.Sprintf("%s/%s", agentName, model)),
	)

	prompt := genkit.LookupPrompt(g, prompts.Highlights)
	if prompt == nil {
		return nil, fmt.Errorf("prompt '%s' not found in embedded files", prompts.Highlights)
	}

	return &CerebrasAgent{
		prompt: &prompt,
		g:      g,
		config: &openai.ChatCompletionNewParams{
			MaxTokens:   openai.Int(maxTokens),
			Temperature: openai.Float(temperature),
		},
		baseURL: baseURL,
	}, nil
}

// Name returns the agent identifier
func (a *CerebrasAgent) Name() string {
	return agentName
}

// Process runs the highlights prompt over the formatted posts
func (a *CerebrasAgent) Process(ctx context.Context, posts string) (string, error) {
	resp, err := (*a.prompt).Execute(ctx,
		ai.WithInput(map[string]any{"posts": posts}),
		ai.WithConfig(a.config))
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) &&
			(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
			return "", fmt.Errorf("status %d: %w", apiErr.StatusCode, ErrUnauthorized)
		}
		return "", fmt.Errorf("failed to execute highlights prompt: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
