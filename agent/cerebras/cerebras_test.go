package cerebras

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type chatRequest struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completion(content string) string {
	reply, _ := json.Marshal(content)
	return fmt.Sprintf(`{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1760518800,
		"model": "llama-3.3-70b",
		"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": %s}}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
	}`, reply)
}

func newTestAgent(t *testing.T, srv *httptest.Server) *CerebrasAgent {
	t.Helper()
	a, err := New(context.Background(), "csk-test", "llama-3.3-70b", srv.URL+"/v1", srv.Client())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return a
}

func TestProcess_Success(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer csk-test" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completion(`{"highlights":["ok"]}`))
	}))
	defer srv.Close()

	a := newTestAgent(t, srv)
	posts := "@Raydium: LaunchLab v2 ships creator fee sharing"
	reply, err := a.Process(context.Background(), posts)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if reply != `{"highlights":["ok"]}` {
		t.Errorf("unexpected reply %q", reply)
	}

	if got.Model != "llama-3.3-70b" || got.MaxTokens != maxTokens || got.Temperature != temperature {
		t.Errorf("unexpected request parameters: %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
	// The shared prompt file wraps the posts
	prompt := got.Messages[0].Content
	for _, want := range []string{"extract the most important highlights", posts, `{"highlights": []}`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestProcess_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":{"message":"bad key"}}`, wantErr: ErrUnauthorized},
		{name: "forbidden", status: http.StatusForbidden, body: `{"error":{"message":"no access"}}`, wantErr: ErrUnauthorized},
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":{"message":"overloaded"}}`},
		{name: "empty message", status: http.StatusOK, body: completion(""), wantErr: ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestAgent(t, srv).Process(context.Background(), "@a: post")
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && errors.Is(err, ErrUnauthorized) {
				t.Errorf("server error must not look like bad credentials: %v", err)
			}
		})
	}
}

func TestNew_Validation(t *testing.T) {
	ctx := context.Background()
	if _, err := New(ctx, "", "m", "", nil); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for missing key, got %v", err)
	}
	if _, err := New(ctx, "k", "", "", nil); err == nil {
		t.Error("expected error for missing model")
	}
	a, err := New(ctx, "k", "m", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if a.baseURL != defaultBaseURL {
		t.Errorf("expected default base URL, got %s", a.baseURL)
	}
}
