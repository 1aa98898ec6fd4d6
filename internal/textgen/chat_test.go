package textgen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewChatClientProviderDefaults(t *testing.T) {
	t.Parallel()

	client, err := NewChatClient(Options{Provider: "deepseek", Model: "deepseek-chat"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.opts.BaseURL != "https://api.deepseek.com/v1" {
		t.Fatalf("unexpected base URL: %q", client.opts.BaseURL)
	}

	if _, err := NewChatClient(Options{Provider: "mystery", Model: "m"}); err == nil {
		t.Fatalf("expected error for unknown provider without base URL")
	}
	if _, err := NewChatClient(Options{Provider: "openai"}); err == nil {
		t.Fatalf("expected error for missing model")
	}
}

func TestGenerateSendsPromptAndAuth(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "merge these" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "TITLE: x\nSUMMARY: y"}},
			},
		})
	}))
	defer server.Close()

	client, err := NewChatClient(Options{
		Provider: "openai",
		BaseURL:  server.URL,
		Model:    "gpt-4o-mini",
		APIKey:   "sk-test",
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	content, err := client.Generate(context.Background(), "merge these")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if content != "TITLE: x\nSUMMARY: y" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestGenerateErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "provider 500",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
			},
		},
		{
			name: "embedded error body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"message": "quota exceeded"},
				})
			},
		},
		{
			name: "empty content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"choices": []map[string]any{
						{"message": map[string]any{"content": "   "}},
					},
				})
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(tc.handler)
			defer server.Close()

			client, err := NewChatClient(Options{BaseURL: server.URL, Model: "m"})
			if err != nil {
				t.Fatalf("new client: %v", err)
			}
			if _, err := client.Generate(context.Background(), "p"); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
