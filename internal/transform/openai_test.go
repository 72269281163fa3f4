package transform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"wordcraft/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func chatServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("Authorization = %q", got)
		}
		var req openAIChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": content}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIHumanizer(t *testing.T) {
	srv := chatServer(t, "  rewritten text \n", 0)
	o, err := NewOpenAI(OpenAIOptions{APIKey: "key", BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("NewOpenAI() error: %v", err)
	}
	got, err := o.Transform(context.Background(), "input", domain.ToolHumanizer)
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	if got != "rewritten text" {
		t.Fatalf("Transform() = %q, want rewritten text", got)
	}
}

func TestOpenAIDetectorClampsScore(t *testing.T) {
	srv := chatServer(t, `{"score": 140}`, 0)
	o, err := NewOpenAI(OpenAIOptions{APIKey: "key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewOpenAI() error: %v", err)
	}
	got, err := o.Transform(context.Background(), "input", domain.ToolAIDetector)
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	if want := AIReport(100); got != want {
		t.Fatalf("Transform() = %q, want %q", got, want)
	}
}

func TestOpenAIFallbackReasons(t *testing.T) {
	fallback := domain.TransformFunc(func(context.Context, string, domain.ToolKind) (string, error) {
		return "fallback", nil
	})
	cases := []struct {
		name   string
		tool   domain.ToolKind
		client *http.Client
		srv    func(*testing.T) *httptest.Server
		reason string
	}{
		{
			name: "transport",
			tool: domain.ToolHumanizer,
			client: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
				return nil, errors.New("boom")
			})},
			reason: "http_request",
		},
		{
			name:   "status",
			tool:   domain.ToolHumanizer,
			srv:    func(t *testing.T) *httptest.Server { return chatServer(t, "", http.StatusTooManyRequests) },
			reason: "http_429",
		},
		{
			name:   "empty",
			tool:   domain.ToolHumanizer,
			srv:    func(t *testing.T) *httptest.Server { return chatServer(t, "   ", 0) },
			reason: "empty_response",
		},
		{
			name:   "bad_json",
			tool:   domain.ToolAIDetector,
			srv:    func(t *testing.T) *httptest.Server { return chatServer(t, "not json", 0) },
			reason: "parse_payload",
		},
		{
			name:   "plagiarism",
			tool:   domain.ToolPlagiarism,
			reason: "unsupported_tool",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := OpenAIOptions{APIKey: "key", HTTPClient: tc.client, Fallback: fallback}
			if tc.srv != nil {
				opts.BaseURL = tc.srv(t).URL
			}
			var captured string
			opts.OnFallback = func(reason string, _ error) { captured = reason }
			o, err := NewOpenAI(opts)
			if err != nil {
				t.Fatalf("NewOpenAI() error: %v", err)
			}
			got, err := o.Transform(context.Background(), "input", tc.tool)
			if err != nil {
				t.Fatalf("Transform() error: %v", err)
			}
			if got != "fallback" {
				t.Fatalf("Transform() = %q, want fallback", got)
			}
			if captured != tc.reason {
				t.Fatalf("reason = %q, want %q", captured, tc.reason)
			}
		})
	}
}

func TestOpenAIWithoutFallbackReturnsError(t *testing.T) {
	o, err := NewOpenAI(OpenAIOptions{APIKey: "key"})
	if err != nil {
		t.Fatalf("NewOpenAI() error: %v", err)
	}
	if _, err := o.Transform(context.Background(), "x", domain.ToolPlagiarism); err == nil {
		t.Fatalf("Transform() error = nil, want error")
	}
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	if _, err := NewOpenAI(OpenAIOptions{APIKey: "  "}); err == nil {
		t.Fatalf("NewOpenAI() error = nil, want error")
	}
}

func TestNormalizeOpenAIModel(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input, model, reason string
	}{
		{"gpt-4o-mini", "gpt-4o-mini", ""},
		{"GPT 4o", "gpt-4o", ""},
		{"gpt-3.5", "gpt-3.5-turbo", "alias"},
		{"gpt-9", "gpt-4o-mini", "defaulted"},
		{"", "gpt-4o-mini", ""},
	}
	for _, tc := range cases {
		model, reason := normalizeOpenAIModel(tc.input)
		if model != tc.model || reason != tc.reason {
			t.Fatalf("normalizeOpenAIModel(%q) = %q, %q, want %q, %q", tc.input, model, reason, tc.model, tc.reason)
		}
	}
}
