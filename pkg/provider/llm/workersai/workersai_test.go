package workersai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voxmeet/voxmeet/pkg/provider/llm"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New("", "token"); err == nil {
		t.Error("expected error for empty accountID")
	}
	if _, err := New("acct", ""); err == nil {
		t.Error("expected error for empty apiToken")
	}
	if _, err := New("acct", "token"); err != nil {
		t.Errorf("New() error: %v", err)
	}
}

func TestComplete(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth string
	var gotBody runRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"result":  map[string]string{"response": "42"},
		})
	}))
	defer srv.Close()

	p, err := New("acct-1", "tok-1", WithBaseURL(srv.URL), WithModel("@cf/meta/llama-3.1-8b-instruct"))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	resp, err := p.Complete(context.Background(), llm.CompletionRequest{Prompt: "what is the answer"})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if resp.Content != "42" {
		t.Errorf("Content = %q, want %q", resp.Content, "42")
	}
	if !strings.Contains(gotPath, "/client/v4/accounts/acct-1/ai/run/") {
		t.Errorf("path = %q, want run endpoint", gotPath)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotBody.Prompt != "what is the answer" {
		t.Errorf("prompt = %q", gotBody.Prompt)
	}
}

func TestComplete_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"errors":  []map[string]any{{"code": 7009, "message": "model overloaded"}},
		})
	}))
	defer srv.Close()

	p, _ := New("acct", "tok", WithBaseURL(srv.URL))
	_, err := p.Complete(context.Background(), llm.CompletionRequest{Prompt: "hi"})
	if err == nil {
		t.Fatal("expected error for unsuccessful envelope")
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Errorf("error = %v, want to contain API message", err)
	}
}

func TestComplete_EmptyRequest(t *testing.T) {
	t.Parallel()

	p, _ := New("acct", "tok")
	if _, err := p.Complete(context.Background(), llm.CompletionRequest{}); err == nil {
		t.Fatal("expected error for empty request")
	}
}
