package openai

import (
	"testing"

	"github.com/voxmeet/voxmeet/pkg/provider/llm"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	if _, err := New("", "gpt-4o-mini"); err == nil {
		t.Error("New with empty api key succeeded, want error")
	}
	if _, err := New("sk-test", ""); err == nil {
		t.Error("New with empty model succeeded, want error")
	}
	if _, err := New("sk-test", "gpt-4o-mini"); err != nil {
		t.Errorf("New: %v", err)
	}
}

func TestBuildParamsPrompt(t *testing.T) {
	t.Parallel()

	p, err := New("sk-test", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	params, err := p.buildParams(llm.CompletionRequest{Prompt: "hello"})
	if err != nil {
		t.Fatalf("buildParams: %v", err)
	}
	if got := string(params.Model); got != "gpt-4o-mini" {
		t.Errorf("model = %q, want gpt-4o-mini", got)
	}
	if len(params.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(params.Messages))
	}
}

func TestBuildParamsMessagesTakePrecedence(t *testing.T) {
	t.Parallel()

	p, err := New("sk-test", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	params, err := p.buildParams(llm.CompletionRequest{
		Prompt: "ignored",
		Messages: []llm.Message{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "hi"},
		},
	})
	if err != nil {
		t.Fatalf("buildParams: %v", err)
	}
	if len(params.Messages) != 2 {
		t.Errorf("messages = %d, want 2", len(params.Messages))
	}
}

func TestBuildParamsRejectsEmptyRequest(t *testing.T) {
	t.Parallel()

	p, err := New("sk-test", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.buildParams(llm.CompletionRequest{}); err == nil {
		t.Error("buildParams with empty request succeeded, want error")
	}
}

func TestBuildParamsRejectsUnknownRole(t *testing.T) {
	t.Parallel()

	p, err := New("sk-test", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: "tool", Content: "x"}},
	})
	if err == nil {
		t.Error("buildParams with unknown role succeeded, want error")
	}
}
