// Package workersai provides a completion provider backed by the Cloudflare
// Workers AI REST API. It implements the llm.Provider interface.
//
// Requests go to POST
// /client/v4/accounts/{account_id}/ai/run/{model} with a JSON body of
// {"prompt": ...} or {"messages": [...]}; the response wraps the generated
// text in a standard Cloudflare API envelope.
package workersai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/voxmeet/voxmeet/pkg/provider/llm"
)

const (
	defaultBaseURL = "https://api.cloudflare.com"
	defaultModel   = "@cf/meta/llama-3.1-8b-instruct"
	defaultTimeout = 30 * time.Second
)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithModel sets the Workers AI model identifier
// (e.g., "@cf/meta/llama-3.1-8b-instruct").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL overrides the Cloudflare API base URL. Used in tests.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// Provider implements llm.Provider against the Workers AI run endpoint.
type Provider struct {
	accountID  string
	apiToken   string
	model      string
	baseURL    string
	httpClient *http.Client
}

// Compile-time interface assertion.
var _ llm.Provider = (*Provider)(nil)

// New creates a Workers AI Provider. accountID and apiToken must be non-empty.
func New(accountID, apiToken string, opts ...Option) (*Provider, error) {
	if accountID == "" {
		return nil, errors.New("workersai: accountID must not be empty")
	}
	if apiToken == "" {
		return nil, errors.New("workersai: apiToken must not be empty")
	}
	p := &Provider{
		accountID:  accountID,
		apiToken:   apiToken,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// runRequest is the JSON body for the run endpoint.
type runRequest struct {
	Prompt      string        `json:"prompt,omitempty"`
	Messages    []llm.Message `json:"messages,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// runResponse is the Cloudflare API envelope around the model output.
type runResponse struct {
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Result struct {
		Response string `json:"response"`
	} `json:"result"`
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if req.Prompt == "" && len(req.Messages) == 0 {
		return nil, errors.New("workersai: request has neither prompt nor messages")
	}

	body, err := json.Marshal(runRequest{
		Prompt:      req.Prompt,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("workersai: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/client/v4/accounts/%s/ai/run/%s",
		p.baseURL, url.PathEscape(p.accountID), url.PathEscape(p.model))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("workersai: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("workersai: run %s: %w", p.model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("workersai: run %s: unexpected status %d", p.model, resp.StatusCode)
	}

	var rr runResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("workersai: decode response: %w", err)
	}
	if !rr.Success {
		msg := "unknown error"
		if len(rr.Errors) > 0 {
			msg = rr.Errors[0].Message
		}
		return nil, fmt.Errorf("workersai: run %s failed: %s", p.model, msg)
	}

	return &llm.CompletionResponse{
		Content: rr.Result.Response,
		Model:   p.model,
	}, nil
}
