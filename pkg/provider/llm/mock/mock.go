// Package mock provides an in-memory mock implementation of [llm.Provider]
// for use in unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/voxmeet/voxmeet/pkg/provider/llm"
)

// Compile-time interface assertion.
var _ llm.Provider = (*Provider)(nil)

// Provider is a mock [llm.Provider]. Set CompleteResult or CompleteError
// before use; inspect CompleteCalls after.
type Provider struct {
	mu sync.Mutex

	// CompleteResult is returned by Complete when CompleteError is nil.
	// Defaults to an empty response if left nil.
	CompleteResult *llm.CompletionResponse

	// CompleteError is returned by Complete when set.
	CompleteError error

	// CompleteFunc, when set, overrides CompleteResult/CompleteError
	// entirely. Used for per-call behavior.
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)

	// CompleteCalls records every request passed to Complete.
	CompleteCalls []llm.CompletionRequest
}

// Complete implements [llm.Provider].
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.CompleteCalls = append(p.CompleteCalls, req)
	fn := p.CompleteFunc
	result := p.CompleteResult
	err := p.CompleteError
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		return &llm.CompletionResponse{}, nil
	}
	return result, nil
}

// CallCount returns the number of Complete invocations so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.CompleteCalls)
}
