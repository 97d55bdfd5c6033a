package provider

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider returns scripted responses for testing and offline runs.
// Responses are consumed in order; when the script is exhausted the provider
// cycles back to the beginning.
type MockProvider struct {
	mu        sync.Mutex
	name      string
	responses []string
	calls     int
	prompts   []string
	err       error
}

// NewMockProvider creates a mock provider with the given response script.
func NewMockProvider(responses ...string) *MockProvider {
	return &MockProvider{name: "mock", responses: responses}
}

// Name returns the provider identifier.
func (p *MockProvider) Name() string { return p.name }

// DisplayName returns the human-friendly name.
func (p *MockProvider) DisplayName() string { return "Mock (Simulated)" }

// Models returns available models.
func (p *MockProvider) Models() []string { return []string{"mock-v1"} }

// DefaultModel returns the default model.
func (p *MockProvider) DefaultModel() string { return "mock-v1" }

// Available always returns true for the mock provider.
func (p *MockProvider) Available() bool { return true }

// Fail makes every subsequent call return err.
func (p *MockProvider) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Generate returns the next scripted response.
func (p *MockProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.prompts = append(p.prompts, prompt)
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	if len(p.responses) == 0 {
		return fmt.Sprintf("Mock response %d", p.calls), nil
	}
	return p.responses[(p.calls-1)%len(p.responses)], nil
}

// GenerateWithModel returns the next scripted response.
func (p *MockProvider) GenerateWithModel(ctx context.Context, prompt, model string) (string, error) {
	return p.Generate(ctx, prompt)
}

// Calls returns the number of invocations so far.
func (p *MockProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Prompts returns all prompts seen so far.
func (p *MockProvider) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.prompts...)
}
