package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/converselabs/converse/internal/domain"
)

// MockClient is a local stand-in for the completion provider, used in
// local mode and in tests. It keeps no provider-side state by default;
// set HandleFn to exercise handle reuse.
type MockClient struct {
	mu sync.Mutex

	// ReplyFn overrides the canned reply. Nil means echo.
	ReplyFn func(req domain.CompletionRequest) (string, error)

	// HandleFn, when set, produces the handle returned with each result.
	HandleFn func(req domain.CompletionRequest) domain.ConversationHandle

	calls []domain.CompletionRequest
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Complete(_ context.Context, req domain.CompletionRequest) (*domain.CompletionResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if m.ReplyFn != nil {
		text, err := m.ReplyFn(req)
		if err != nil {
			return nil, err
		}
		return m.result(text, req), nil
	}

	return m.result(fmt.Sprintf("I hear you. You said %q. Tell me more.", req.Message), req), nil
}

func (m *MockClient) result(text string, req domain.CompletionRequest) *domain.CompletionResult {
	res := &domain.CompletionResult{Text: text}
	if m.HandleFn != nil {
		res.Handle = m.HandleFn(req)
	}
	return res
}

// Calls returns a copy of every request seen so far.
func (m *MockClient) Calls() []domain.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.CompletionRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// LastCall returns the most recent request, or false if none were made.
func (m *MockClient) LastCall() (domain.CompletionRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.calls) == 0 {
		return domain.CompletionRequest{}, false
	}
	return m.calls[len(m.calls)-1], true
}
