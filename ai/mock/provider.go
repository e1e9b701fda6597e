package mock

import "github.com/poiesic/snipvec/ai"

// MockProvider is a test double for ai.AIProvider.
type MockProvider struct {
	MockEmbedder *MockEmbedder
}

// NewMockProvider creates a provider backed by a deterministic mock embedder.
func NewMockProvider() *MockProvider {
	return &MockProvider{MockEmbedder: NewMockEmbedder()}
}

// Embedder returns the mock embedding service.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.MockEmbedder
}

// Close is a no-op.
func (p *MockProvider) Close() error {
	return nil
}
