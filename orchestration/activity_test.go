package orchestration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/snipvec/ai/mock"
	"github.com/poiesic/snipvec/core"
	badgerstore "github.com/poiesic/snipvec/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T, embedder *mock.MockEmbedder, opts ...ExecutorOption) *Executor {
	t.Helper()

	docs, _, _, backend, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	defaults := []ExecutorOption{WithBaseDelay(time.Millisecond)}
	executor, err := NewExecutor(embedder, docs, append(defaults, opts...)...)
	require.NoError(t, err)
	return executor
}

func TestEmbedChunk_Success(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	executor := newTestExecutor(t, embedder)

	vec, err := executor.EmbedChunk(context.Background(), core.Chunk{SnippetName: "f", Ordinal: 0, Text: "def f(): pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, vec)
	assert.Equal(t, 1, embedder.CallCount(), "should embed on first try")
}

func TestEmbedChunk_RetriesTransientFailure(t *testing.T) {
	attempts := 0
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("temporary error")
		}
		return []float32{1, 0}, nil
	}
	executor := newTestExecutor(t, embedder, WithMaxAttempts(5))

	vec, err := executor.EmbedChunk(context.Background(), core.Chunk{SnippetName: "f", Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestEmbedChunk_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		attempts++
		return nil, errors.New("persistent error")
	}
	executor := newTestExecutor(t, embedder, WithMaxAttempts(3))

	_, err := executor.EmbedChunk(context.Background(), core.Chunk{SnippetName: "f", Text: "x"})
	require.Error(t, err)
	assert.Equal(t, 3, attempts, "should attempt exactly maxAttempts times")
}

func TestEmbedChunk_PermanentErrorStopsRetrying(t *testing.T) {
	attempts := 0
	rejected := errors.New("input rejected")
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		attempts++
		return nil, Permanent(rejected)
	}
	executor := newTestExecutor(t, embedder, WithMaxAttempts(5))

	_, err := executor.EmbedChunk(context.Background(), core.Chunk{SnippetName: "f", Text: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, rejected)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, attempts, "permanent error should not be retried")
}

func TestEmbedChunk_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return nil, errors.New("error")
	}
	executor := newTestExecutor(t, embedder, WithMaxAttempts(10))

	_, err := executor.EmbedChunk(ctx, core.Chunk{SnippetName: "f", Text: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, attempts, 2, "should stop when context is canceled")
}

func TestPersistSnippet_Idempotent(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	docs, _, _, backend, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	executor, err := NewExecutor(embedder, docs, WithBaseDelay(time.Millisecond))
	require.NoError(t, err)

	doc := &core.Document{Name: "f", Code: "def f(): pass", Vector: []float32{1, 0}}
	require.NoError(t, executor.PersistSnippet(context.Background(), doc))
	require.NoError(t, executor.PersistSnippet(context.Background(), doc))

	matches, err := docs.FindSimilar(context.Background(), []float32{1, 0}, 0.5, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1, "repeated persist must leave exactly one document")
}

func TestNewExecutor_Validation(t *testing.T) {
	docs, _, _, backend, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	_, err = NewExecutor(nil, docs)
	assert.ErrorIs(t, err, ErrNilEmbedder)

	_, err = NewExecutor(mock.NewMockEmbedder(), nil)
	assert.ErrorIs(t, err, ErrNilDocumentStore)

	_, err = NewExecutor(mock.NewMockEmbedder(), docs, WithMaxAttempts(0))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestIdempotencyKeys(t *testing.T) {
	assert.Equal(t, "f#0", EmbedIdempotencyKey("f", 0))
	assert.Equal(t, "f#3", EmbedIdempotencyKey("f", 3))
	assert.Equal(t, "f", PersistIdempotencyKey("f"))
	assert.Equal(t, "f/embed/2", StepKey{Snippet: "f", Kind: core.StepEmbed, Ordinal: 2}.String())
}
