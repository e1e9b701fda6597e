// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/poiesic/snipvec/ai"
	"github.com/poiesic/snipvec/core"
	"github.com/poiesic/snipvec/storage"
)

// Retry defaults for activity execution.
const (
	DefaultMaxAttempts    = 3
	DefaultBaseDelay      = 1 * time.Second
	DefaultAttemptTimeout = 30 * time.Second
)

// PermanentError marks an activity failure that retrying cannot fix,
// such as a rejected input. Wrap with Permanent to short-circuit retries.
type PermanentError struct {
	Err error
}

// Error returns the wrapped error's message.
func (e *PermanentError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so the retry loop stops immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err is marked permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// EmbedIdempotencyKey identifies one chunk-embedding effect. Re-executing
// an embed with the same key is harmless: it produces the same logical result.
func EmbedIdempotencyKey(snippetName string, ordinal int) string {
	return fmt.Sprintf("%s#%d", snippetName, ordinal)
}

// PersistIdempotencyKey identifies the document upsert for a snippet.
// The store keys documents by name, so a repeated upsert replaces rather
// than duplicates.
func PersistIdempotencyKey(snippetName string) string {
	return snippetName
}

// Executor runs the pipeline's side-effecting activities with a retry
// policy. Failures are transient unless wrapped with Permanent; transient
// failures are retried with exponential backoff and jitter, each attempt
// under its own timeout.
type Executor struct {
	embedder       ai.Embedder
	documents      storage.DocumentStore
	maxAttempts    int
	baseDelay      time.Duration
	attemptTimeout time.Duration
	logger         *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor) error

// WithMaxAttempts sets the attempt budget per activity.
func WithMaxAttempts(n int) ExecutorOption {
	return func(e *Executor) error {
		if n <= 0 {
			return ErrInvalidMaxAttempts
		}
		e.maxAttempts = n
		return nil
	}
}

// WithBaseDelay sets the first retry delay. The delay doubles per attempt.
func WithBaseDelay(d time.Duration) ExecutorOption {
	return func(e *Executor) error {
		e.baseDelay = d
		return nil
	}
}

// WithAttemptTimeout bounds each individual attempt.
func WithAttemptTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) error {
		e.attemptTimeout = d
		return nil
	}
}

// WithExecutorLogger sets the executor's logger.
func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) error {
		e.logger = logger
		return nil
	}
}

// NewExecutor creates an Executor over the given embedder and document store.
func NewExecutor(embedder ai.Embedder, documents storage.DocumentStore, opts ...ExecutorOption) (*Executor, error) {
	if embedder == nil {
		return nil, ErrNilEmbedder
	}
	if documents == nil {
		return nil, ErrNilDocumentStore
	}

	executor := &Executor{
		embedder:       embedder,
		documents:      documents,
		maxAttempts:    DefaultMaxAttempts,
		baseDelay:      DefaultBaseDelay,
		attemptTimeout: DefaultAttemptTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(executor); err != nil {
			return nil, err
		}
	}
	return executor, nil
}

// EmbedChunk embeds one chunk's text, retrying transient failures.
func (e *Executor) EmbedChunk(ctx context.Context, chunk core.Chunk) ([]float32, error) {
	key := EmbedIdempotencyKey(chunk.SnippetName, chunk.Ordinal)

	var result []float32
	err := e.retry(ctx, key, func(attemptCtx context.Context) error {
		var embedErr error
		result, embedErr = e.embedder.EmbedText(attemptCtx, chunk.Text)
		return embedErr
	})
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", key, err)
	}
	return result, nil
}

// PersistSnippet upserts the snippet's document, retrying transient failures.
func (e *Executor) PersistSnippet(ctx context.Context, doc *core.Document) error {
	key := PersistIdempotencyKey(doc.Name)

	err := e.retry(ctx, key, func(attemptCtx context.Context) error {
		return e.documents.Upsert(attemptCtx, doc)
	})
	if err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

// retry runs operation up to maxAttempts times with exponential backoff
// and jitter. Permanent errors and context cancellation stop the loop.
func (e *Executor) retry(ctx context.Context, key string, operation func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = e.attempt(ctx, operation)
		if lastErr == nil {
			if attempt > 1 {
				e.logger.Debug("activity succeeded after retry", "key", key, "attempt", attempt)
			}
			return nil
		}
		if IsPermanent(lastErr) {
			e.logger.Debug("activity failed permanently", "key", key, "attempt", attempt, "error", lastErr)
			return lastErr
		}

		e.logger.Debug("activity failed, will retry", "key", key, "attempt", attempt, "maxAttempts", e.maxAttempts, "error", lastErr)

		if attempt == e.maxAttempts {
			break
		}

		// Exponential backoff: baseDelay * 2^(attempt-1), plus up to 25% jitter.
		delay := e.baseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
		}
		if delay > 0 {
			delay += time.Duration(rand.Int63n(int64(delay)/4 + 1))
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func (e *Executor) attempt(ctx context.Context, operation func(ctx context.Context) error) error {
	attemptCtx := ctx
	if e.attemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, e.attemptTimeout)
		defer cancel()
	}
	return operation(attemptCtx)
}
