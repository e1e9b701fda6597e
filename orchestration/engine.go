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
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/snipvec/chunking"
	"github.com/poiesic/snipvec/core"
	"github.com/poiesic/snipvec/storage"
	"github.com/poiesic/snipvec/vector"
)

// Engine drives orchestration instances through the chunk, embed,
// aggregate, and persist steps. Snippets within an instance progress
// independently: one snippet's failure never blocks the others.
type Engine struct {
	instances storage.InstanceRepository
	history   storage.HistoryRepository
	executor  *Executor
	pool      *ants.Pool
	chunkSize int
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithConcurrency sets the worker pool size for embed and persist
// activities. Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithConcurrency(size int) Option {
	return func(e *Engine) error {
		if size < 1 {
			return ErrInvalidConcurrency
		}
		if e.pool != nil {
			e.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		e.pool = pool
		return nil
	}
}

// WithChunkSize sets the maximum chunk length in runes.
// Default is chunking.DefaultMaxLen.
func WithChunkSize(size int) Option {
	return func(e *Engine) error {
		if size < 1 {
			return ErrInvalidChunkSize
		}
		e.chunkSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates an orchestration engine.
func NewEngine(
	instances storage.InstanceRepository,
	history storage.HistoryRepository,
	executor *Executor,
	opts ...Option,
) (*Engine, error) {
	if instances == nil {
		return nil, ErrNilInstanceRepository
	}
	if history == nil {
		return nil, ErrNilHistoryRepository
	}
	if executor == nil {
		return nil, errors.New("executor cannot be nil")
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		instances: instances,
		history:   history,
		executor:  executor,
		pool:      pool,
		chunkSize: chunking.DefaultMaxLen,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(e); optErr != nil {
			e.Release()
			return nil, optErr
		}
	}
	return e, nil
}

// ChunkSize returns the chunk bound new instances are created with.
func (e *Engine) ChunkSize() int {
	return e.chunkSize
}

// Release releases the worker pool.
// The engine should not be used after calling Release.
func (e *Engine) Release() {
	if e.pool != nil {
		e.pool.Release()
	}
}

// Run drives the instance until every snippet reaches a terminal state,
// the context is cancelled, or recorded history is found inconsistent.
//
// Run is safe to call again on an interrupted instance: completed steps
// are replayed from history, so their side effects are not repeated.
// Cancellation leaves the instance Running so a later Run can resume it.
// Running a terminal instance is a no-op.
func (e *Engine) Run(ctx context.Context, instanceID string) error {
	instance, err := e.instances.GetInstance(ctx, instanceID)
	if err != nil {
		return err
	}
	if instance.Status.Terminal() {
		e.logger.Debug("instance already terminal", "instance", instanceID, "status", instance.Status)
		return nil
	}

	rec, err := newRecorder(ctx, e.history, instanceID)
	if err != nil {
		return err
	}
	if rec.recorded() > 0 {
		e.logger.Info("resuming instance from history", "instance", instanceID, "events", rec.recorded())
	}

	instance.Status = core.InstanceRunning
	if err := e.instances.SaveInstance(ctx, instance); err != nil {
		return err
	}

	r := &run{
		engine:   e,
		instance: instance,
		recorder: rec,
	}

	var wg sync.WaitGroup
	inconsistent := make([]error, len(instance.Snippets))
	for i := range instance.Snippets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inconsistent[i] = r.runSnippet(ctx, instance.Snippets[i])
		}(i)
	}
	wg.Wait()

	if ctx.Err() != nil {
		// Interrupted: persist what we have and leave the instance
		// Running so it can be resumed.
		if saveErr := e.instances.SaveInstance(context.WithoutCancel(ctx), instance); saveErr != nil {
			e.logger.Error("error saving interrupted instance", "instance", instanceID, "err", saveErr)
		}
		return ctx.Err()
	}

	for _, snippetErr := range inconsistent {
		if errors.Is(snippetErr, ErrReplayInconsistency) {
			instance.Status = core.InstanceFailed
			if saveErr := e.instances.SaveInstance(ctx, instance); saveErr != nil {
				return saveErr
			}
			return snippetErr
		}
	}

	instance.Status = core.InstanceCompleted
	if err := e.instances.SaveInstance(ctx, instance); err != nil {
		return err
	}
	e.logger.Info("instance completed", "instance", instanceID)
	return nil
}

// run holds the mutable state of one Run invocation. Snippet runners
// share the instance snapshot; progress writes go through the mutex.
type run struct {
	engine   *Engine
	instance *core.Instance
	recorder *recorder

	mu sync.Mutex
}

// setProgress applies fn to the snippet's progress entry and saves the
// instance snapshot so status queries observe the transition.
func (r *run) setProgress(ctx context.Context, name string, fn func(*core.SnippetProgress)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	progress := r.instance.ProgressFor(name)
	if progress == nil {
		return
	}
	fn(progress)

	if err := r.engine.instances.SaveInstance(ctx, r.instance); err != nil {
		r.engine.logger.Error("error saving progress", "instance", r.instance.ID, "snippet", name, "err", err)
	}
}

// runSnippet drives one snippet through its state machine. A non-nil
// return means replay inconsistency; activity failures are absorbed into
// the snippet's Failed state instead.
func (r *run) runSnippet(ctx context.Context, snippet core.Snippet) error {
	progress := r.instance.ProgressFor(snippet.Name)
	if progress != nil && progress.State.Terminal() {
		return nil
	}

	chunks, err := r.chunkStep(ctx, snippet)
	if err != nil {
		return r.failSnippet(ctx, snippet.Name, err)
	}

	vectors, failure, err := r.embedSteps(ctx, snippet, chunks)
	if err != nil {
		return r.failSnippet(ctx, snippet.Name, err)
	}
	if failure != nil {
		return r.failSnippet(ctx, snippet.Name, failure)
	}
	if ctx.Err() != nil {
		return nil
	}

	aggregated, err := vector.Mean(vectors)
	if err != nil {
		return r.failSnippet(ctx, snippet.Name, err)
	}
	aggregated = vector.Normalize(aggregated)
	r.setProgress(ctx, snippet.Name, func(p *core.SnippetProgress) {
		p.State = core.SnippetAggregated
	})

	if err := r.persistStep(ctx, snippet, aggregated); err != nil {
		return r.failSnippet(ctx, snippet.Name, err)
	}
	if ctx.Err() != nil {
		return nil
	}

	r.setProgress(ctx, snippet.Name, func(p *core.SnippetProgress) {
		p.State = core.SnippetDone
	})
	return nil
}

// failSnippet marks the snippet Failed unless the error is a replay
// inconsistency, which escalates past the snippet, or the run itself was
// interrupted. Interruption is detected on the run's context, not the
// error value: an embed that exhausts its per-attempt timeouts also
// carries DeadlineExceeded, and that is a real failure.
func (r *run) failSnippet(ctx context.Context, name string, err error) error {
	if errors.Is(err, ErrReplayInconsistency) {
		r.engine.logger.Error("replay inconsistency", "instance", r.instance.ID, "snippet", name, "err", err)
		return err
	}
	if ctx.Err() != nil {
		return nil
	}

	r.engine.logger.Warn("snippet failed", "instance", r.instance.ID, "snippet", name, "err", err)
	r.setProgress(ctx, name, func(p *core.SnippetProgress) {
		p.State = core.SnippetFailed
		p.Error = err.Error()
	})
	return nil
}

// chunkStep derives the snippet's chunks, recording the outcome on first
// execution and verifying it against history on replay.
func (r *run) chunkStep(ctx context.Context, snippet core.Snippet) ([]core.Chunk, error) {
	key := StepKey{Snippet: snippet.Name, Kind: core.StepChunk}
	inputsHash := core.IDFromContent(snippet.Code)
	chunks := chunking.Split(snippet.Name, snippet.Code, r.instance.ChunkSize)

	if event := r.recorder.lookup(key); event != nil {
		if event.InputsHash != inputsHash || event.ChunkCount != len(chunks) {
			return nil, fmt.Errorf("%w: step %s recorded hash=%d count=%d, replayed hash=%d count=%d",
				ErrReplayInconsistency, key, event.InputsHash, event.ChunkCount, inputsHash, len(chunks))
		}
	} else {
		err := r.recorder.record(ctx, &core.HistoryEvent{
			SnippetName: snippet.Name,
			Kind:        core.StepChunk,
			InputsHash:  inputsHash,
			ChunkCount:  len(chunks),
		})
		if err != nil {
			return nil, err
		}
	}

	r.setProgress(ctx, snippet.Name, func(p *core.SnippetProgress) {
		p.State = core.SnippetChunked
		p.Chunks = len(chunks)
	})
	return chunks, nil
}

type embedResult struct {
	ordinal int
	vector  []float32
	err     error
}

// embedSteps resolves every chunk's embedding, replaying recorded steps
// and fanning the rest out through the worker pool. A recorded step is
// never re-executed. Returns the vectors in chunk order, or the snippet
// failure if any chunk failed.
func (r *run) embedSteps(ctx context.Context, snippet core.Snippet, chunks []core.Chunk) ([][]float32, error, error) {
	r.setProgress(ctx, snippet.Name, func(p *core.SnippetProgress) {
		p.State = core.SnippetEmbedding
	})

	vectors := make([][]float32, len(chunks))
	var pending []core.Chunk

	for _, chunk := range chunks {
		key := StepKey{Snippet: snippet.Name, Kind: core.StepEmbed, Ordinal: chunk.Ordinal}
		inputsHash := core.IDFromContent(chunk.Text)

		event := r.recorder.lookup(key)
		if event == nil {
			pending = append(pending, chunk)
			continue
		}
		if event.InputsHash != inputsHash {
			return nil, nil, fmt.Errorf("%w: step %s recorded hash=%d, replayed hash=%d",
				ErrReplayInconsistency, key, event.InputsHash, inputsHash)
		}
		if event.Failed {
			return nil, fmt.Errorf("embed %s: %s", EmbedIdempotencyKey(snippet.Name, chunk.Ordinal), event.Error), nil
		}
		vectors[chunk.Ordinal] = event.Vector
	}

	if len(pending) == 0 {
		return vectors, nil, nil
	}

	results := make(chan embedResult, len(pending))
	for _, chunk := range pending {
		chunk := chunk
		submitErr := r.engine.pool.Submit(func() {
			vec, err := r.engine.executor.EmbedChunk(ctx, chunk)
			if err == nil {
				err = r.recorder.record(ctx, &core.HistoryEvent{
					SnippetName: snippet.Name,
					Kind:        core.StepEmbed,
					Ordinal:     chunk.Ordinal,
					InputsHash:  core.IDFromContent(chunk.Text),
					Vector:      vec,
				})
			} else if ctx.Err() == nil {
				// Permanent failures and exhausted retries are part of
				// the instance's deterministic outcome; record them so a
				// resume does not retry what already failed for good.
				recordErr := r.recorder.record(ctx, &core.HistoryEvent{
					SnippetName: snippet.Name,
					Kind:        core.StepEmbed,
					Ordinal:     chunk.Ordinal,
					InputsHash:  core.IDFromContent(chunk.Text),
					Failed:      true,
					Error:       err.Error(),
				})
				if recordErr != nil {
					err = recordErr
				}
			}
			results <- embedResult{ordinal: chunk.Ordinal, vector: vec, err: err}
		})
		if submitErr != nil {
			results <- embedResult{ordinal: chunk.Ordinal, err: submitErr}
		}
	}

	var failure error
	for range pending {
		result := <-results
		if result.err != nil {
			if failure == nil {
				failure = result.err
			}
			continue
		}
		vectors[result.ordinal] = result.vector
	}
	if failure != nil {
		return nil, failure, nil
	}
	return vectors, nil, nil
}

// persistStep upserts the snippet's document unless history already
// records the upsert as done.
func (r *run) persistStep(ctx context.Context, snippet core.Snippet, aggregated []float32) error {
	key := StepKey{Snippet: snippet.Name, Kind: core.StepPersist}
	inputsHash := core.IDFromContent(snippet.Code)

	if event := r.recorder.lookup(key); event != nil {
		if event.InputsHash != inputsHash {
			return fmt.Errorf("%w: step %s recorded hash=%d, replayed hash=%d",
				ErrReplayInconsistency, key, event.InputsHash, inputsHash)
		}
		if event.Failed {
			return fmt.Errorf("persist %s: %s", PersistIdempotencyKey(snippet.Name), event.Error)
		}
		return nil
	}

	r.setProgress(ctx, snippet.Name, func(p *core.SnippetProgress) {
		p.State = core.SnippetPersisting
	})

	doc := &core.Document{
		Name:      snippet.Name,
		ProjectID: r.instance.ProjectID,
		Code:      snippet.Code,
		Language:  snippet.Language,
		Vector:    aggregated,
	}
	err := r.engine.executor.PersistSnippet(ctx, doc)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		recordErr := r.recorder.record(ctx, &core.HistoryEvent{
			SnippetName: snippet.Name,
			Kind:        core.StepPersist,
			InputsHash:  inputsHash,
			Failed:      true,
			Error:       err.Error(),
		})
		if recordErr != nil {
			return recordErr
		}
		return err
	}

	return r.recorder.record(ctx, &core.HistoryEvent{
		SnippetName: snippet.Name,
		Kind:        core.StepPersist,
		InputsHash:  inputsHash,
	})
}
