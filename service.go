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


package snipvec

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/snipvec/ai"
	"github.com/poiesic/snipvec/ai/openai"
	"github.com/poiesic/snipvec/core"
	"github.com/poiesic/snipvec/orchestration"
	"github.com/poiesic/snipvec/search"
	"github.com/poiesic/snipvec/storage"
	"github.com/poiesic/snipvec/storage/badger"
)

// Service is the top-level entry point. It owns the storage backend, the
// embedding provider, and the orchestration engine, and exposes the
// operations the CLI builds on: submit, status, resume, and search.
type Service struct {
	backend   *badger.Backend
	documents storage.DocumentStore
	instances storage.InstanceRepository
	history   storage.HistoryRepository
	provider  ai.AIProvider
	engine    *orchestration.Engine
	searcher  *search.Searcher
	runPool   *ants.Pool
	logger    *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	aiConfig    *ai.Config
	provider    ai.AIProvider
	documents   storage.DocumentStore
	inMemory    bool
	chunkSize   int
	concurrency int
	maxAttempts int
	baseDelay   time.Duration
}

// WithAIConfig sets the embedding service configuration.
func WithAIConfig(config *ai.Config) ServiceOption {
	return func(o *serviceOptions) {
		o.aiConfig = config
	}
}

// WithProvider supplies a pre-built AI provider instead of the default
// OpenAI-compatible one. The service takes ownership and closes it.
func WithProvider(provider ai.AIProvider) ServiceOption {
	return func(o *serviceOptions) {
		o.provider = provider
	}
}

// WithDocumentStore supplies an external document store, such as a remote
// Qdrant collection, instead of the embedded one. The service takes
// ownership and closes it.
func WithDocumentStore(documents storage.DocumentStore) ServiceOption {
	return func(o *serviceOptions) {
		o.documents = documents
	}
}

// WithInMemory opens the storage backend in memory. Intended for tests.
func WithInMemory() ServiceOption {
	return func(o *serviceOptions) {
		o.inMemory = true
	}
}

// WithChunkSize sets the maximum chunk length in runes.
func WithChunkSize(size int) ServiceOption {
	return func(o *serviceOptions) {
		o.chunkSize = size
	}
}

// WithConcurrency sets the worker pool size for embedding activities.
func WithConcurrency(size int) ServiceOption {
	return func(o *serviceOptions) {
		o.concurrency = size
	}
}

// WithRetryPolicy sets the attempt budget and base backoff delay for
// side-effecting activities.
func WithRetryPolicy(maxAttempts int, baseDelay time.Duration) ServiceOption {
	return func(o *serviceOptions) {
		o.maxAttempts = maxAttempts
		o.baseDelay = baseDelay
	}
}

// NewService opens (or creates) the database at filePath and wires up the
// embedding pipeline.
func NewService(filePath string, opts ...ServiceOption) (*Service, error) {
	options := &serviceOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	documents := options.documents
	if documents == nil {
		documents = badger.NewDocumentStore(backend)
	}
	instances := badger.NewInstanceRepository(backend)
	history := badger.NewHistoryRepository(backend)

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	executorOpts := []orchestration.ExecutorOption{}
	if options.maxAttempts > 0 {
		executorOpts = append(executorOpts, orchestration.WithMaxAttempts(options.maxAttempts))
	}
	if options.baseDelay > 0 {
		executorOpts = append(executorOpts, orchestration.WithBaseDelay(options.baseDelay))
	}
	executor, err := orchestration.NewExecutor(provider.Embedder(), documents, executorOpts...)
	if err != nil {
		provider.Close()
		backend.Close()
		return nil, err
	}

	engineOpts := []orchestration.Option{}
	if options.chunkSize > 0 {
		engineOpts = append(engineOpts, orchestration.WithChunkSize(options.chunkSize))
	}
	if options.concurrency > 0 {
		engineOpts = append(engineOpts, orchestration.WithConcurrency(options.concurrency))
	}
	engine, err := orchestration.NewEngine(instances, history, executor, engineOpts...)
	if err != nil {
		provider.Close()
		backend.Close()
		return nil, err
	}

	searcher, err := search.NewSearcher(documents, provider.Embedder())
	if err != nil {
		engine.Release()
		provider.Close()
		backend.Close()
		return nil, err
	}

	// One runner per instance; embedding concurrency is bounded inside
	// the engine's own pool.
	runPool, err := ants.NewPool(4)
	if err != nil {
		engine.Release()
		provider.Close()
		backend.Close()
		return nil, err
	}

	return &Service{
		backend:   backend,
		documents: documents,
		instances: instances,
		history:   history,
		provider:  provider,
		engine:    engine,
		searcher:  searcher,
		runPool:   runPool,
		logger:    slog.Default(),
	}, nil
}

// Submit validates the request, durably schedules an orchestration
// instance for it, and starts driving the instance in the background.
// The instance ID is returned as soon as the instance is persisted;
// nothing is scheduled when validation fails.
func (s *Service) Submit(ctx context.Context, req *core.Request) (string, error) {
	if err := core.ValidateRequest(req); err != nil {
		return "", err
	}

	instance := core.NewInstance(uuid.NewString(), req, s.engine.ChunkSize())
	if err := s.instances.SaveInstance(ctx, instance); err != nil {
		return "", err
	}
	s.logger.Info("instance scheduled", "instance", instance.ID, "snippets", len(req.Snippets))

	submitErr := s.runPool.Submit(func() {
		if err := s.engine.Run(context.Background(), instance.ID); err != nil {
			s.logger.Error("error running instance", "instance", instance.ID, "err", err)
		}
	})
	if submitErr != nil {
		// The instance is already durable; Resume will pick it up.
		s.logger.Error("error starting instance run", "instance", instance.ID, "err", submitErr)
		return "", fmt.Errorf("start instance run: %w", submitErr)
	}
	return instance.ID, nil
}

// Run drives the instance synchronously until it finishes or ctx is
// cancelled. Safe to call on an interrupted instance.
func (s *Service) Run(ctx context.Context, instanceID string) error {
	return s.engine.Run(ctx, instanceID)
}

// Status returns the instance's latest durable snapshot.
func (s *Service) Status(ctx context.Context, instanceID string) (*core.Instance, error) {
	return s.instances.GetInstance(ctx, instanceID)
}

// Resume re-drives every non-terminal instance and returns their IDs.
// Completed steps are replayed from history, not re-executed.
func (s *Service) Resume(ctx context.Context) ([]string, error) {
	active, err := s.instances.ListActiveInstances(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(active))
	for _, instance := range active {
		instance := instance
		submitErr := s.runPool.Submit(func() {
			if err := s.engine.Run(context.Background(), instance.ID); err != nil {
				s.logger.Error("error resuming instance", "instance", instance.ID, "err", err)
			}
		})
		if submitErr != nil {
			// Not re-driven; it stays active for the next Resume.
			s.logger.Error("error starting resume run", "instance", instance.ID, "err", submitErr)
			continue
		}
		ids = append(ids, instance.ID)
	}
	return ids, nil
}

// Search finds persisted snippets similar to the query.
func (s *Service) Search(ctx context.Context, query string, maxHits int) ([]*core.DocumentMatch, error) {
	return s.searcher.FindSimilar(ctx, query, maxHits)
}

// DocumentStore exposes the underlying document store.
func (s *Service) DocumentStore() storage.DocumentStore {
	return s.documents
}

// Close stops the runner pool and releases every resource the service owns.
// In-flight instance runs are not waited for; interrupt them by closing
// and resume on the next start.
func (s *Service) Close() error {
	s.runPool.Release()
	s.engine.Release()

	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if err := s.documents.Close(); err != nil {
		s.logger.Error("error closing document store", "err", err)
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
