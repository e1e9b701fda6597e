package storage

import (
	"context"

	"github.com/poiesic/snipvec/core"
)

// DocumentStore is the persistence boundary for snippet documents.
// Upsert must be idempotent: calling it more than once with the same
// document name and equivalent content leaves exactly one document under
// that name. Implementations must be safe for concurrent use.
type DocumentStore interface {
	// Upsert inserts or replaces the document stored under doc.Name.
	Upsert(ctx context.Context, doc *core.Document) error

	// GetDocument retrieves a document by name.
	// Returns ErrNotFound if no document exists under the name.
	GetDocument(ctx context.Context, name string) (*core.Document, error)

	// FindSimilar finds documents whose vectors are similar to the given vector.
	// Returns documents with similarity >= minSimilarity, up to limit results,
	// ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.DocumentMatch, error)

	// Close closes the store and releases resources.
	Close() error
}

// InstanceRepository persists orchestration instance snapshots.
// Instances are mutated only by the orchestration engine; status queries
// read the latest snapshot.
type InstanceRepository interface {
	// SaveInstance writes the instance snapshot, replacing any previous one.
	SaveInstance(ctx context.Context, instance *core.Instance) error

	// GetInstance retrieves an instance by ID.
	// Returns ErrNotFound if the instance doesn't exist.
	GetInstance(ctx context.Context, id string) (*core.Instance, error)

	// ListActiveInstances returns all instances whose status is not terminal,
	// ordered by creation time. Used to resume interrupted runs.
	ListActiveInstances(ctx context.Context) ([]*core.Instance, error)

	// Close closes the repository and releases resources.
	Close() error
}

// HistoryRepository persists the append-only replay history of orchestration
// instances. Events are never updated or deleted while an instance is live;
// the engine reconstructs its position from them after a crash.
type HistoryRepository interface {
	// AppendEvent appends an event to the instance's history.
	AppendEvent(ctx context.Context, event *core.HistoryEvent) error

	// ListEvents returns all events for an instance in append order.
	// Returns an empty slice for an unknown instance.
	ListEvents(ctx context.Context, instanceID string) ([]*core.HistoryEvent, error)

	// Close closes the repository and releases resources.
	Close() error
}
