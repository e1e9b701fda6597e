package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a deterministic identifier derived from content.
// It is used for idempotency keys and replay inputs-hashes.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Snippet is a named piece of source code submitted for embedding.
// Snippets are immutable once a request has been accepted.
type Snippet struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Language string `json:"language,omitempty"`
}

// Request is a batch of snippets submitted under a project scope.
type Request struct {
	ProjectID string    `json:"project_id,omitempty"`
	Snippets  []Snippet `json:"snippets"`
}

// Chunk is a bounded-length contiguous slice of a snippet's code.
// Chunks are derived deterministically and embedded independently.
type Chunk struct {
	SnippetName string
	Ordinal     int
	Text        string
}

// Document is a snippet persisted together with its aggregated embedding.
// Documents are upserted by Name: writing the same name replaces the
// previous document, never duplicates it.
type Document struct {
	Name       string
	ProjectID  string
	Code       string
	Language   string
	Vector     []float32
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// DocumentMatch is a document returned from vector similarity search.
type DocumentMatch struct {
	Document *Document
	Score    float32
}

// InstanceStatus is the overall status of an orchestration instance.
type InstanceStatus int

const (
	// InstanceScheduled means the instance has been accepted but not started.
	InstanceScheduled InstanceStatus = iota + 1
	// InstanceRunning means the instance is being driven by the engine.
	InstanceRunning
	// InstanceCompleted means every snippet reached a terminal state.
	// Individual snippets may still have failed.
	InstanceCompleted
	// InstanceFailed means a request-level invariant was violated,
	// such as recorded history diverging from deterministic replay.
	InstanceFailed
)

// String returns the human-readable status name.
func (s InstanceStatus) String() string {
	switch s {
	case InstanceScheduled:
		return "Scheduled"
	case InstanceRunning:
		return "Running"
	case InstanceCompleted:
		return "Completed"
	case InstanceFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the status is final.
func (s InstanceStatus) Terminal() bool {
	return s == InstanceCompleted || s == InstanceFailed
}

// SnippetState is the per-snippet progress within an instance.
type SnippetState int

const (
	// SnippetPending means no work has started for the snippet.
	SnippetPending SnippetState = iota + 1
	// SnippetChunked means the snippet's code has been split into chunks.
	SnippetChunked
	// SnippetEmbedding means chunk embedding activities are in flight.
	SnippetEmbedding
	// SnippetAggregated means chunk vectors have been combined.
	SnippetAggregated
	// SnippetPersisting means the document upsert is in flight.
	SnippetPersisting
	// SnippetDone means the document upsert succeeded.
	SnippetDone
	// SnippetFailed means the snippet hit an unrecoverable error.
	// Other snippets in the instance are unaffected.
	SnippetFailed
)

// String returns the human-readable state name.
func (s SnippetState) String() string {
	switch s {
	case SnippetPending:
		return "pending"
	case SnippetChunked:
		return "chunked"
	case SnippetEmbedding:
		return "embedding"
	case SnippetAggregated:
		return "aggregated"
	case SnippetPersisting:
		return "persisting"
	case SnippetDone:
		return "done"
	case SnippetFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final for the snippet.
func (s SnippetState) Terminal() bool {
	return s == SnippetDone || s == SnippetFailed
}

// SnippetProgress tracks one snippet's position in the state machine.
type SnippetProgress struct {
	Name   string
	State  SnippetState
	Chunks int
	Error  string
}

// Instance is the durable record of one orchestration run over a request.
// It is mutated only by the orchestration engine and becomes immutable
// once Status is terminal.
type Instance struct {
	ID        string
	ProjectID string
	Snippets  []Snippet
	ChunkSize int
	Status    InstanceStatus
	Progress  []SnippetProgress
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewInstance creates a Scheduled instance for an accepted request.
// Progress entries are created in snippet order, all pending.
func NewInstance(id string, req *Request, chunkSize int) *Instance {
	progress := make([]SnippetProgress, len(req.Snippets))
	for i, sn := range req.Snippets {
		progress[i] = SnippetProgress{Name: sn.Name, State: SnippetPending}
	}
	now := time.Now().UTC()
	return &Instance{
		ID:        id,
		ProjectID: req.ProjectID,
		Snippets:  req.Snippets,
		ChunkSize: chunkSize,
		Status:    InstanceScheduled,
		Progress:  progress,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ProgressFor returns the progress entry for the named snippet,
// or nil if the snippet is not part of the instance.
func (in *Instance) ProgressFor(name string) *SnippetProgress {
	for i := range in.Progress {
		if in.Progress[i].Name == name {
			return &in.Progress[i]
		}
	}
	return nil
}

// StepKind identifies the type of an orchestration step in the replay history.
type StepKind int

const (
	// StepChunk records the deterministic chunking of a snippet.
	StepChunk StepKind = iota + 1
	// StepEmbed records one chunk-embedding activity result.
	StepEmbed
	// StepPersist records the document upsert for a snippet.
	StepPersist
)

// String returns the step kind name used in history keys.
func (k StepKind) String() string {
	switch k {
	case StepChunk:
		return "chunk"
	case StepEmbed:
		return "embed"
	case StepPersist:
		return "persist"
	default:
		return "unknown"
	}
}

// HistoryEvent is one completed step in an instance's append-only replay
// history. A step is identified by (SnippetName, Kind, Ordinal); the engine
// never re-executes a step whose event is already recorded.
type HistoryEvent struct {
	InstanceID  string
	SnippetName string
	Kind        StepKind
	Ordinal     int
	InputsHash  ID
	Vector      []float32 // embed result; empty for chunk and persist steps
	ChunkCount  int       // chunk step result; zero otherwise
	Failed      bool
	Error       string
	RecordedAt  time.Time
}
