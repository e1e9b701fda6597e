// Package ai defines the embedding service abstractions used by the
// orchestration engine and search. The embedding service is an external
// collaborator: it may fail transiently or permanently and offers no
// idempotency guarantees of its own. De-duplication of retried calls is
// the activity executor's responsibility, not the embedder's.
package ai
