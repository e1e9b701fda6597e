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

import "errors"

var (
	// ErrReplayInconsistency indicates recorded history diverged from the
	// deterministic re-derivation of a step's inputs. The instance is
	// marked Failed rather than risk mixing results from different inputs.
	ErrReplayInconsistency = errors.New("recorded history does not match replayed inputs")

	// ErrNilEmbedder indicates an executor was constructed without an embedder.
	ErrNilEmbedder = errors.New("embedder cannot be nil")

	// ErrNilDocumentStore indicates an executor was constructed without a store.
	ErrNilDocumentStore = errors.New("document store cannot be nil")

	// ErrNilInstanceRepository indicates an engine was constructed without
	// an instance repository.
	ErrNilInstanceRepository = errors.New("instance repository cannot be nil")

	// ErrNilHistoryRepository indicates an engine was constructed without
	// a history repository.
	ErrNilHistoryRepository = errors.New("history repository cannot be nil")

	// ErrInvalidMaxAttempts indicates a retry policy with zero or negative attempts.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than zero")

	// ErrInvalidConcurrency indicates a worker pool size of zero or less.
	ErrInvalidConcurrency = errors.New("concurrency must be greater than zero")

	// ErrInvalidChunkSize indicates a chunk size of zero or less.
	ErrInvalidChunkSize = errors.New("chunk size must be greater than zero")
)
