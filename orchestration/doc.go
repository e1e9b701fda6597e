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


// Package orchestration drives the durable embedding pipeline.
//
// An instance fans a request's snippets out in parallel. Each snippet is
// chunked deterministically, its chunks are embedded through a bounded
// worker pool, the chunk vectors are aggregated into one document vector,
// and the document is upserted idempotently. Every completed step is
// recorded in an append-only history before the engine acts on its result,
// so a crashed or cancelled run can be re-driven from the top: recorded
// steps are replayed from history instead of re-executed, and only the
// remaining work touches the embedder or the document store again.
package orchestration
