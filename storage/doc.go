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


// Package storage defines the persistence interfaces for snippet documents,
// orchestration instances, and replay history, plus the binary serialization
// helpers shared by backends.
//
// The document store is an external collaborator from the orchestration
// engine's point of view: the only contract it must honor is idempotent
// upsert by document name. The instance and history repositories are the
// engine's own durable state.
package storage
