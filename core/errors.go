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


package core

import "errors"

// Request validation errors. A request failing validation is rejected
// before any orchestration state is created.
var (
	// ErrInvalidRequest indicates a Request failed validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNilRequest indicates the request is missing entirely.
	ErrNilRequest = errors.New("request is nil")

	// ErrNoSnippets indicates the request contains no snippets.
	ErrNoSnippets = errors.New("request must contain at least one snippet")

	// ErrEmptySnippetName indicates a snippet is missing its name.
	ErrEmptySnippetName = errors.New("snippet name cannot be empty")

	// ErrEmptySnippetCode indicates a snippet is missing its code.
	ErrEmptySnippetCode = errors.New("snippet code cannot be empty")

	// ErrDuplicateSnippetName indicates two snippets share a name.
	// Snippet names are the persistence keys and must be unique per request.
	ErrDuplicateSnippetName = errors.New("duplicate snippet name")
)
