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

import "fmt"

// ValidateRequest validates a Request according to domain rules.
// It is a pure predicate with no side effects and must be called before
// any orchestration state is allocated. Rules are applied in order and
// the first violation wins.
//
// Validation rules:
//   - Request must be present
//   - Request must contain at least one snippet
//   - Each snippet must have a non-empty name and non-empty code
//   - Snippet names must be unique within the request
func ValidateRequest(req *Request) error {
	if req == nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, ErrNilRequest)
	}

	if len(req.Snippets) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, ErrNoSnippets)
	}

	seen := make(map[string]bool, len(req.Snippets))
	for i, sn := range req.Snippets {
		if sn.Name == "" {
			return fmt.Errorf("%w: snippet %d: %w", ErrInvalidRequest, i, ErrEmptySnippetName)
		}
		if sn.Code == "" {
			return fmt.Errorf("%w: snippet %q: %w", ErrInvalidRequest, sn.Name, ErrEmptySnippetCode)
		}
		if seen[sn.Name] {
			return fmt.Errorf("%w: snippet %q: %w", ErrInvalidRequest, sn.Name, ErrDuplicateSnippetName)
		}
		seen[sn.Name] = true
	}

	return nil
}
