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


package chunking

import "github.com/poiesic/snipvec/core"

// DefaultMaxLen is the default chunk bound in runes.
const DefaultMaxLen = 800

// Split splits a snippet's code into consecutive, non-overlapping chunks
// of at most maxLen runes, preserving original order. The final chunk may
// be shorter. Empty text yields zero chunks.
//
// Split is deterministic: identical input always yields identical chunk
// boundaries. The orchestration engine recomputes chunks during replay and
// relies on obtaining bit-identical results.
func Split(snippetName, text string, maxLen int) []core.Chunk {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	if text == "" {
		return nil
	}

	runes := []rune(text)
	chunks := make([]core.Chunk, 0, (len(runes)+maxLen-1)/maxLen)
	for start, ordinal := 0, 0; start < len(runes); start, ordinal = start+maxLen, ordinal+1 {
		end := start + maxLen
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, core.Chunk{
			SnippetName: snippetName,
			Ordinal:     ordinal,
			Text:        string(runes[start:end]),
		})
	}
	return chunks
}
