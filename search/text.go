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


package search

import "strings"

// Words too common to signal a verbatim overlap between a query and a
// snippet's name or body.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
}

const punctuationCutset = ".,!?;:'\"-()[]{}"

// tokenizeAndFilter lowercases the text, strips surrounding punctuation,
// and drops stop words. Identifiers keep their underscores: retry_backoff
// stays a single token.
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, punctuationCutset))
		if cleaned == "" || stopWords[cleaned] {
			continue
		}
		filtered = append(filtered, cleaned)
	}

	return filtered
}

// containsAllQueryWords reports whether every query word appears in the
// snippet text. Stop-word-only queries never match.
func containsAllQueryWords(snippetText, query string) bool {
	queryWords := tokenizeAndFilter(query)
	if len(queryWords) == 0 {
		return false
	}

	snippetWords := make(map[string]bool)
	for _, word := range tokenizeAndFilter(snippetText) {
		snippetWords[word] = true
	}

	for _, word := range queryWords {
		if !snippetWords[word] {
			return false
		}
	}
	return true
}
