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

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/snipvec/ai"
	"github.com/poiesic/snipvec/core"
	"github.com/poiesic/snipvec/storage"
)

// MinSimilarity is the cosine similarity floor for semantic matches.
const MinSimilarity = 0.60

// verbatimBoost is added when every query word appears in the document.
const verbatimBoost = 0.3

// Searcher provides semantic search over persisted snippet documents.
type Searcher struct {
	documents storage.DocumentStore
	embedder  ai.Embedder
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(documents storage.DocumentStore, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if documents == nil {
		return nil, ErrDocumentStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		documents: documents,
		embedder:  embedder,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// FindSimilar searches for snippet documents similar to the query.
// The query is embedded with the same model the pipeline used, matched
// against stored vectors, and re-ranked with a verbatim boost when the
// document's code or name contains every query word. Returns up to
// maxHits results, ranked by relevance score.
func (s *Searcher) FindSimilar(ctx context.Context, query string, maxHits int) ([]*core.DocumentMatch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	matches, err := s.documents.FindSimilar(ctx, embedding, MinSimilarity, maxHits)
	if err != nil {
		s.logger.Error("error querying for similar documents", "err", err)
		return nil, err
	}

	results := make([]*core.DocumentMatch, 0, len(matches))
	for _, match := range matches {
		score := match.Score
		if containsAllQueryWords(match.Document.Name+" "+match.Document.Code, query) {
			score += verbatimBoost
		}
		results = append(results, &core.DocumentMatch{
			Document: match.Document,
			Score:    score,
		})
	}

	// Sort by score descending
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}

	return results, nil
}
