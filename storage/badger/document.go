package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/snipvec/core"
	"github.com/poiesic/snipvec/storage"
	"github.com/poiesic/snipvec/vector"
)

// DocumentStore implements storage.DocumentStore for BadgerDB.
// Documents are keyed by name, so repeated upserts of the same name
// replace the stored document in place.
type DocumentStore struct {
	backend *Backend
}

var _ storage.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(backend *Backend) *DocumentStore {
	return &DocumentStore{
		backend: backend,
	}
}

// Close is a no-op; the shared backend owns the database handle.
func (s *DocumentStore) Close() error {
	return nil
}

// Upsert inserts or replaces the document stored under doc.Name.
// The original InsertedAt is preserved when replacing.
func (s *DocumentStore) Upsert(ctx context.Context, doc *core.Document) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(doc.Name)

		now := time.Now().UTC()
		doc.UpdatedAt = now
		doc.InsertedAt = now

		old, err := s.readDocument(tx, key)
		if err != nil {
			return err
		}
		if old != nil {
			doc.InsertedAt = old.InsertedAt
		}

		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetDocument retrieves a document by name.
func (s *DocumentStore) GetDocument(ctx context.Context, name string) (*core.Document, error) {
	var result *core.Document
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = s.readDocument(tx, makeDocumentKey(name))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// FindSimilar finds documents whose vectors are similar to the given vector.
// Similarity is the dot product, which equals cosine similarity for the
// unit-normalized vectors the pipeline stores.
func (s *DocumentStore) FindSimilar(ctx context.Context, query []float32, minSimilarity float32, limit int) ([]*core.DocumentMatch, error) {
	var results []*core.DocumentMatch

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var doc *core.Document
			err := iter.Item().Value(func(val []byte) error {
				var err error
				doc, err = storage.UnmarshalDocument(val)
				return err
			})
			if err != nil {
				return err
			}
			if doc == nil || len(doc.Vector) == 0 {
				continue
			}

			similarity := vector.DotProduct(query, doc.Vector)
			if similarity >= minSimilarity {
				results = append(results, &core.DocumentMatch{
					Document: doc,
					Score:    similarity,
				})
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortFunc(results, func(a, b *core.DocumentMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *DocumentStore) readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	return doc, err
}
