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


package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/snipvec/core"
	"github.com/poiesic/snipvec/storage"
)

// InstanceRepository implements storage.InstanceRepository for BadgerDB.
type InstanceRepository struct {
	backend *Backend
}

var _ storage.InstanceRepository = (*InstanceRepository)(nil)

// NewInstanceRepository creates a new InstanceRepository.
func NewInstanceRepository(backend *Backend) *InstanceRepository {
	return &InstanceRepository{
		backend: backend,
	}
}

// Close is a no-op; the shared backend owns the database handle.
func (r *InstanceRepository) Close() error {
	return nil
}

// SaveInstance writes the instance snapshot, replacing any previous one.
func (r *InstanceRepository) SaveInstance(ctx context.Context, instance *core.Instance) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		instance.UpdatedAt = time.Now().UTC()
		key := makeInstanceKey(instance.ID)
		if err := tx.Set(key, storage.MarshalInstance(instance)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetInstance retrieves an instance by ID.
func (r *InstanceRepository) GetInstance(ctx context.Context, id string) (*core.Instance, error) {
	var result *core.Instance
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeInstanceKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = storage.UnmarshalInstance(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}

// ListActiveInstances returns all instances whose status is not terminal,
// ordered by creation time.
func (r *InstanceRepository) ListActiveInstances(ctx context.Context) ([]*core.Instance, error) {
	var results []*core.Instance

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(instancePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var instance *core.Instance
			err := iter.Item().Value(func(val []byte) error {
				var err error
				instance, err = storage.UnmarshalInstance(val)
				return err
			})
			if err != nil {
				return err
			}
			if instance == nil || instance.Status.Terminal() {
				continue
			}
			results = append(results, instance)
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.Instance) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return results, nil
}
