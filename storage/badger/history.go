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
	"encoding/binary"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/snipvec/core"
	"github.com/poiesic/snipvec/storage"
)

// HistoryRepository implements storage.HistoryRepository for BadgerDB.
// Events are written under per-instance sequence numbers so iteration
// returns them in append order. Events are never overwritten; the engine
// appends only.
type HistoryRepository struct {
	backend *Backend

	// Every append read-modify-writes the instance's sequence counter, so
	// concurrent appends must be serialized or badger's optimistic
	// transactions abort with ErrConflict.
	mu sync.Mutex
}

var _ storage.HistoryRepository = (*HistoryRepository)(nil)

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(backend *Backend) *HistoryRepository {
	return &HistoryRepository{
		backend: backend,
	}
}

// Close is a no-op; the shared backend owns the database handle.
func (r *HistoryRepository) Close() error {
	return nil
}

// AppendEvent appends an event to the instance's history.
// The sequence counter and the event are written in one transaction so a
// crash cannot leave a gap or a duplicate sequence number.
func (r *HistoryRepository) AppendEvent(ctx context.Context, event *core.HistoryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.backend.WithTx(func(tx *badger.Txn) error {
		event.RecordedAt = time.Now().UTC()

		seq, err := r.nextSeq(tx, event.InstanceID)
		if err != nil {
			return err
		}

		key := makeHistoryKey(event.InstanceID, seq)
		if err := tx.Set(key, storage.MarshalHistoryEvent(event)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ListEvents returns all events for an instance in append order.
func (r *HistoryRepository) ListEvents(ctx context.Context, instanceID string) ([]*core.HistoryEvent, error) {
	var results []*core.HistoryEvent

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeHistoryIterPrefix(instanceID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var event *core.HistoryEvent
			err := iter.Item().Value(func(val []byte) error {
				var err error
				event, err = storage.UnmarshalHistoryEvent(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, event)
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return results, nil
}

// nextSeq reads and advances the instance's event sequence within tx.
func (r *HistoryRepository) nextSeq(tx *badger.Txn, instanceID string) (uint64, error) {
	seqKey := makeHistorySeqKey(instanceID)

	var seq uint64
	item, err := tx.Get(seqKey)
	if err != nil {
		if err != badger.ErrKeyNotFound {
			return 0, err
		}
	} else {
		err = item.Value(func(val []byte) error {
			seq = binary.BigEndian.Uint64(val)
			return nil
		})
		if err != nil {
			return 0, err
		}
	}

	next := make([]byte, 8)
	binary.BigEndian.PutUint64(next, seq+1)
	if err := tx.Set(seqKey, next); err != nil {
		return 0, err
	}
	return seq, nil
}
