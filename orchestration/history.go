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


package orchestration

import (
	"context"
	"fmt"
	"sync"

	"github.com/poiesic/snipvec/core"
	"github.com/poiesic/snipvec/storage"
)

// StepKey identifies one orchestration step within an instance.
// Snippet runners operate on disjoint key spaces, so concurrent recording
// never races on the same step.
type StepKey struct {
	Snippet string
	Kind    core.StepKind
	Ordinal int
}

// String renders the key in history form: snippet/kind/ordinal.
func (k StepKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Snippet, k.Kind, k.Ordinal)
}

func keyFor(event *core.HistoryEvent) StepKey {
	return StepKey{Snippet: event.SnippetName, Kind: event.Kind, Ordinal: event.Ordinal}
}

// recorder is one instance's view of its replay history. On construction
// it loads all recorded events; during the run it appends new events
// durably before handing their results back to the engine, so a crash
// after record never repeats the step's side effect on resume.
type recorder struct {
	instanceID string
	history    storage.HistoryRepository

	mu     sync.Mutex
	events map[StepKey]*core.HistoryEvent
}

func newRecorder(ctx context.Context, history storage.HistoryRepository, instanceID string) (*recorder, error) {
	events, err := history.ListEvents(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", instanceID, err)
	}

	byKey := make(map[StepKey]*core.HistoryEvent, len(events))
	for _, event := range events {
		// Last write wins; the engine records each key at most once, so
		// duplicates only occur if an append raced a crash.
		byKey[keyFor(event)] = event
	}

	return &recorder{
		instanceID: instanceID,
		history:    history,
		events:     byKey,
	}, nil
}

// lookup returns the recorded event for the key, or nil if the step has
// not completed yet.
func (r *recorder) lookup(key StepKey) *core.HistoryEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[key]
}

// record appends the event durably, then caches it. The caller must not
// act on the step's result until record returns.
func (r *recorder) record(ctx context.Context, event *core.HistoryEvent) error {
	event.InstanceID = r.instanceID
	if err := r.history.AppendEvent(ctx, event); err != nil {
		return fmt.Errorf("record %s: %w", keyFor(event), err)
	}

	r.mu.Lock()
	r.events[keyFor(event)] = event
	r.mu.Unlock()
	return nil
}

// recorded reports how many events the recorder has seen.
func (r *recorder) recorded() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
