package badger

import (
	"context"
	"sync"
	"testing"

	"github.com/poiesic/snipvec/core"
)

func TestHistoryAppendAndList(t *testing.T) {
	_, _, history, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()

	events := []*core.HistoryEvent{
		{InstanceID: "inst-1", SnippetName: "f", Kind: core.StepChunk, InputsHash: 1, ChunkCount: 3},
		{InstanceID: "inst-1", SnippetName: "f", Kind: core.StepEmbed, Ordinal: 0, InputsHash: 2, Vector: []float32{0.1}},
		{InstanceID: "inst-1", SnippetName: "f", Kind: core.StepEmbed, Ordinal: 1, InputsHash: 3, Vector: []float32{0.2}},
		{InstanceID: "inst-1", SnippetName: "f", Kind: core.StepPersist, InputsHash: 4},
	}
	for _, event := range events {
		if err := history.AppendEvent(ctx, event); err != nil {
			t.Fatalf("Failed to append event: %v", err)
		}
	}

	got, err := history.ListEvents(ctx, "inst-1")
	if err != nil {
		t.Fatalf("Failed to list events: %v", err)
	}
	if len(got) != len(events) {
		t.Fatalf("Expected %d events, got %d", len(events), len(got))
	}
	for i, event := range got {
		if event.Kind != events[i].Kind || event.Ordinal != events[i].Ordinal {
			t.Fatalf("Event %d out of append order: got kind=%v ordinal=%d", i, event.Kind, event.Ordinal)
		}
		if event.RecordedAt.IsZero() {
			t.Fatalf("Event %d missing RecordedAt", i)
		}
	}
}

func TestHistoryConcurrentAppends(t *testing.T) {
	_, _, history, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()

	// Appends contend on the instance's sequence counter; none may be
	// lost or rejected with a transaction conflict.
	const workers = 32
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(ordinal int) {
			defer wg.Done()
			errs <- history.AppendEvent(ctx, &core.HistoryEvent{
				InstanceID:  "inst-1",
				SnippetName: "f",
				Kind:        core.StepEmbed,
				Ordinal:     ordinal,
				Vector:      []float32{float32(ordinal)},
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Failed to append event concurrently: %v", err)
		}
	}

	got, err := history.ListEvents(ctx, "inst-1")
	if err != nil {
		t.Fatalf("Failed to list events: %v", err)
	}
	if len(got) != workers {
		t.Fatalf("Expected %d events, got %d", workers, len(got))
	}
}

func TestHistoryInstancesIsolated(t *testing.T) {
	_, _, history, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()

	if err := history.AppendEvent(ctx, &core.HistoryEvent{InstanceID: "inst-1", SnippetName: "f", Kind: core.StepChunk}); err != nil {
		t.Fatalf("Failed to append event: %v", err)
	}
	if err := history.AppendEvent(ctx, &core.HistoryEvent{InstanceID: "inst-2", SnippetName: "g", Kind: core.StepChunk}); err != nil {
		t.Fatalf("Failed to append event: %v", err)
	}

	got, err := history.ListEvents(ctx, "inst-1")
	if err != nil {
		t.Fatalf("Failed to list events: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 event for inst-1, got %d", len(got))
	}
	if got[0].SnippetName != "f" {
		t.Fatalf("Expected event for snippet f, got %q", got[0].SnippetName)
	}
}

func TestHistoryListEmpty(t *testing.T) {
	_, _, history, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	got, err := history.ListEvents(context.Background(), "never-ran")
	if err != nil {
		t.Fatalf("Failed to list events: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Expected no events, got %d", len(got))
	}
}
