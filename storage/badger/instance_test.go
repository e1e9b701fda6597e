package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/snipvec/core"
	"github.com/poiesic/snipvec/storage"
)

func testRequest(names ...string) *core.Request {
	req := &core.Request{ProjectID: "p1"}
	for _, name := range names {
		req.Snippets = append(req.Snippets, core.Snippet{Name: name, Code: "code " + name})
	}
	return req
}

func TestInstanceSaveAndGet(t *testing.T) {
	_, instances, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()

	instance := core.NewInstance("inst-1", testRequest("f", "g"), 800)
	if err := instances.SaveInstance(ctx, instance); err != nil {
		t.Fatalf("Failed to save instance: %v", err)
	}

	got, err := instances.GetInstance(ctx, "inst-1")
	if err != nil {
		t.Fatalf("Failed to get instance: %v", err)
	}
	if got.Status != core.InstanceScheduled {
		t.Fatalf("Expected scheduled status, got %v", got.Status)
	}
	if len(got.Progress) != 2 {
		t.Fatalf("Expected 2 progress entries, got %d", len(got.Progress))
	}
	if got.UpdatedAt.IsZero() {
		t.Fatal("Expected UpdatedAt to be set on save")
	}
}

func TestInstanceGetMissing(t *testing.T) {
	_, instances, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	_, err = instances.GetInstance(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestInstanceSaveReplacesSnapshot(t *testing.T) {
	_, instances, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()

	instance := core.NewInstance("inst-1", testRequest("f"), 800)
	if err := instances.SaveInstance(ctx, instance); err != nil {
		t.Fatalf("Failed to save instance: %v", err)
	}

	instance.Status = core.InstanceCompleted
	if err := instances.SaveInstance(ctx, instance); err != nil {
		t.Fatalf("Failed to re-save instance: %v", err)
	}

	got, err := instances.GetInstance(ctx, "inst-1")
	if err != nil {
		t.Fatalf("Failed to get instance: %v", err)
	}
	if got.Status != core.InstanceCompleted {
		t.Fatalf("Expected completed status after re-save, got %v", got.Status)
	}
}

func TestListActiveInstances(t *testing.T) {
	_, instances, _, backend, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()

	running := core.NewInstance("inst-running", testRequest("f"), 800)
	running.Status = core.InstanceRunning

	done := core.NewInstance("inst-done", testRequest("g"), 800)
	done.Status = core.InstanceCompleted

	scheduled := core.NewInstance("inst-scheduled", testRequest("h"), 800)

	for _, instance := range []*core.Instance{running, done, scheduled} {
		if err := instances.SaveInstance(ctx, instance); err != nil {
			t.Fatalf("Failed to save %q: %v", instance.ID, err)
		}
	}

	active, err := instances.ListActiveInstances(ctx)
	if err != nil {
		t.Fatalf("Failed to list active instances: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("Expected 2 active instances, got %d", len(active))
	}
	for _, instance := range active {
		if instance.Status.Terminal() {
			t.Fatalf("Expected only non-terminal instances, got %q with status %v", instance.ID, instance.Status)
		}
	}
}
