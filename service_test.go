package snipvec

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/snipvec/ai/mock"
	"github.com/poiesic/snipvec/core"
	"github.com/poiesic/snipvec/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *mock.MockProvider) {
	t.Helper()

	provider := mock.NewMockProvider()
	service, err := NewService("",
		WithInMemory(),
		WithProvider(provider),
		WithRetryPolicy(2, time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { service.Close() })

	return service, provider
}

func waitForTerminal(t *testing.T, service *Service, instanceID string) *core.Instance {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		instance, err := service.Status(context.Background(), instanceID)
		require.NoError(t, err)
		if instance.Status.Terminal() {
			return instance
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("instance %s did not reach a terminal state", instanceID)
	return nil
}

func TestSubmit_RejectsInvalidRequest(t *testing.T) {
	service, _ := newTestService(t)

	tests := []struct {
		name string
		req  *core.Request
	}{
		{"nil request", nil},
		{"no snippets", &core.Request{}},
		{"unnamed snippet", &core.Request{Snippets: []core.Snippet{{Code: "x"}}}},
		{"empty code", &core.Request{Snippets: []core.Snippet{{Name: "f"}}}},
		{"duplicate names", &core.Request{Snippets: []core.Snippet{
			{Name: "f", Code: "a"},
			{Name: "f", Code: "b"},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := service.Submit(context.Background(), tt.req)
			require.ErrorIs(t, err, core.ErrInvalidRequest)
			assert.Empty(t, id, "rejected request must not schedule an instance")
		})
	}
}

func TestSubmit_RunnerUnavailable(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	service.runPool.Release()

	_, err := service.Submit(ctx, &core.Request{
		Snippets: []core.Snippet{{Name: "f", Code: "def f(): pass"}},
	})
	require.Error(t, err)

	// The instance was persisted before the runner rejected it, so it
	// remains active and a later Resume would pick it up.
	active, err := service.instances.ListActiveInstances(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	// Resume on a released pool reports nothing re-driven.
	ids, err := service.Resume(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSubmit_ProcessesRequestEndToEnd(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	id, err := service.Submit(ctx, &core.Request{
		ProjectID: "p1",
		Snippets: []core.Snippet{
			{Name: "parse", Code: "def parse(s): return json.loads(s)", Language: "python"},
			{Name: "render", Code: "def render(d): return template.format(**d)", Language: "python"},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	instance := waitForTerminal(t, service, id)
	assert.Equal(t, core.InstanceCompleted, instance.Status)
	for _, progress := range instance.Progress {
		assert.Equal(t, core.SnippetDone, progress.State)
	}

	doc, err := service.DocumentStore().GetDocument(ctx, "parse")
	require.NoError(t, err)
	assert.Equal(t, "p1", doc.ProjectID)
	assert.Equal(t, "python", doc.Language)
	assert.NotEmpty(t, doc.Vector)
}

func TestSearch_FindsSubmittedSnippet(t *testing.T) {
	service, provider := newTestService(t)
	ctx := context.Background()

	// Query and snippet embed to the same vector so the semantic match
	// clears the similarity floor.
	provider.MockEmbedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0}, nil
	}

	id, err := service.Submit(ctx, &core.Request{
		Snippets: []core.Snippet{{Name: "retry", Code: "def retry(): backoff()"}},
	})
	require.NoError(t, err)
	waitForTerminal(t, service, id)

	results, err := service.Search(ctx, "retry backoff", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "retry", results[0].Document.Name)
}

func TestStatus_UnknownInstance(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.Status(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestResume_RedrivesActiveInstances(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	// An instance left Running by an interrupted process.
	stranded := core.NewInstance("stranded", &core.Request{
		Snippets: []core.Snippet{{Name: "f", Code: "def f(): pass"}},
	}, 800)
	stranded.Status = core.InstanceRunning
	require.NoError(t, service.instances.SaveInstance(ctx, stranded))

	ids, err := service.Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"stranded"}, ids)

	instance := waitForTerminal(t, service, "stranded")
	assert.Equal(t, core.InstanceCompleted, instance.Status)

	_, err = service.DocumentStore().GetDocument(ctx, "f")
	assert.NoError(t, err)
}

func TestResume_NothingActive(t *testing.T) {
	service, _ := newTestService(t)

	ids, err := service.Resume(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
