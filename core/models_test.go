package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "same content produces same ID", content: "def f(): pass"},
		{name: "empty string", content: ""},
		{name: "long content", content: "A much longer piece of source code that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)
			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")
	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestNewInstance(t *testing.T) {
	req := &Request{
		ProjectID: "p1",
		Snippets: []Snippet{
			{Name: "f", Code: "def f(): pass"},
			{Name: "g", Code: "def g(): pass"},
		},
	}

	in := NewInstance("inst-1", req, 800)

	if in.Status != InstanceScheduled {
		t.Fatalf("expected Scheduled, got %v", in.Status)
	}
	if len(in.Progress) != 2 {
		t.Fatalf("expected 2 progress entries, got %d", len(in.Progress))
	}
	for _, p := range in.Progress {
		if p.State != SnippetPending {
			t.Fatalf("expected pending state for %q, got %v", p.Name, p.State)
		}
	}
	if in.ProgressFor("g") == nil {
		t.Fatal("expected progress entry for snippet g")
	}
	if in.ProgressFor("missing") != nil {
		t.Fatal("expected nil progress for unknown snippet")
	}
}

func TestInstanceStatus_Terminal(t *testing.T) {
	if InstanceScheduled.Terminal() || InstanceRunning.Terminal() {
		t.Fatal("scheduled/running must not be terminal")
	}
	if !InstanceCompleted.Terminal() || !InstanceFailed.Terminal() {
		t.Fatal("completed/failed must be terminal")
	}
}

func TestSnippetState_Terminal(t *testing.T) {
	nonTerminal := []SnippetState{SnippetPending, SnippetChunked, SnippetEmbedding, SnippetAggregated, SnippetPersisting}
	for _, s := range nonTerminal {
		if s.Terminal() {
			t.Fatalf("%v must not be terminal", s)
		}
	}
	if !SnippetDone.Terminal() || !SnippetFailed.Terminal() {
		t.Fatal("done/failed must be terminal")
	}
}
