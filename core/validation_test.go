package core

import (
	"errors"
	"testing"
)

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     *Request
		wantErr error
	}{
		{
			name:    "nil request",
			req:     nil,
			wantErr: ErrNilRequest,
		},
		{
			name:    "no snippets",
			req:     &Request{ProjectID: "p1"},
			wantErr: ErrNoSnippets,
		},
		{
			name: "empty snippet name",
			req: &Request{
				Snippets: []Snippet{{Name: "", Code: "def f(): pass"}},
			},
			wantErr: ErrEmptySnippetName,
		},
		{
			name: "empty snippet code",
			req: &Request{
				Snippets: []Snippet{{Name: "f", Code: ""}},
			},
			wantErr: ErrEmptySnippetCode,
		},
		{
			name: "duplicate snippet name",
			req: &Request{
				Snippets: []Snippet{
					{Name: "f", Code: "def f(): pass"},
					{Name: "f", Code: "def g(): pass"},
				},
			},
			wantErr: ErrDuplicateSnippetName,
		},
		{
			name: "valid single snippet",
			req: &Request{
				ProjectID: "p1",
				Snippets:  []Snippet{{Name: "f", Code: "def f(): pass"}},
			},
			wantErr: nil,
		},
		{
			name: "valid with language tag",
			req: &Request{
				Snippets: []Snippet{
					{Name: "f", Code: "def f(): pass", Language: "python"},
					{Name: "g", Code: "func g() {}", Language: "go"},
				},
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(tt.req)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateRequest() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateRequest() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("ValidateRequest() error %v should wrap ErrInvalidRequest", err)
			}
		})
	}
}

func TestValidateRequest_FirstFailureWins(t *testing.T) {
	// Both snippets are broken; the first violation must be reported.
	req := &Request{
		Snippets: []Snippet{
			{Name: "", Code: ""},
			{Name: "g", Code: ""},
		},
	}
	err := ValidateRequest(req)
	if !errors.Is(err, ErrEmptySnippetName) {
		t.Fatalf("expected first violation (empty name), got %v", err)
	}
}
