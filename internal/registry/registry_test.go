// SPDX-License-Identifier: AGPL-3.0-only
package registry

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/sriram687/adya-mcp-hackathon/internal/model"
)

type fakeSession struct {
	tools    []model.Tool
	closed   bool
	closeErr error
}

func (s *fakeSession) ListTools(ctx context.Context) ([]model.Tool, error) {
	return s.tools, nil
}

func (s *fakeSession) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	return "ok", nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return s.closeErr
}

func TestRegisterAndGet(t *testing.T) {
	r := New(nil)
	entry := &Entry{
		Name:    "WORDPRESS",
		Session: &fakeSession{},
		Tools: []model.Tool{
			{Type: model.ToolTypeFunction, Function: model.ToolFunction{Name: "create_post"}},
		},
	}

	r.Register(entry)

	got, ok := r.Get("WORDPRESS")
	if !ok {
		t.Fatal("Expected entry to be found")
	}
	if got.Name != "WORDPRESS" || len(got.Tools) != 1 {
		t.Errorf("Unexpected entry: %+v", got)
	}
	if !r.Has("WORDPRESS") {
		t.Error("Expected Has to report registered server")
	}
	if r.Has("GMAIL") {
		t.Error("Expected Has to be false for unknown server")
	}
	if _, ok := r.Get("GMAIL"); ok {
		t.Error("Expected Get to miss for unknown server")
	}
}

func TestRegister_Replaces(t *testing.T) {
	r := New(nil)
	r.Register(&Entry{Name: "WORDPRESS", Session: &fakeSession{}})
	replacement := &Entry{Name: "WORDPRESS", InjectCredentials: true, Session: &fakeSession{}}

	r.Register(replacement)

	got, _ := r.Get("WORDPRESS")
	if !got.InjectCredentials {
		t.Error("Expected replacement entry to win")
	}
}

func TestNames(t *testing.T) {
	r := New(nil)
	r.Register(&Entry{Name: "WORDPRESS", Session: &fakeSession{}})
	r.Register(&Entry{Name: "GMAIL", Session: &fakeSession{}})

	names := r.Names()
	sort.Strings(names)

	if len(names) != 2 || names[0] != "GMAIL" || names[1] != "WORDPRESS" {
		t.Errorf("Unexpected names: %v", names)
	}
}

func TestClose(t *testing.T) {
	r := New(nil)
	first := &fakeSession{}
	second := &fakeSession{closeErr: errors.New("transport gone")}
	r.Register(&Entry{Name: "WORDPRESS", Session: first})
	r.Register(&Entry{Name: "GMAIL", Session: second})

	err := r.Close()

	if !first.closed || !second.closed {
		t.Error("Expected all sessions closed")
	}
	if err == nil {
		t.Error("Expected first close error to surface")
	}
	if r.Has("WORDPRESS") {
		t.Error("Expected registry emptied after Close")
	}
}

func TestNormalizeSchema_EmptyObject(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
	}{
		{"nil schema", nil},
		{"object without properties", map[string]any{"type": "object"}},
		{"object with empty properties", map[string]any{"type": "object", "properties": map[string]any{}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := NormalizeSchema(tc.params)

			props, ok := out["properties"].(map[string]any)
			if !ok {
				t.Fatal("Expected properties map")
			}
			if _, ok := props["random_string"]; !ok {
				t.Error("Expected dummy property injected")
			}
			required, ok := out["required"].([]string)
			if !ok || len(required) != 1 || required[0] != "random_string" {
				t.Errorf("Expected dummy property required, got %v", out["required"])
			}
		})
	}
}

func TestNormalizeSchema_KeepsRealProperties(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"city": map[string]any{"type": "string"},
		},
		"required": []any{"city"},
	}

	out := NormalizeSchema(params)

	props := out["properties"].(map[string]any)
	if _, ok := props["random_string"]; ok {
		t.Error("Expected real schema left untouched")
	}
	if _, ok := props["city"]; !ok {
		t.Error("Expected original property preserved")
	}
}
