// SPDX-License-Identifier: AGPL-3.0-only
package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/sriram687/adya-mcp-hackathon/internal/model"
)

func geminiTestServer(t *testing.T, status int, body string, capture *geminiRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("Expected generateContent path, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("Expected API key in query, got '%s'", r.URL.Query().Get("key"))
		}
		if capture != nil {
			raw, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(raw, capture); err != nil {
				t.Errorf("Failed to decode request body: %v", err)
			}
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestGeminiCall_TextResponse(t *testing.T) {
	respBody := `{
		"candidates": [{"content": {"role": "model", "parts": [{"text": "The weather is sunny."}]}}],
		"usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 7, "totalTokenCount": 19}
	}`
	var captured geminiRequest
	srv := geminiTestServer(t, http.StatusOK, respBody, &captured)
	defer srv.Close()

	adapter := NewGeminiAdapter("test-key", srv.URL, 0)
	result, err := adapter.Call(context.Background(), &Request{
		Model:        "gemini-2.0-flash",
		SystemPrompt: "be concise",
		Messages: []model.ChatMessage{
			{Role: "user", Content: "weather in Paris?"},
			{Role: "model", Content: "checking"},
		},
		Temperature: 0.2,
		MaxTokens:   256,
	})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	if result.Content != "The weather is sunny." {
		t.Errorf("Expected text content, got '%s'", result.Content)
	}
	if len(result.ToolCalls) != 0 {
		t.Errorf("Expected no tool calls, got %d", len(result.ToolCalls))
	}
	if result.Usage.InputTokens != 12 || result.Usage.OutputTokens != 7 || result.Usage.TotalTokens != 19 {
		t.Errorf("Unexpected usage: %+v", result.Usage)
	}
	if !json.Valid(result.Raw) {
		t.Error("Expected raw response to be valid JSON")
	}

	if captured.SystemInstruction == nil || captured.SystemInstruction.Parts[0].Text != "be concise" {
		t.Error("Expected system instruction in request")
	}
	if len(captured.Contents) != 2 {
		t.Fatalf("Expected 2 contents, got %d", len(captured.Contents))
	}
	if captured.Contents[0].Role != "user" || captured.Contents[1].Role != "model" {
		t.Errorf("Unexpected roles: %s, %s", captured.Contents[0].Role, captured.Contents[1].Role)
	}
	if captured.GenerationConfig == nil || captured.GenerationConfig.MaxOutputTokens != 256 {
		t.Error("Expected generation config with max output tokens")
	}
}

func TestGeminiCall_FunctionCall(t *testing.T) {
	respBody := `{
		"candidates": [{"content": {"role": "model", "parts": [
			{"functionCall": {"name": "get_weather", "args": {"city": "Paris"}}}
		]}}],
		"usageMetadata": {"promptTokenCount": 20, "candidatesTokenCount": 5, "totalTokenCount": 25}
	}`
	var captured geminiRequest
	srv := geminiTestServer(t, http.StatusOK, respBody, &captured)
	defer srv.Close()

	adapter := NewGeminiAdapter("test-key", srv.URL, 0)
	result, err := adapter.Call(context.Background(), &Request{
		Model:    "gemini-2.0-flash",
		Messages: []model.ChatMessage{{Role: "user", Content: "weather in Paris?"}},
		Tools: []model.Tool{
			{
				Type: model.ToolTypeFunction,
				Function: model.ToolFunction{
					Name:        "get_weather",
					Description: "Get weather",
					Parameters: map[string]any{
						"type":                 "object",
						"$schema":              "http://json-schema.org/draft-07/schema#",
						"additionalProperties": false,
						"properties": map[string]any{
							"city": map[string]any{"type": "string"},
						},
					},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	if len(result.ToolCalls) != 1 {
		t.Fatalf("Expected 1 tool call, got %d", len(result.ToolCalls))
	}
	tc := result.ToolCalls[0]
	if tc.Name != "get_weather" {
		t.Errorf("Expected tool name 'get_weather', got '%s'", tc.Name)
	}
	if !strings.HasPrefix(tc.ID, "call_") {
		t.Errorf("Expected generated call ID, got '%s'", tc.ID)
	}
	if tc.Arguments["city"] != "Paris" {
		t.Errorf("Expected city 'Paris', got %v", tc.Arguments["city"])
	}

	if len(captured.Tools) != 1 || len(captured.Tools[0].FunctionDeclarations) != 1 {
		t.Fatal("Expected one function declaration in request")
	}
	params := captured.Tools[0].FunctionDeclarations[0].Parameters
	if _, ok := params["$schema"]; ok {
		t.Error("Expected $schema to be stripped from parameters")
	}
	if _, ok := params["additionalProperties"]; ok {
		t.Error("Expected additionalProperties to be stripped from parameters")
	}
	if _, ok := params["properties"]; !ok {
		t.Error("Expected properties to survive sanitization")
	}
}

func TestGeminiCall_APIError(t *testing.T) {
	srv := geminiTestServer(t, http.StatusBadRequest, `{"error": {"message": "invalid model"}}`, nil)
	defer srv.Close()

	adapter := NewGeminiAdapter("test-key", srv.URL, 0)
	_, err := adapter.Call(context.Background(), &Request{
		Model:    "bogus",
		Messages: []model.ChatMessage{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("Expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("Expected status code in error, got '%v'", err)
	}
	if !strings.Contains(err.Error(), "invalid model") {
		t.Errorf("Expected response body in error, got '%v'", err)
	}
	if !strings.Contains(err.Error(), "gemini provider error") {
		t.Errorf("Expected provider error taxonomy, got '%v'", err)
	}
}

func TestGeminiCall_NoCandidates(t *testing.T) {
	srv := geminiTestServer(t, http.StatusOK, `{"candidates": []}`, nil)
	defer srv.Close()

	adapter := NewGeminiAdapter("test-key", srv.URL, 0)
	_, err := adapter.Call(context.Background(), &Request{
		Model:    "gemini-2.0-flash",
		Messages: []model.ChatMessage{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("Expected error for empty candidates")
	}
}

func TestDecodeGeminiArgs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{"object", `{"city": "Paris"}`, map[string]any{"city": "Paris"}},
		{"string holding JSON", `"{\"city\": \"Paris\"}"`, map[string]any{"city": "Paris"}},
		{"empty", ``, map[string]any{}},
		{"null", `null`, map[string]any{}},
		{"plain string", `"not json"`, map[string]any{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := decodeGeminiArgs(json.RawMessage(tc.raw))
			if got == nil {
				t.Fatal("Expected non-nil arguments map")
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestSanitizeGeminiSchema_Nested(t *testing.T) {
	schema := map[string]any{
		"type":    "object",
		"$schema": "http://json-schema.org/draft-07/schema#",
		"properties": map[string]any{
			"filter": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"name": map[string]any{"type": "string"},
				},
			},
		},
	}

	out := sanitizeGeminiSchema(schema)

	if _, ok := out["$schema"]; ok {
		t.Error("Expected top-level $schema removed")
	}
	filter := out["properties"].(map[string]any)["filter"].(map[string]any)
	if _, ok := filter["additionalProperties"]; ok {
		t.Error("Expected nested additionalProperties removed")
	}
	if _, ok := filter["properties"].(map[string]any)["name"]; !ok {
		t.Error("Expected nested properties preserved")
	}
}

func TestSanitizeGeminiSchema_Nil(t *testing.T) {
	if out := sanitizeGeminiSchema(nil); out != nil {
		t.Errorf("Expected nil for nil schema, got %v", out)
	}
}
