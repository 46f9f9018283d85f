// SPDX-License-Identifier: AGPL-3.0-only

// Package llm normalizes chat-completion providers behind a single Adapter
// interface so the execution engine never branches on vendor specifics.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sriram687/adya-mcp-hackathon/internal/config"
	"github.com/sriram687/adya-mcp-hackathon/internal/model"
)

// Supported client identifiers.
const (
	ClientOpenAI    = "MCP_CLIENT_OPENAI"
	ClientAzureAI   = "MCP_CLIENT_AZURE_AI"
	ClientGemini    = "MCP_CLIENT_GEMINI"
	ClientAnthropic = "MCP_CLIENT_ANTHROPIC"
)

// SupportedClients returns the client identifiers the factory can build.
func SupportedClients() []string {
	return []string{ClientOpenAI, ClientAzureAI, ClientGemini, ClientAnthropic}
}

// IsSupported reports whether the factory can build the named client.
func IsSupported(name string) bool {
	for _, c := range SupportedClients() {
		if c == name {
			return true
		}
	}
	return false
}

// ToolCall is a tool invocation requested by the model, with its arguments
// already decoded.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Usage is the token accounting of one completion.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Result is a normalized completion. Raw carries the vendor's unmodified
// response body for auditing.
type Result struct {
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
	Raw       json.RawMessage
}

// Request is a normalized completion request.
type Request struct {
	Model        string
	SystemPrompt string
	Messages     []model.ChatMessage
	Tools        []model.Tool
	Temperature  float64
	MaxTokens    int
	ToolChoice   string
}

// Adapter is a chat-completion backend.
type Adapter interface {
	// Call sends one completion request.
	Call(ctx context.Context, req *Request) (*Result, error)
	// HistoryRole is the role under which tool-result echoes are appended
	// to the conversation history for this provider.
	HistoryRole() string
	// ToolRoundLimit caps consecutive tool rounds; 0 means unlimited.
	ToolRoundLimit() int
}

// NewAdapter builds the adapter for the given client identifier using the
// request's connection details.
func NewAdapter(cfg *config.Config, client string, details *model.ClientDetails) (Adapter, error) {
	switch client {
	case ClientOpenAI:
		return NewOpenAIAdapter(details.APIKey, cfg.LLM.RequestTimeout), nil
	case ClientAzureAI:
		return NewAzureAdapter(details.APIKey, details.Endpoint, details.APIVersion, cfg.LLM.RequestTimeout), nil
	case ClientGemini:
		return NewGeminiAdapter(details.APIKey, cfg.LLM.GeminiBaseURL, cfg.LLM.RequestTimeout), nil
	case ClientAnthropic:
		return NewAnthropicAdapter(details.APIKey, cfg.LLM.RequestTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported client: %s", client)
	}
}

// decodeArguments parses a tool call's argument payload, tolerating both an
// empty string and non-object garbage.
func decodeArguments(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}
