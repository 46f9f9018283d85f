// SPDX-License-Identifier: AGPL-3.0-only

// Package model defines the request and response payloads shared between the
// HTTP surface, the request validator and the execution engine.
package model

import (
	"encoding/json"
	"time"
)

// ChatMessage is a single entry in a conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolFunction describes a callable tool: its name, description and a
// JSON-schema-like parameter object.
type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Tool is a tool declaration as offered to an LLM. Type is always "function".
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolTypeFunction is the only tool type the orchestrator deals in.
const ToolTypeFunction = "function"

// ClientDetails carries the per-conversation settings for one orchestration
// request. Tools is populated by the validator from the selected servers'
// catalogs; ChatHistory and Prompt are mutated by the engine during a run.
type ClientDetails struct {
	Input        string        `json:"input"`
	ChatHistory  []ChatMessage `json:"chat_history,omitempty"`
	Prompt       string        `json:"prompt"`
	Tools        []Tool        `json:"tools,omitempty"`
	APIKey       string        `json:"api_key"`
	ChatModel    string        `json:"chat_model"`
	Temperature  float64       `json:"temperature,omitempty"`
	MaxTokens    int           `json:"max_tokens,omitempty"`
	ToolChoice   string        `json:"tool_choice,omitempty"`
	IsStream     bool          `json:"is_stream,omitempty"`
	Endpoint     string        `json:"endpoint,omitempty"`
	DeploymentID string        `json:"deployment_id,omitempty"`
	APIVersion   string        `json:"api_version,omitempty"`
}

// ExecuteRequest is the provider-neutral orchestration request.
type ExecuteRequest struct {
	SelectedClient            string                    `json:"selected_client"`
	SelectedServers           []string                  `json:"selected_servers"`
	SelectedServerCredentials map[string]map[string]any `json:"selected_server_credentials"`
	ClientDetails             ClientDetails             `json:"client_details"`
}

// ExecutedToolCall records one tool invocation made during a run, in call
// order. Result is always JSON-compatible (the dispatcher guarantees it).
type ExecutedToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Result    any            `json:"result"`
}

// ExecutionData is the aggregate bookkeeping of one engine run.
type ExecutionData struct {
	TotalLLMCalls     int                `json:"total_llm_calls"`
	TotalTokens       int                `json:"total_tokens"`
	TotalInputTokens  int                `json:"total_input_tokens"`
	TotalOutputTokens int                `json:"total_output_tokens"`
	FinalLLMResponse  json.RawMessage    `json:"final_llm_response"`
	LLMResponses      []json.RawMessage  `json:"llm_responses_arr"`
	Messages          []string           `json:"messages"`
	OutputType        string             `json:"output_type"`
	ExecutedToolCalls []ExecutedToolCall `json:"executed_tool_calls"`
}

// ExecutionResponse is the single return value of one engine run, also used
// as the terminal payload on the streaming path. Error is a pointer so a
// successful run serializes as null rather than "".
type ExecutionResponse struct {
	Data   *ExecutionData `json:"Data"`
	Error  *string        `json:"Error"`
	Status bool           `json:"Status"`
}

// NewExecutionResponse returns a response with all counters zeroed and the
// slices non-nil so they serialize as [] instead of null.
func NewExecutionResponse() *ExecutionResponse {
	return &ExecutionResponse{
		Data: &ExecutionData{
			LLMResponses:      []json.RawMessage{},
			Messages:          []string{},
			OutputType:        "text",
			ExecutedToolCalls: []ExecutedToolCall{},
		},
	}
}

// Fail marks the response failed with the given error message.
func (r *ExecutionResponse) Fail(msg string) *ExecutionResponse {
	r.Error = &msg
	r.Status = false
	return r
}

// ErrString is a convenience for building nullable error fields.
func ErrString(s string) *string { return &s }

// Streaming statuses carried on every stream event.
const (
	StreamStarted    = "STARTED"
	StreamInProgress = "IN-PROGRESS"
	StreamError      = "ERROR"
	StreamCompleted  = "COMPLETED"
)

// Stream event actions.
const (
	ActionNone         = "NO-ACTION"
	ActionNotification = "NOTIFICATION"
	ActionMessage      = "MESSAGE"
	ActionAIResponse   = "AI-RESPONSE"
	ActionError        = "ERROR"
)

// StreamEvent is one framed payload on the streaming side-channel.
type StreamEvent struct {
	Data            any     `json:"Data"`
	Error           *string `json:"Error"`
	Status          bool    `json:"Status"`
	StreamingStatus string  `json:"StreamingStatus"`
	Action          string  `json:"Action"`
}

// RunRecord is the persisted summary of one finished engine run.
type RunRecord struct {
	RunID             string    `json:"run_id"`
	Client            string    `json:"client"`
	Servers           string    `json:"servers"`
	Input             string    `json:"input"`
	Status            bool      `json:"status"`
	Error             string    `json:"error"`
	TotalLLMCalls     int       `json:"total_llm_calls"`
	TotalTokens       int       `json:"total_tokens"`
	TotalInputTokens  int       `json:"total_input_tokens"`
	TotalOutputTokens int       `json:"total_output_tokens"`
	ToolCalls         int       `json:"tool_calls"`
	OutputType        string    `json:"output_type"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	Duration          string    `json:"duration"`
}

// RunStore persists run records for auditing.
type RunStore interface {
	SaveRun(run *RunRecord) error
	GetRuns(limit int) ([]*RunRecord, error)
	Close() error
}
