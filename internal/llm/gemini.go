// SPDX-License-Identifier: AGPL-3.0-only
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sriram687/adya-mcp-hackathon/internal/errors"
	"github.com/sriram687/adya-mcp-hackathon/internal/model"
)

// GeminiAdapter talks to the Gemini generateContent REST API directly. The
// vendor SDK hides the raw response body and mangles non-object function-call
// arguments, both of which the engine needs verbatim.
type GeminiAdapter struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewGeminiAdapter creates a Gemini REST adapter.
func NewGeminiAdapter(apiKey, baseURL string, timeout time.Duration) *GeminiAdapter {
	return &GeminiAdapter{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

func (a *GeminiAdapter) HistoryRole() string { return "model" }

// ToolRoundLimit caps Gemini at two consecutive tool rounds. The model tends
// to re-request the same call when fed its own results, so a third round is
// treated as a loop.
func (a *GeminiAdapter) ToolRoundLimit() int { return 2 }

type geminiPart struct {
	Text         string              `json:"text,omitempty"`
	FunctionCall *geminiFunctionCall `json:"functionCall,omitempty"`
}

type geminiFunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiFunctionDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDecl `json:"functionDeclarations"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"system_instruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	Tools             []geminiTool            `json:"tools,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func (a *GeminiAdapter) Call(ctx context.Context, req *Request) (*Result, error) {
	body := geminiRequest{
		Contents: toGeminiContents(req.Messages),
	}
	if req.SystemPrompt != "" {
		body.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: req.SystemPrompt}},
		}
	}
	if len(req.Tools) > 0 {
		decls := make([]geminiFunctionDecl, len(req.Tools))
		for i, t := range req.Tools {
			decls[i] = geminiFunctionDecl{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  sanitizeGeminiSchema(t.Function.Parameters),
			}
		}
		body.Tools = []geminiTool{{FunctionDeclarations: decls}}
	}
	if req.Temperature > 0 || req.MaxTokens > 0 {
		body.GenerationConfig = &geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", a.baseURL, req.Model, a.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Provider("gemini", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Provider("gemini", fmt.Errorf("API returned %d: %s", resp.StatusCode, string(raw)))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		return nil, errors.Provider("gemini", fmt.Errorf("response has no candidates"))
	}

	out := &Result{
		Usage: Usage{
			InputTokens:  parsed.UsageMetadata.PromptTokenCount,
			OutputTokens: parsed.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  parsed.UsageMetadata.TotalTokenCount,
		},
		Raw: json.RawMessage(raw),
	}
	for _, part := range parsed.Candidates[0].Content.Parts {
		if part.Text != "" {
			if out.Content != "" {
				out.Content += "\n"
			}
			out.Content += part.Text
		}
		if part.FunctionCall != nil {
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        "call_" + uuid.NewString(),
				Name:      part.FunctionCall.Name,
				Arguments: decodeGeminiArgs(part.FunctionCall.Args),
			})
		}
	}
	return out, nil
}

func toGeminiContents(messages []model.ChatMessage) []geminiContent {
	out := make([]geminiContent, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == "assistant" || m.Role == "model" {
			role = "model"
		}
		out = append(out, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}
	return out
}

// decodeGeminiArgs handles both shapes the API emits for function-call
// arguments: a JSON object, or a string holding JSON.
func decodeGeminiArgs(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err == nil && args != nil {
		return args
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return decodeArguments(s)
	}
	return map[string]any{}
}

// sanitizeGeminiSchema strips JSON-schema keywords the Gemini API rejects.
func sanitizeGeminiSchema(schema map[string]any) map[string]any {
	if schema == nil {
		return nil
	}
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		switch k {
		case "$schema", "additionalProperties":
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			out[k] = sanitizeGeminiSchema(nested)
			continue
		}
		out[k] = v
	}
	return out
}
