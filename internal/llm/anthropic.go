// SPDX-License-Identifier: AGPL-3.0-only
package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sriram687/adya-mcp-hackathon/internal/errors"
	"github.com/sriram687/adya-mcp-hackathon/internal/model"
)

const anthropicDefaultMaxTokens = 4096

// AnthropicAdapter backs completions with the Anthropic SDK.
type AnthropicAdapter struct {
	client *anthropic.Client
}

// NewAnthropicAdapter creates an Anthropic-backed adapter.
func NewAnthropicAdapter(apiKey string, timeout time.Duration) *AnthropicAdapter {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
	)
	return &AnthropicAdapter{client: &client}
}

func (a *AnthropicAdapter) HistoryRole() string { return "assistant" }

func (a *AnthropicAdapter) ToolRoundLimit() int { return 0 }

func (a *AnthropicAdapter) Call(ctx context.Context, req *Request) (*Result, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  toAnthropicMessages(req.Messages),
		MaxTokens: int64(maxTokens),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if len(req.Tools) > 0 {
		params.Tools = toAnthropicTools(req.Tools)
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Provider("anthropic", err)
	}

	out := &Result{
		Usage: Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
			TotalTokens:  int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
		Raw: json.RawMessage(resp.RawJSON()),
	}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			if out.Content != "" {
				out.Content += "\n"
			}
			out.Content += block.AsText().Text
		case "tool_use":
			tu := block.AsToolUse()
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        tu.ID,
				Name:      tu.Name,
				Arguments: decodeArguments(string(tu.Input)),
			})
		}
	}
	return out, nil
}

func toAnthropicTools(tools []model.Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		props, _ := t.Function.Parameters["properties"].(map[string]any)
		if props == nil {
			props = map[string]any{}
		}
		var required []string
		if req, ok := t.Function.Parameters["required"].([]any); ok {
			for _, r := range req {
				if s, ok := r.(string); ok {
					required = append(required, s)
				}
			}
		}
		if req, ok := t.Function.Parameters["required"].([]string); ok {
			required = req
		}

		out[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Function.Name,
				Description: anthropic.String(t.Function.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: props,
					Required:   required,
				},
			},
		}
	}
	return out
}

// toAnthropicMessages maps history onto Anthropic's two-role model. Tool
// result echoes arrive as plain assistant text, so no tool_use correlation is
// needed.
func toAnthropicMessages(messages []model.ChatMessage) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "assistant", "model":
			out = append(out, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(m.Content),
			))
		default:
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewTextBlock(m.Content),
			))
		}
	}
	return out
}
