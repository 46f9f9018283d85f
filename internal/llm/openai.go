// SPDX-License-Identifier: AGPL-3.0-only
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/sriram687/adya-mcp-hackathon/internal/errors"
	"github.com/sriram687/adya-mcp-hackathon/internal/model"
)

// OpenAIAdapter backs completions with the OpenAI SDK. The same adapter
// serves Azure OpenAI deployments, which differ only in client construction.
type OpenAIAdapter struct {
	client *openai.Client
	vendor string
}

// NewOpenAIAdapter creates an adapter against the public OpenAI API.
func NewOpenAIAdapter(apiKey string, timeout time.Duration) *OpenAIAdapter {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
	)
	return &OpenAIAdapter{client: &client, vendor: "openai"}
}

// NewAzureAdapter creates an adapter against an Azure OpenAI endpoint.
func NewAzureAdapter(apiKey, endpoint, apiVersion string, timeout time.Duration) *OpenAIAdapter {
	client := openai.NewClient(
		azure.WithEndpoint(endpoint, apiVersion),
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
	)
	return &OpenAIAdapter{client: &client, vendor: "azure"}
}

func (a *OpenAIAdapter) HistoryRole() string { return "assistant" }

func (a *OpenAIAdapter) ToolRoundLimit() int { return 0 }

func (a *OpenAIAdapter) Call(ctx context.Context, req *Request) (*Result, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.SystemMessage(req.SystemPrompt))
	}
	for _, m := range req.Messages {
		msgs = append(msgs, toOpenAIMessage(m))
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: msgs,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if len(req.Tools) > 0 {
		params.Tools = toOpenAITools(req.Tools)
		if req.ToolChoice != "" {
			params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
				OfAuto: openai.String(req.ToolChoice),
			}
		}
	}

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Provider(a.vendor, err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.Provider(a.vendor, fmt.Errorf("completion returned no choices"))
	}

	out := &Result{
		Content: resp.Choices[0].Message.Content,
		Usage: Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
		Raw: json.RawMessage(resp.RawJSON()),
	}
	for _, tc := range resp.Choices[0].Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: decodeArguments(tc.Function.Arguments),
		})
	}
	return out, nil
}

func toOpenAITools(tools []model.Tool) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, len(tools))
	for i, t := range tools {
		out[i] = openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Function.Name,
				Description: openai.String(t.Function.Description),
				Parameters:  shared.FunctionParameters(t.Function.Parameters),
			},
		}
	}
	return out
}

func toOpenAIMessage(m model.ChatMessage) openai.ChatCompletionMessageParamUnion {
	switch m.Role {
	case "user":
		return openai.UserMessage(m.Content)
	case "system":
		return openai.SystemMessage(m.Content)
	default: // "assistant" and provider-specific aliases like "model"
		asst := openai.ChatCompletionAssistantMessageParam{}
		if m.Content != "" {
			asst.Content.OfString = openai.String(m.Content)
		}
		return openai.ChatCompletionMessageParamUnion{OfAssistant: &asst}
	}
}
