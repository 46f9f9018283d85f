// SPDX-License-Identifier: AGPL-3.0-only

// Package engine drives the tool-calling execution loop: one screening call
// to narrow the tool catalog, then rounds of "call LLM, execute requested
// tools, feed results back" until the model produces a text answer.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sriram687/adya-mcp-hackathon/internal/config"
	"github.com/sriram687/adya-mcp-hackathon/internal/llm"
	"github.com/sriram687/adya-mcp-hackathon/internal/logging"
	"github.com/sriram687/adya-mcp-hackathon/internal/model"
	"github.com/sriram687/adya-mcp-hackathon/internal/registry"
)

// hallucinationError is the fixed terminal message when a provider's tool
// loop exceeds its round cap.
const hallucinationError = "Maximum LLM calls went into halucination"

// Notifier receives progress events during a run. Implementations must not
// block; a nil Notifier disables progress reporting.
type Notifier interface {
	Event(ev *model.StreamEvent)
}

// adapterFactory builds the provider adapter for a request. Swappable in
// tests.
type adapterFactory func(cfg *config.Config, client string, details *model.ClientDetails) (llm.Adapter, error)

// Engine executes orchestration requests.
type Engine struct {
	cfg        *config.Config
	dispatcher *Dispatcher
	logger     *logging.Logger
	store      model.RunStore
	newAdapter adapterFactory
}

// New creates an engine. store may be nil to disable run auditing.
func New(cfg *config.Config, reg *registry.Registry, logger *logging.Logger, store model.RunStore) *Engine {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	return &Engine{
		cfg:        cfg,
		dispatcher: NewDispatcher(reg, logger),
		logger:     logger,
		store:      store,
		newAdapter: llm.NewAdapter,
	}
}

// Execute runs one orchestration request to completion. The request must
// already be validated (tools populated). Progress events go to n when
// non-nil; the returned response is always non-nil and carries the full
// accounting of the run, even on failure.
func (e *Engine) Execute(ctx context.Context, req *model.ExecuteRequest, n Notifier) *model.ExecutionResponse {
	start := time.Now()
	result := model.NewExecutionResponse()
	defer func() { e.saveRun(req, result, start) }()

	selectedServer := ""
	if len(req.SelectedServers) > 0 {
		selectedServer = req.SelectedServers[0]
	}

	cd := &req.ClientDetails
	cd.ChatHistory = append(cd.ChatHistory, model.ChatMessage{Role: "user", Content: cd.Input})

	catalog := cd.Tools
	userPrompt := cd.Prompt

	adapter, err := e.newAdapter(e.cfg, req.SelectedClient, cd)
	if err != nil {
		return result.Fail(err.Error())
	}

	// Screening call: tag protocol only, no tools offered.
	screeningRes, err := adapter.Call(ctx, &llm.Request{
		Model:        cd.ChatModel,
		SystemPrompt: screeningPrompt(selectedServer, catalog),
		Messages:     cd.ChatHistory,
		Temperature:  cd.Temperature,
		MaxTokens:    cd.MaxTokens,
	})
	if err != nil {
		return result.Fail(err.Error())
	}
	e.record(result, screeningRes)
	e.notify(n, "Optimized Token LLM call Successfully Completed", model.ActionNotification)

	screening := ParseScreeningResponse(screeningRes.Content)
	if screening.IsFunctionCall {
		cd.Tools = selectTools(screening.SelectedTools, catalog)
		return e.runToolLoop(ctx, adapter, req, selectedServer, userPrompt, result, n)
	}

	// No tool call predicted: answer conversationally, tool names mentioned
	// in the prompt but no tools offered.
	normalRes, err := adapter.Call(ctx, &llm.Request{
		Model:        cd.ChatModel,
		SystemPrompt: fmt.Sprintf("%s. Available tools: %s", userPrompt, summarizeToolsJSON(catalog)),
		Messages:     cd.ChatHistory,
		Temperature:  cd.Temperature,
		MaxTokens:    cd.MaxTokens,
	})
	if err != nil {
		return result.Fail(err.Error())
	}
	e.record(result, normalRes)
	result.Status = true

	if normalRes.Content != "" {
		result.Data.Messages = append(result.Data.Messages, normalRes.Content)
		e.emitMessages(n, result.Data.Messages)
		return result
	}

	// The model surfaced tool calls despite no tools being offered: fall
	// through into the tool loop under the same screening restriction.
	if len(normalRes.ToolCalls) > 0 {
		cd.Tools = selectTools(screening.SelectedTools, catalog)
		return e.runToolLoop(ctx, adapter, req, selectedServer, userPrompt, result, n)
	}
	return result
}

// runToolLoop drives tool-bearing rounds until the model answers with text,
// a round fails, or the provider's round cap is hit.
func (e *Engine) runToolLoop(ctx context.Context, adapter llm.Adapter, req *model.ExecuteRequest, server, userPrompt string, result *model.ExecutionResponse, n Notifier) *model.ExecutionResponse {
	cd := &req.ClientDetails
	limit := adapter.ToolRoundLimit()

	for round := 1; ; round++ {
		if limit > 0 && round > limit {
			return result.Fail(hallucinationError)
		}

		tools := cd.Tools
		// Capped providers get tools only on the first round; later rounds
		// must answer from the results already in history.
		if limit > 0 && round > 1 {
			tools = nil
		}

		res, err := adapter.Call(ctx, &llm.Request{
			Model:        cd.ChatModel,
			SystemPrompt: userPrompt,
			Messages:     cd.ChatHistory,
			Tools:        tools,
			Temperature:  cd.Temperature,
			MaxTokens:    cd.MaxTokens,
			ToolChoice:   cd.ToolChoice,
		})
		if err != nil {
			return result.Fail(err.Error())
		}
		e.record(result, res)

		if len(res.ToolCalls) == 0 {
			if res.Content != "" {
				result.Data.Messages = append(result.Data.Messages, res.Content)
			}
			result.Data.OutputType = "text"
			result.Status = true
			e.emitMessages(n, result.Data.Messages)
			return result
		}

		e.notify(n, "Tool Calls Started", model.ActionNotification)

		for _, tc := range res.ToolCalls {
			e.notify(n, fmt.Sprintf("%s MCP server %s call initiated", server, tc.Name), model.ActionNotification)

			toolResult, err := e.dispatcher.Execute(ctx, server, req.SelectedServerCredentials, tc.Name, tc.Arguments)
			if err != nil {
				return result.Fail(err.Error())
			}
			resultJSON, merr := json.Marshal(toolResult)
			if merr != nil {
				resultJSON = []byte(fmt.Sprintf("%q", fmt.Sprintf("%v", toolResult)))
			}

			e.notify(n, fmt.Sprintf("%s MCP server %s call result  : %s", server, tc.Name, resultJSON), model.ActionNotification)

			result.Data.ExecutedToolCalls = append(result.Data.ExecutedToolCalls, model.ExecutedToolCall{
				ID:        tc.ID,
				Name:      tc.Name,
				Arguments: tc.Arguments,
				Result:    toolResult,
			})
			cd.ChatHistory = append(cd.ChatHistory, model.ChatMessage{
				Role:    adapter.HistoryRole(),
				Content: fmt.Sprintf("Executed tool: %s and the result is: %s", tc.Name, resultJSON),
			})
		}
	}
}

// record folds one successful completion into the run accounting. Every
// recorded completion lands in LLMResponses, so TotalLLMCalls always equals
// len(LLMResponses).
func (e *Engine) record(result *model.ExecutionResponse, res *llm.Result) {
	result.Data.TotalLLMCalls++
	result.Data.TotalTokens += res.Usage.TotalTokens
	result.Data.TotalInputTokens += res.Usage.InputTokens
	result.Data.TotalOutputTokens += res.Usage.OutputTokens
	result.Data.FinalLLMResponse = res.Raw
	result.Data.LLMResponses = append(result.Data.LLMResponses, res.Raw)
}

func (e *Engine) notify(n Notifier, data string, action string) {
	if n == nil {
		return
	}
	n.Event(&model.StreamEvent{
		Data:            data,
		Status:          true,
		StreamingStatus: model.StreamInProgress,
		Action:          action,
	})
}

func (e *Engine) emitMessages(n Notifier, messages []string) {
	for _, msg := range messages {
		e.notify(n, msg, model.ActionMessage)
	}
}

// saveRun persists the run summary. Best effort: failures are logged, never
// surfaced to the caller.
func (e *Engine) saveRun(req *model.ExecuteRequest, result *model.ExecutionResponse, start time.Time) {
	if e.store == nil {
		return
	}
	end := time.Now()
	errText := ""
	if result.Error != nil {
		errText = *result.Error
	}
	servers, _ := json.Marshal(req.SelectedServers)
	run := &model.RunRecord{
		RunID:             uuid.NewString(),
		Client:            req.SelectedClient,
		Servers:           string(servers),
		Input:             req.ClientDetails.Input,
		Status:            result.Status,
		Error:             errText,
		TotalLLMCalls:     result.Data.TotalLLMCalls,
		TotalTokens:       result.Data.TotalTokens,
		TotalInputTokens:  result.Data.TotalInputTokens,
		TotalOutputTokens: result.Data.TotalOutputTokens,
		ToolCalls:         len(result.Data.ExecutedToolCalls),
		OutputType:        result.Data.OutputType,
		StartTime:         start,
		EndTime:           end,
		Duration:          end.Sub(start).String(),
	}
	if err := e.store.SaveRun(run); err != nil {
		e.logger.Errorf("Failed to save run record: %v", err)
	}
}
