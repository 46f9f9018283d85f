// SPDX-License-Identifier: AGPL-3.0-only
package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sriram687/adya-mcp-hackathon/internal/model"
)

// Screening tag markers emitted by the model.
const (
	functionCallTrueTag  = "<function_call>TRUE</function_call>"
	selectedToolsOpenTag = "<selected_tools>"
	selectedToolsEndTag  = "</selected_tools>"
)

// ScreeningResult is the parsed outcome of the screening call.
type ScreeningResult struct {
	IsFunctionCall bool
	SelectedTools  []string
}

// ParseScreeningResponse extracts the function-call verdict and selected tool
// names from the screening response text. Anything that does not carry the
// exact TRUE tag is treated as "no call".
func ParseScreeningResponse(content string) ScreeningResult {
	var out ScreeningResult
	if content == "" {
		return out
	}
	if !strings.Contains(content, functionCallTrueTag) {
		return out
	}
	out.IsFunctionCall = true

	start := strings.Index(content, selectedToolsOpenTag)
	end := strings.Index(content, selectedToolsEndTag)
	if start == -1 || end == -1 || end < start {
		return out
	}
	toolsStr := strings.TrimSpace(content[start+len(selectedToolsOpenTag) : end])
	if strings.ToLower(toolsStr) == "none" {
		return out
	}
	for _, name := range strings.Split(toolsStr, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			out.SelectedTools = append(out.SelectedTools, name)
		}
	}
	return out
}

// toolSummary is the compact tool digest embedded in prompts.
type toolSummary struct {
	FunctionName        string `json:"function_name"`
	FunctionDescription string `json:"function_description"`
}

// summarizeTools reduces the full catalog to name/description pairs.
func summarizeTools(tools []model.Tool) []toolSummary {
	out := make([]toolSummary, len(tools))
	for i, t := range tools {
		out[i] = toolSummary{
			FunctionName:        t.Function.Name,
			FunctionDescription: t.Function.Description,
		}
	}
	return out
}

// summarizeToolsJSON is summarizeTools serialized for prompt embedding.
func summarizeToolsJSON(tools []model.Tool) string {
	b, err := json.Marshal(summarizeTools(tools))
	if err != nil {
		return "[]"
	}
	return string(b)
}

// screeningPrompt builds the system prompt for the screening call: the model
// must answer with the tag protocol only, never a free-form reply.
func screeningPrompt(server string, tools []model.Tool) string {
	return fmt.Sprintf(`
        You are an %s AI assistant that analyzes user requests and determines the require tool calls from available tools.
        Available tools: %s
        Analyze each request to determine if it matches available tool capabilities or needs clarification.
        Return TRUE for tool calls when the request clearly maps to available tools without checking the required parameters.
        Return FALSE when the request is ambiguous, missing parameters, or requires more information.
        Output format:
            <function_call>TRUE/FALSE</function_call>
            <selected_tools>function_name1,function_name2 or "none"</selected_tools>
        Use exact tool names from available tools. List all relevant tools ordered by relevance.
        `, server, summarizeToolsJSON(tools))
}

// selectTools narrows the catalog to the screened names, preserving the
// screening order. Names with no catalog match are dropped.
func selectTools(names []string, catalog []model.Tool) []model.Tool {
	var out []model.Tool
	for _, name := range names {
		for _, t := range catalog {
			if t.Function.Name == name {
				out = append(out, t)
				break
			}
		}
	}
	return out
}
