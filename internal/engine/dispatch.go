// SPDX-License-Identifier: AGPL-3.0-only
package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sriram687/adya-mcp-hackathon/internal/errors"
	"github.com/sriram687/adya-mcp-hackathon/internal/logging"
	"github.com/sriram687/adya-mcp-hackathon/internal/registry"
)

// Argument keys under which caller credentials are injected for servers that
// expect them.
const (
	credentialsArgKey       = "__credentials__"
	serverCredentialsArgKey = "server_credentials"
)

// Dispatcher routes tool calls to the owning MCP server session.
type Dispatcher struct {
	registry *registry.Registry
	logger   *logging.Logger
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(reg *registry.Registry, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	return &Dispatcher{registry: reg, logger: logger}
}

// Execute invokes one tool on the named server. A failing tool call is NOT an
// error: the failure text becomes the result so the model can react to it.
// The only error case is a server missing from the registry.
func (d *Dispatcher) Execute(ctx context.Context, server string, credentials map[string]map[string]any, name string, args map[string]any) (any, error) {
	entry, ok := d.registry.Get(server)
	if !ok {
		return nil, errors.NotFound("server", server)
	}

	if args == nil {
		args = map[string]any{}
	}
	if entry.InjectCredentials {
		creds := credentials[server]
		if creds == nil {
			creds = map[string]any{}
		}
		args[credentialsArgKey] = creds
		args[serverCredentialsArgKey] = creds
	}

	result, err := entry.Session.CallTool(ctx, name, args)
	if err != nil {
		d.logger.Errorf("%v", errors.ToolCall(server, name, err))
		return err.Error(), nil
	}
	return normalizeToolResult(result), nil
}

// normalizeToolResult guarantees a JSON-serializable value, falling back to
// the value's string form.
func normalizeToolResult(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return out
}
