// SPDX-License-Identifier: AGPL-3.0-only

// Package registry maintains the connected MCP servers and their tool
// catalogs. Servers are declared in a JSON config file and connected over
// stdio or SSE transports.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sriram687/adya-mcp-hackathon/internal/config"
	"github.com/sriram687/adya-mcp-hackathon/internal/logging"
	"github.com/sriram687/adya-mcp-hackathon/internal/model"
)

// Session is the subset of an MCP client session the orchestrator needs.
type Session interface {
	ListTools(ctx context.Context) ([]model.Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (any, error)
	Close() error
}

// Entry is one registered MCP server.
type Entry struct {
	Name string
	// InjectCredentials marks servers whose tools expect the caller's
	// credentials merged into every tool call's arguments.
	InjectCredentials bool
	Session           Session
	// Tools is the catalog snapshot taken at connect time. Request
	// validation enumerates live via Session.ListTools; this snapshot only
	// feeds startup logging and introspection.
	Tools []model.Tool
}

// Registry maps server names to live sessions.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	logger  *logging.Logger
}

// New creates an empty registry.
func New(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	return &Registry{
		entries: make(map[string]*Entry),
		logger:  logger,
	}
}

// serverSpec is one server block in the config file.
type serverSpec struct {
	Command           string   `json:"command,omitempty"`
	Args              []string `json:"args,omitempty"`
	URL               string   `json:"url,omitempty"`
	InjectCredentials bool     `json:"injectCredentials,omitempty"`
}

// LoadFromConfig reads the config file, connects a go-sdk client per declared
// server and caches each server's tool catalog. Servers that fail to connect
// are skipped with a log line rather than failing startup.
func (r *Registry) LoadFromConfig(ctx context.Context, cfg *config.Config) error {
	var fileCfg struct {
		MCP map[string]serverSpec `json:"mcpServers"`
	}
	raw, err := os.ReadFile(cfg.Registry.ConfigFilePath)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(raw, &fileCfg); err != nil {
		return err
	}

	for name, spec := range fileCfg.MCP {
		var tp mcp.Transport
		switch {
		case spec.Command != "":
			tp = &mcp.CommandTransport{Command: exec.Command(spec.Command, spec.Args...)}
		case spec.URL != "":
			tp = &mcp.SSEClientTransport{Endpoint: spec.URL}
		default:
			continue
		}

		cli := mcp.NewClient(&mcp.Implementation{Name: config.AppName, Version: config.AppVersion}, nil)
		session, err := cli.Connect(ctx, tp, nil)
		if err != nil {
			r.logger.Errorf("Failed to connect to server %s: %v", name, err)
			continue
		}

		sess := &mcpSession{session: session}
		tools, err := sess.ListTools(ctx)
		if err != nil {
			r.logger.Errorf("Failed to list tools for server %s: %v", name, err)
			_ = sess.Close()
			continue
		}

		r.Register(&Entry{
			Name:              name,
			InjectCredentials: spec.InjectCredentials,
			Session:           sess,
			Tools:             tools,
		})
		r.logger.Infof("Connected MCP server %s with %d tools", name, len(tools))
	}
	return nil
}

// Register adds or replaces a server entry.
func (r *Registry) Register(e *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.Name] = e
}

// Get returns the entry for a server name.
func (r *Registry) Get(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Has reports whether a server is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the registered server names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// Close closes every session. The registry is unusable afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for name, e := range r.entries {
		if e.Session == nil {
			continue
		}
		if err := e.Session.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close session %s: %w", name, err)
		}
	}
	r.entries = make(map[string]*Entry)
	return firstErr
}

// mcpSession wraps a go-sdk client session behind the Session interface.
type mcpSession struct {
	session *mcp.ClientSession
}

func (s *mcpSession) ListTools(ctx context.Context) ([]model.Tool, error) {
	resp, err := s.session.ListTools(ctx, nil)
	if err != nil {
		return nil, err
	}
	var tools []model.Tool
	for _, tl := range resp.Tools {
		var rawSchema []byte
		if tl.InputSchema != nil {
			b, err := json.Marshal(tl.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("marshal input schema for tool %s: %w", tl.Name, err)
			}
			rawSchema = b
		}
		var params map[string]any
		if len(rawSchema) > 0 {
			if err := json.Unmarshal(rawSchema, &params); err != nil {
				return nil, fmt.Errorf("unmarshal input schema for tool %s: %w", tl.Name, err)
			}
		}
		tools = append(tools, model.Tool{
			Type: model.ToolTypeFunction,
			Function: model.ToolFunction{
				Name:        tl.Name,
				Description: tl.Description,
				Parameters:  NormalizeSchema(params),
			},
		})
	}
	return tools, nil
}

func (s *mcpSession) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	res, err := s.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, err
	}
	// Flatten the content blocks into a JSON-compatible value
	raw, err := json.Marshal(res.Content)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return string(raw), nil
	}
	return out, nil
}

func (s *mcpSession) Close() error {
	return s.session.Close()
}

// NormalizeSchema patches empty object schemas with a dummy property so the
// OpenAI API, which rejects parameterless function schemas, accepts them.
func NormalizeSchema(params map[string]any) map[string]any {
	if params == nil {
		params = map[string]any{"type": "object"}
	}
	if params["type"] == "object" {
		props, _ := params["properties"].(map[string]any)
		if len(props) == 0 {
			params["properties"] = map[string]any{
				"random_string": map[string]any{
					"type":        "string",
					"description": "Dummy parameter for no-parameter tools",
				},
			}
			params["required"] = []string{"random_string"}
		}
	}
	return params
}
