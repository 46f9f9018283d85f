// SPDX-License-Identifier: AGPL-3.0-only
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/sriram687/adya-mcp-hackathon/internal/llm"
	"github.com/sriram687/adya-mcp-hackathon/internal/model"
	"github.com/sriram687/adya-mcp-hackathon/internal/registry"
)

// Validation failures surfaced to callers.
var (
	ErrInvalidPayload = errors.New("Invalid Request Payload")
	ErrInvalidServer  = errors.New("Invalid Server")
	ErrInvalidClient  = errors.New("Invalid Client")
)

// Validator checks orchestration requests against the registry and the set of
// supported clients, and equips valid requests with the selected servers'
// tool catalogs.
type Validator struct {
	registry *registry.Registry
}

// NewValidator creates a validator over the given registry.
func NewValidator(reg *registry.Registry) *Validator {
	return &Validator{registry: reg}
}

// Validate rejects structurally broken requests and unknown servers/clients.
// On success it overwrites ClientDetails.Tools with the union of the selected
// servers' catalogs, in selection order. Catalogs are enumerated live, one
// ListTools call per server; a server that fails to answer fails the whole
// validation, never a partial catalog.
func (v *Validator) Validate(ctx context.Context, req *model.ExecuteRequest) error {
	if req == nil ||
		req.SelectedClient == "" ||
		len(req.SelectedServers) == 0 ||
		len(req.SelectedServerCredentials) == 0 ||
		req.ClientDetails.Input == "" {
		return ErrInvalidPayload
	}

	for _, server := range req.SelectedServers {
		if !v.registry.Has(server) {
			return fmt.Errorf("%w: %s", ErrInvalidServer, server)
		}
	}

	if !llm.IsSupported(req.SelectedClient) {
		return ErrInvalidClient
	}

	// Merge the selected servers' catalogs, first declaration of a name wins.
	var tools []model.Tool
	seen := make(map[string]bool)
	for _, server := range req.SelectedServers {
		entry, ok := v.registry.Get(server)
		if !ok {
			continue
		}
		serverTools, err := entry.Session.ListTools(ctx)
		if err != nil {
			return fmt.Errorf("list tools for server %s: %w", server, err)
		}
		for _, t := range serverTools {
			if seen[t.Function.Name] {
				continue
			}
			seen[t.Function.Name] = true
			tools = append(tools, t)
		}
	}
	req.ClientDetails.Tools = tools
	return nil
}
