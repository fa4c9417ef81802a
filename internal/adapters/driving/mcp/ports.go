package mcp

import (
	"github.com/policyrag/policyrag/internal/core/ports/driving"
)

// Ports aggregates the driving port(s) required by the MCP server. This
// provides a single injection point for dependency injection.
type Ports struct {
	// Tools implements the four retrieval tools (§4.9).
	Tools driving.ToolService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Tools == nil {
		return ErrMissingToolService
	}
	return nil
}
