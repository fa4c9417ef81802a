// Package mcp exposes the four retrieval tools over the Model Context
// Protocol, so an MCP-capable client (e.g. Claude) can query verified
// insurance policy clauses directly.
package mcp

import "errors"

// ErrMissingToolService is returned when no driving.ToolService is provided.
var ErrMissingToolService = errors.New("mcp: tool service is required")
