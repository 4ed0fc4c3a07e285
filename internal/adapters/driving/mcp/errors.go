// Package mcp provides a Model Context Protocol server adapter.
// It lets AI assistants query and manage the document corpus.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")
