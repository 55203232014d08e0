// Package mcp exposes sync status and control to AI assistants over the
// Model Context Protocol.
package mcp

import "errors"

// ErrMissingScheduler is returned when the scheduler port is not provided.
var ErrMissingScheduler = errors.New("mcp: scheduler is required")
