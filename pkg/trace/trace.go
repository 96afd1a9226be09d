// Package trace provides hierarchical trace contexts for correlating nested
// pattern executions. A trace context is immutable: deriving a child or
// sibling always returns a new value.
package trace

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// Context identifies one position in a run's call tree.
//
// TraceID is stable for an entire top-level run (32 hex chars), SpanID is
// unique per context (16 hex chars), and ParentSpanID links a child to the
// span that created it. Path records the human-readable chain of names from
// the root, e.g. ["debate", "rebuttal", "claude"].
type Context struct {
	TraceID      string   `json:"trace_id"`
	SpanID       string   `json:"span_id"`
	ParentSpanID string   `json:"parent_span_id,omitempty"`
	Path         []string `json:"path"`
}

// New creates a root trace context with a fresh trace ID.
func New(name string) *Context {
	return &Context{
		TraceID: newTraceID(),
		SpanID:  newSpanID(),
		Path:    []string{name},
	}
}

// Child derives a context one level deeper: same trace ID, new span ID,
// parent span set to this context's span, and name appended to the path.
func (c *Context) Child(name string) *Context {
	path := make([]string, len(c.Path)+1)
	copy(path, c.Path)
	path[len(c.Path)] = name

	return &Context{
		TraceID:      c.TraceID,
		SpanID:       newSpanID(),
		ParentSpanID: c.SpanID,
		Path:         path,
	}
}

// Sibling derives a context at the same level: same trace ID and parent
// span, new span ID. A non-empty name replaces the last path segment.
func (c *Context) Sibling(name string) *Context {
	path := make([]string, len(c.Path))
	copy(path, c.Path)
	if name != "" && len(path) > 0 {
		path[len(path)-1] = name
	}

	return &Context{
		TraceID:      c.TraceID,
		SpanID:       newSpanID(),
		ParentSpanID: c.ParentSpanID,
		Path:         path,
	}
}

// Name returns the last path segment, or "" for an empty path.
func (c *Context) Name() string {
	if len(c.Path) == 0 {
		return ""
	}
	return c.Path[len(c.Path)-1]
}

// newTraceID mints a 128-bit trace ID as 32 lowercase hex characters.
// UUIDs are unique enough; cryptographic randomness is not required here.
func newTraceID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// newSpanID mints a 64-bit span ID as 16 lowercase hex characters.
func newSpanID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:8])
}
