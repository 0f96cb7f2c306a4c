package fastmcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tersePrompts/fastMCP4J-sub002/mcp"
	"github.com/tersePrompts/fastMCP4J-sub002/storage"
)

// RequestContext gives handler code access to per-dispatch capabilities:
// client-visible logging, progress reporting, and session-scoped state. Each
// dispatch receives its own instance; it is never shared or mutated across
// concurrent dispatches. Handlers receive it by declaring a *RequestContext
// parameter, which is excluded from the input schema and supplied by the
// pipeline.
type RequestContext struct {
	requestID  string
	serverName string
	tool       string
	sessionID  string

	notifier Notifier
	store    storage.Interface
	log      *slog.Logger
}

func newRequestContext(s *Server, tool, sessionID string) *RequestContext {
	return &RequestContext{
		requestID:  uuid.NewString(),
		serverName: s.info.Name,
		tool:       tool,
		sessionID:  sessionID,
		notifier:   s.notifier,
		store:      s.store,
		log:        s.log,
	}
}

// RequestID returns the unique ID assigned to this dispatch.
func (rc *RequestContext) RequestID() string { return rc.requestID }

// ServerName returns the name of the server handling the dispatch.
func (rc *RequestContext) ServerName() string { return rc.serverName }

// Tool returns the name of the tool, resource or prompt being dispatched.
func (rc *RequestContext) Tool() string { return rc.tool }

// SessionID identifies the client session, when the transport provides one.
func (rc *RequestContext) SessionID() string { return rc.sessionID }

// Debug sends a debug-level log notification to the client. Best-effort.
func (rc *RequestContext) Debug(ctx context.Context, message string) {
	rc.notifier.Log(ctx, mcp.LoggingLevelDebug, message)
}

// Info sends an info-level log notification to the client. Best-effort.
func (rc *RequestContext) Info(ctx context.Context, message string) {
	rc.notifier.Log(ctx, mcp.LoggingLevelInfo, message)
}

// Warning sends a warning-level log notification to the client. Best-effort.
func (rc *RequestContext) Warning(ctx context.Context, message string) {
	rc.notifier.Log(ctx, mcp.LoggingLevelWarning, message)
}

// Error sends an error-level log notification to the client. Best-effort.
func (rc *RequestContext) Error(ctx context.Context, message string) {
	rc.notifier.Log(ctx, mcp.LoggingLevelError, message)
}

// ReportProgress emits a progress notification for long-running work.
// Best-effort: it never blocks dispatch or surfaces delivery failures.
func (rc *RequestContext) ReportProgress(ctx context.Context, progress, total float64, message string) {
	rc.notifier.Progress(ctx, progress, total, message)
}

// SetState stores a JSON-serialized value in session-scoped state. State
// persists across dispatches within the same session.
func (rc *RequestContext) SetState(ctx context.Context, key string, value any) error {
	if rc.store == nil {
		return fmt.Errorf("fastmcp: no session store configured")
	}
	buf, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode state %q: %w", key, err)
	}
	return rc.store.Set(ctx, key, buf, storage.WithSession(rc.sessionID))
}

// GetState loads a session state value into out. It reports whether the key
// was present.
func (rc *RequestContext) GetState(ctx context.Context, key string, out any) (bool, error) {
	if rc.store == nil {
		return false, fmt.Errorf("fastmcp: no session store configured")
	}
	item, err := rc.store.Get(ctx, key, storage.WithSession(rc.sessionID))
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, nil
	}
	if err := json.Unmarshal(item.Data, out); err != nil {
		return false, fmt.Errorf("decode state %q: %w", key, err)
	}
	return true, nil
}

// DeleteState removes a session state value.
func (rc *RequestContext) DeleteState(ctx context.Context, key string) error {
	if rc.store == nil {
		return fmt.Errorf("fastmcp: no session store configured")
	}
	return rc.store.Delete(ctx, storage.WithSession(rc.sessionID), storage.WithKey(key))
}
