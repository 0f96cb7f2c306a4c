package fastmcp

import (
	"context"
	"log/slog"

	"github.com/tersePrompts/fastMCP4J-sub002/mcp"
)

// ResourceChange describes what happened to a resource.
type ResourceChange string

const (
	ResourceCreated ResourceChange = "created"
	ResourceUpdated ResourceChange = "updated"
	ResourceDeleted ResourceChange = "deleted"
)

// Notifier is the best-effort out-of-band signal channel available to
// handlers mid-execution. Implementations must be fire-and-forget: delivery
// failures are swallowed (logged at most) and never affect dispatch outcome,
// which is why none of the methods return an error.
type Notifier interface {
	Log(ctx context.Context, level mcp.LoggingLevel, message string)
	Progress(ctx context.Context, progress, total float64, message string)
	ResourceChanged(ctx context.Context, uri string, change ResourceChange)
}

// NewSlogNotifier returns a Notifier that writes notifications to a slog
// handler. It is the default sink when no transport-backed notifier is
// configured. A nil handler discards everything.
func NewSlogNotifier(h slog.Handler) Notifier {
	if h == nil {
		h = slog.DiscardHandler
	}
	return &slogNotifier{log: slog.New(h)}
}

type slogNotifier struct {
	log *slog.Logger
}

func (n *slogNotifier) Log(ctx context.Context, level mcp.LoggingLevel, message string) {
	n.log.LogAttrs(ctx, slogLevel(level), message, slog.String("channel", "notification"))
}

func (n *slogNotifier) Progress(ctx context.Context, progress, total float64, message string) {
	n.log.LogAttrs(ctx, slog.LevelInfo, "progress",
		slog.Float64("progress", progress),
		slog.Float64("total", total),
		slog.String("message", message))
}

func (n *slogNotifier) ResourceChanged(ctx context.Context, uri string, change ResourceChange) {
	n.log.LogAttrs(ctx, slog.LevelInfo, "resource changed",
		slog.String("uri", uri),
		slog.String("change", string(change)))
}

func slogLevel(level mcp.LoggingLevel) slog.Level {
	switch level {
	case mcp.LoggingLevelDebug:
		return slog.LevelDebug
	case mcp.LoggingLevelInfo, mcp.LoggingLevelNotice:
		return slog.LevelInfo
	case mcp.LoggingLevelWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
