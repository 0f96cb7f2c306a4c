package fastmcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"

	"github.com/tersePrompts/fastMCP4J-sub002/mcp"
)

// DirResources exposes a directory tree as resources on a Server and keeps
// the registration fresh with fsnotify: file writes and creations flow out
// through the server's Notifier as resourceChanged notifications.
//
// Security: the root is symlink-resolved at construction and every read is
// re-resolved and containment-checked, so a symlink planted inside the tree
// cannot escape it.
//
// DirResources is a lifecycle Provider: register it on the server's Registry
// so the watcher starts with the server and stops with it.
type DirResources struct {
	root    string // absolute, symlink-evaluated
	baseURI string
	log     *slog.Logger

	server *Server

	mu      sync.Mutex
	known   map[string]struct{} // registered relative paths
	cancel  context.CancelFunc
	changed ChangeNotifier
}

// DirOption configures DirResources.
type DirOption func(*DirResources)

// WithDirBaseURI sets the URI prefix for served files. Defaults to "file://".
func WithDirBaseURI(base string) DirOption {
	return func(d *DirResources) { d.baseURI = strings.TrimRight(base, "/") }
}

// WithDirLogger sets the slog handler for watcher diagnostics.
func WithDirLogger(h slog.Handler) DirOption {
	return func(d *DirResources) {
		if h != nil {
			d.log = slog.New(h)
		}
	}
}

// NewDirResources builds a directory-backed resource container rooted at
// root. The directory must exist.
func NewDirResources(root string, s *Server, opts ...DirOption) (*DirResources, error) {
	if s == nil {
		return nil, scanErrorf("dir resources", "nil server")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, scanErrorf("dir resources", "resolve root %q: %v", root, err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, scanErrorf("dir resources", "resolve root %q: %v", root, err)
	}
	d := &DirResources{
		root:    real,
		baseURI: "file://",
		log:     slog.New(slog.DiscardHandler),
		server:  s,
		known:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Name implements Provider.
func (d *DirResources) Name() string { return "dir-resources:" + d.root }

// Initialize scans the tree and registers one resource per regular file.
func (d *DirResources) Initialize(ctx context.Context) error {
	return filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable nodes
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() || entry.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		rel, rerr := filepath.Rel(d.root, p)
		if rerr != nil {
			return nil
		}
		return d.registerFile(filepath.ToSlash(rel))
	})
}

// OnStart begins watching the tree. The watcher owns its own context so it
// outlives the startup call and stops from OnStop.
func (d *DirResources) OnStart(context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("dir resources: start watcher: %w", err)
	}
	if err := filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil || !entry.IsDir() {
			return nil
		}
		return w.Add(p)
	}); err != nil {
		_ = w.Close()
		return fmt.Errorf("dir resources: watch tree: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()
	go d.run(ctx, w)
	return nil
}

func (d *DirResources) OnSessionStart(context.Context, string) error { return nil }
func (d *DirResources) OnSessionEnd(context.Context, string) error   { return nil }

// OnStop stops the watcher.
func (d *DirResources) OnStop(context.Context) error {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// Cleanup closes the change fanout.
func (d *DirResources) Cleanup(context.Context) error {
	d.changed.Close()
	return nil
}

// Subscriber returns a channel that ticks whenever the served file set or
// any file's content changes.
func (d *DirResources) Subscriber() <-chan struct{} { return d.changed.Subscriber() }

func (d *DirResources) run(ctx context.Context, w *fsnotify.Watcher) {
	defer func() {
		// Best-effort watcher close on the way out.
		_ = w.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			d.handleEvent(ctx, w, ev)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			d.log.Debug("watcher error", slog.String("err", err.Error()))
		}
	}
}

func (d *DirResources) handleEvent(ctx context.Context, w *fsnotify.Watcher, ev fsnotify.Event) {
	rel, ok := d.relOf(ev.Name)
	if !ok {
		return
	}
	switch {
	case ev.Op&fsnotify.Create != 0:
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.Add(ev.Name)
			return
		}
		if err := d.registerFile(rel); err != nil {
			d.log.Debug("register created file failed",
				slog.String("path", rel),
				slog.String("err", err.Error()))
			return
		}
		d.server.Notifier().ResourceChanged(ctx, d.uriOf(rel), ResourceCreated)
		_ = d.changed.Notify(ctx)
	case ev.Op&(fsnotify.Write|fsnotify.Chmod) != 0:
		d.server.Notifier().ResourceChanged(ctx, d.uriOf(rel), ResourceUpdated)
		_ = d.changed.Notify(ctx)
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		d.server.Notifier().ResourceChanged(ctx, d.uriOf(rel), ResourceDeleted)
		_ = d.changed.Notify(ctx)
	}
}

// registerFile registers one relative path, once. Reads resolve the path
// again at call time so a deleted file fails its read instead of serving a
// stale registration.
func (d *DirResources) registerFile(rel string) error {
	d.mu.Lock()
	if _, ok := d.known[rel]; ok {
		d.mu.Unlock()
		return nil
	}
	d.known[rel] = struct{}{}
	d.mu.Unlock()

	uri := d.uriOf(rel)
	read := func() (mcp.ResourceContents, error) {
		return d.readFile(uri, rel)
	}
	opts := []ResourceOption{
		WithResourceDescription("File " + rel),
	}
	if mt := mimeTypeOf(rel); mt != "" {
		opts = append(opts, WithMimeType(mt))
	}
	return d.server.RegisterResource(uri, filepath.Base(rel), read, opts...)
}

func (d *DirResources) readFile(uri, rel string) (mcp.ResourceContents, error) {
	abs := filepath.Join(d.root, filepath.FromSlash(rel))
	real, err := filepath.EvalSymlinks(abs)
	if err != nil || !withinRoot(real, d.root) {
		return mcp.ResourceContents{}, fmt.Errorf("resource not found: %s", uri)
	}
	data, err := os.ReadFile(real)
	if err != nil {
		return mcp.ResourceContents{}, fmt.Errorf("read %s: %w", uri, err)
	}
	rc := mcp.ResourceContents{URI: uri, MimeType: mimeTypeOf(rel)}
	if utf8.Valid(data) {
		rc.Text = string(data)
	} else {
		rc.Blob = base64.StdEncoding.EncodeToString(data)
	}
	return rc, nil
}

func (d *DirResources) uriOf(rel string) string {
	segs := strings.Split(rel, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return d.baseURI + "/" + strings.Join(segs, "/")
}

func (d *DirResources) relOf(abs string) (string, bool) {
	if !withinRoot(abs, d.root) {
		return "", false
	}
	rel, err := filepath.Rel(d.root, abs)
	if err != nil || rel == "." {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func mimeTypeOf(rel string) string {
	mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(rel)))
	if mt == "" {
		return "application/octet-stream"
	}
	return mt
}

// withinRoot reports whether target equals root or lies beneath it.
func withinRoot(target, root string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)))
}
