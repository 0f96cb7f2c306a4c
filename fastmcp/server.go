package fastmcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/tersePrompts/fastMCP4J-sub002/hooks"
	"github.com/tersePrompts/fastMCP4J-sub002/internal/logctx"
	"github.com/tersePrompts/fastMCP4J-sub002/mcp"
	"github.com/tersePrompts/fastMCP4J-sub002/storage"
	"github.com/tersePrompts/fastMCP4J-sub002/telemetry"
)

// Server owns the descriptor built from registrations and the collaborators
// the dispatch pipeline needs: the hook manager, notifier, session store,
// metrics and lifecycle registry. Registration is the scan phase; once
// serving starts the descriptor is read-only and dispatch holds no
// cross-call mutable state.
type Server struct {
	info         mcp.ImplementationInfo
	instructions string
	icons        []mcp.Icon

	mu        sync.RWMutex
	tools     []*ToolDescriptor
	toolIdx   map[string]*ToolDescriptor
	resources []*ResourceDescriptor
	resIdx    map[string]*ResourceDescriptor
	prompts   []*PromptDescriptor
	promptIdx map[string]*PromptDescriptor

	hooks    *hooks.Manager
	notifier Notifier
	store    storage.Interface
	metrics  telemetry.Metrics
	registry *Registry
	log      *slog.Logger

	toolsChanged ChangeNotifier

	pageSize int
	timeout  time.Duration
}

// ServerOption configures a Server during construction.
type ServerOption func(*Server) error

// WithInstructions sets the instructions text advertised to clients.
func WithInstructions(text string) ServerOption {
	return func(s *Server) error {
		s.instructions = text
		return nil
	}
}

// WithServerIcons attaches icons declared in the compact
// "src[:mime[:sizes[:theme]]]" form. Invalid icons fail construction.
func WithServerIcons(icons ...string) ServerOption {
	return func(s *Server) error {
		parsed, err := parseIcons("server "+s.info.Name, icons)
		if err != nil {
			return err
		}
		s.icons = parsed
		return nil
	}
}

// WithLogger sets the slog handler for framework diagnostics. Defaults to
// discarding output. The handler is wrapped so records emitted during a
// dispatch carry the request and session attributes from the context.
func WithLogger(h slog.Handler) ServerOption {
	return func(s *Server) error {
		if h != nil {
			s.log = slog.New(logctx.Handler{Handler: h})
		}
		return nil
	}
}

// WithNotifier replaces the default slog-backed notification sink.
func WithNotifier(n Notifier) ServerOption {
	return func(s *Server) error {
		if n != nil {
			s.notifier = n
		}
		return nil
	}
}

// WithSessionStore configures the storage backend for session-scoped state.
func WithSessionStore(st storage.Interface) ServerOption {
	return func(s *Server) error {
		s.store = st
		return nil
	}
}

// WithMetrics sets the telemetry recorder. Defaults to a no-op.
func WithMetrics(m telemetry.Metrics) ServerOption {
	return func(s *Server) error {
		if m != nil {
			s.metrics = m
		}
		return nil
	}
}

// WithRegistry attaches a lifecycle provider registry.
func WithRegistry(r *Registry) ServerOption {
	return func(s *Server) error {
		if r != nil {
			s.registry = r
		}
		return nil
	}
}

// WithHookFailureMode sets the process-wide hook failure policy. The
// manager is rebuilt, so set this before registering hooks.
func WithHookFailureMode(mode hooks.FailureMode) ServerOption {
	return func(s *Server) error {
		s.hooks = hooks.NewManager(hooks.WithFailureMode(mode), hooks.WithLogger(s.log.Handler()))
		return nil
	}
}

// WithPageSize sets the default page size for list operations.
func WithPageSize(n int) ServerOption {
	return func(s *Server) error {
		if n > 0 {
			s.pageSize = n
		}
		return nil
	}
}

// WithDispatchTimeout caps every dispatch end to end. Zero disables.
func WithDispatchTimeout(d time.Duration) ServerOption {
	return func(s *Server) error {
		if d >= 0 {
			s.timeout = d
		}
		return nil
	}
}

// WithConfig applies an environment-decoded Config.
func WithConfig(c Config) ServerOption {
	return func(s *Server) error {
		mode, err := hooks.ParseFailureMode(c.HookFailureMode)
		if err != nil {
			return err
		}
		s.hooks = hooks.NewManager(hooks.WithFailureMode(mode), hooks.WithLogger(s.log.Handler()))
		if c.PageSize > 0 {
			s.pageSize = c.PageSize
		}
		if c.DispatchTimeout > 0 {
			s.timeout = c.DispatchTimeout
		}
		return nil
	}
}

// NewServer constructs a Server. The name and version identify the
// implementation to clients; a missing name is a *ScanError because the
// server marker is the one mandatory piece of metadata.
func NewServer(name, version string, opts ...ServerOption) (*Server, error) {
	if name == "" {
		return nil, scanErrorf("server", "missing server name")
	}
	s := &Server{
		info:      mcp.ImplementationInfo{Name: name, Version: version},
		toolIdx:   make(map[string]*ToolDescriptor),
		resIdx:    make(map[string]*ResourceDescriptor),
		promptIdx: make(map[string]*PromptDescriptor),
		log:       slog.New(slog.DiscardHandler),
		metrics:   telemetry.NewNoop(),
		pageSize:  DefaultPageSize,
	}
	s.notifier = NewSlogNotifier(nil)
	s.hooks = hooks.NewManager()
	s.registry = NewRegistry(nil)
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Info returns the implementation identity.
func (s *Server) Info() mcp.ImplementationInfo { return s.info }

// Instructions returns the advertised instructions text.
func (s *Server) Instructions() string { return s.instructions }

// Icons returns the server-level icon list.
func (s *Server) Icons() []mcp.Icon { return s.icons }

// Registry returns the lifecycle provider registry bound to this server.
func (s *Server) Registry() *Registry { return s.registry }

// Notifier returns the configured notification sink.
func (s *Server) Notifier() Notifier { return s.notifier }

// Hooks returns the hook manager bound to this server instance.
func (s *Server) Hooks() *hooks.Manager { return s.hooks }

// --- tool registration ---

// ToolOption configures one tool registration.
type ToolOption func(*toolConfig)

type toolConfig struct {
	description string
	params      []ParamSpec
	async       bool
	progress    bool
	icons       []string
}

// WithDescription sets the tool description used in listings.
func WithDescription(desc string) ToolOption {
	return func(c *toolConfig) { c.description = desc }
}

// WithParams declares the handler's client-visible parameters in order.
func WithParams(params ...ParamSpec) ToolOption {
	return func(c *toolConfig) { c.params = params }
}

// Async marks the handler asynchronous: it is invoked on its own goroutine
// and the dispatch resolves through a continuation instead of inline.
func Async() ToolOption {
	return func(c *toolConfig) { c.async = true }
}

// WithProgress marks the tool progress-capable.
func WithProgress() ToolOption {
	return func(c *toolConfig) { c.progress = true }
}

// WithToolIcons attaches icons in the compact string form.
func WithToolIcons(icons ...string) ToolOption {
	return func(c *toolConfig) { c.icons = icons }
}

// RegisterTool adds a tool. An empty name defaults to the handler's symbol
// name. Duplicate names, unmappable parameter types and malformed metadata
// fail with *ScanError so a broken server never starts.
func (s *Server) RegisterTool(name string, fn any, opts ...ToolOption) error {
	cfg := toolConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if name == "" {
		name = funcName(fn)
	}
	if name == "" {
		return scanErrorf("tool", "cannot determine tool name; pass one explicitly")
	}
	entity := fmt.Sprintf("tool %q", name)

	b, err := compileBinding(entity, fn, cfg.params)
	if err != nil {
		return err
	}
	icons, err := parseIcons(entity, cfg.icons)
	if err != nil {
		return err
	}

	td := &ToolDescriptor{
		Name:        name,
		Description: cfg.description,
		Async:       cfg.async,
		Progress:    cfg.progress,
		Icons:       icons,
		bind:        b,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.toolIdx[name]; exists {
		return scanErrorf(entity, "duplicate tool name")
	}
	s.tools = append(s.tools, td)
	s.toolIdx[name] = td
	go func() { _ = s.toolsChanged.Notify(context.Background()) }()
	return nil
}

// --- resource registration ---

// ResourceOption configures one resource registration.
type ResourceOption func(*resourceConfig)

type resourceConfig struct {
	description string
	mimeType    string
	params      []ParamSpec
	async       bool
	icons       []string
}

// WithResourceDescription sets the resource description.
func WithResourceDescription(desc string) ResourceOption {
	return func(c *resourceConfig) { c.description = desc }
}

// WithMimeType declares the resource's MIME type. Validated at build time.
func WithMimeType(mt string) ResourceOption {
	return func(c *resourceConfig) { c.mimeType = mt }
}

// WithResourceParams declares handler parameters for templated resources.
func WithResourceParams(params ...ParamSpec) ResourceOption {
	return func(c *resourceConfig) { c.params = params }
}

// AsyncResource marks the resource handler asynchronous.
func AsyncResource() ResourceOption {
	return func(c *resourceConfig) { c.async = true }
}

// WithResourceIcons attaches icons in the compact string form.
func WithResourceIcons(icons ...string) ResourceOption {
	return func(c *resourceConfig) { c.icons = icons }
}

// RegisterResource adds a resource under the given URI. An empty name
// defaults to the handler's symbol name.
func (s *Server) RegisterResource(uri, name string, fn any, opts ...ResourceOption) error {
	cfg := resourceConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if uri == "" {
		return scanErrorf("resource", "missing resource URI")
	}
	if name == "" {
		name = funcName(fn)
	}
	if name == "" {
		return scanErrorf(fmt.Sprintf("resource %q", uri), "cannot determine resource name; pass one explicitly")
	}
	entity := fmt.Sprintf("resource %q", name)

	if cfg.mimeType != "" && !validMediaType(cfg.mimeType) {
		return scanErrorf(entity, "invalid MIME type %q", cfg.mimeType)
	}
	b, err := compileBinding(entity, fn, cfg.params)
	if err != nil {
		return err
	}
	icons, err := parseIcons(entity, cfg.icons)
	if err != nil {
		return err
	}

	rd := &ResourceDescriptor{
		URI:         uri,
		Name:        name,
		Description: cfg.description,
		MimeType:    cfg.mimeType,
		Async:       cfg.async,
		Icons:       icons,
		bind:        b,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.resIdx[uri]; exists {
		return scanErrorf(entity, "duplicate resource URI %q", uri)
	}
	s.resources = append(s.resources, rd)
	s.resIdx[uri] = rd
	return nil
}

// --- prompt registration ---

// PromptOption configures one prompt registration.
type PromptOption func(*promptConfig)

type promptConfig struct {
	description string
	params      []ParamSpec
	async       bool
	icons       []string
}

// WithPromptDescription sets the prompt description.
func WithPromptDescription(desc string) PromptOption {
	return func(c *promptConfig) { c.description = desc }
}

// WithPromptParams declares the prompt's arguments in order.
func WithPromptParams(params ...ParamSpec) PromptOption {
	return func(c *promptConfig) { c.params = params }
}

// AsyncPrompt marks the prompt handler asynchronous.
func AsyncPrompt() PromptOption {
	return func(c *promptConfig) { c.async = true }
}

// WithPromptIcons attaches icons in the compact string form.
func WithPromptIcons(icons ...string) PromptOption {
	return func(c *promptConfig) { c.icons = icons }
}

// RegisterPrompt adds a prompt. An empty name defaults to the handler's
// symbol name.
func (s *Server) RegisterPrompt(name string, fn any, opts ...PromptOption) error {
	cfg := promptConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if name == "" {
		name = funcName(fn)
	}
	if name == "" {
		return scanErrorf("prompt", "cannot determine prompt name; pass one explicitly")
	}
	entity := fmt.Sprintf("prompt %q", name)

	b, err := compileBinding(entity, fn, cfg.params)
	if err != nil {
		return err
	}
	icons, err := parseIcons(entity, cfg.icons)
	if err != nil {
		return err
	}

	pd := &PromptDescriptor{
		Name:        name,
		Description: cfg.description,
		Async:       cfg.async,
		Icons:       icons,
		bind:        b,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.promptIdx[name]; exists {
		return scanErrorf(entity, "duplicate prompt name")
	}
	s.prompts = append(s.prompts, pd)
	s.promptIdx[name] = pd
	return nil
}

// --- hook registration ---

// PreHook registers a pre-dispatch hook for the named tool (or
// hooks.Wildcard). Hooks failing the safety validation are logged and
// skipped, matching the original contract where isolation is not a
// misconfiguration.
func (s *Server) PreHook(tool string, order int, fn any) error {
	return s.registerHook(hooks.PhasePre, tool, order, fn)
}

// PostHook registers a post-dispatch hook for the named tool.
func (s *Server) PostHook(tool string, order int, fn any) error {
	return s.registerHook(hooks.PhasePost, tool, order, fn)
}

func (s *Server) registerHook(phase hooks.Phase, tool string, order int, fn any) error {
	err := s.hooks.Register(phase, tool, order, fn)
	if errors.Is(err, hooks.ErrUnsafeHook) {
		s.log.Warn("skipping hook that failed safety validation",
			slog.String("tool", tool),
			slog.String("phase", phase.String()),
			slog.String("err", err.Error()))
		return nil
	}
	return err
}

// --- lifecycle ---

// Start initializes and starts the lifecycle registry. It must be called
// before serving; a provider initialization failure aborts startup.
func (s *Server) Start(ctx context.Context) error {
	if err := s.registry.Initialize(ctx); err != nil {
		return err
	}
	return s.registry.Start(ctx)
}

// Stop notifies providers of shutdown and closes the change notifier.
func (s *Server) Stop(ctx context.Context) {
	s.registry.Stop(ctx)
	s.toolsChanged.Close()
}

// --- descriptor access / listing ---

// Descriptor snapshots the complete server descriptor.
func (s *Server) Descriptor() *ServerDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := &ServerDescriptor{
		Info:         s.info,
		Instructions: s.instructions,
		Icons:        s.icons,
		Tools:        make([]*ToolDescriptor, len(s.tools)),
		Resources:    make([]*ResourceDescriptor, len(s.resources)),
		Prompts:      make([]*PromptDescriptor, len(s.prompts)),
	}
	copy(d.Tools, s.tools)
	copy(d.Resources, s.resources)
	copy(d.Prompts, s.prompts)
	return d
}

// Tools snapshots the wire-level tool descriptors in registration order.
func (s *Server) Tools() []mcp.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]mcp.Tool, 0, len(s.tools))
	for _, td := range s.tools {
		out = append(out, td.Tool())
	}
	return out
}

// ListTools returns one page of tool descriptors.
func (s *Server) ListTools(cursor string) (Page[mcp.Tool], error) {
	return paginate(s.Tools(), s.defaultCursor(cursor))
}

// Resources snapshots the wire-level resource descriptors.
func (s *Server) Resources() []mcp.Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]mcp.Resource, 0, len(s.resources))
	for _, rd := range s.resources {
		out = append(out, rd.Resource())
	}
	return out
}

// ListResources returns one page of resource descriptors.
func (s *Server) ListResources(cursor string) (Page[mcp.Resource], error) {
	return paginate(s.Resources(), s.defaultCursor(cursor))
}

// Prompts snapshots the wire-level prompt descriptors.
func (s *Server) Prompts() []mcp.Prompt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]mcp.Prompt, 0, len(s.prompts))
	for _, pd := range s.prompts {
		out = append(out, pd.Prompt())
	}
	return out
}

// ListPrompts returns one page of prompt descriptors.
func (s *Server) ListPrompts(cursor string) (Page[mcp.Prompt], error) {
	return paginate(s.Prompts(), s.defaultCursor(cursor))
}

// ToolsChangedSubscriber returns a channel signalled when the tool set
// changes, for transports that forward listChanged notifications.
func (s *Server) ToolsChangedSubscriber() <-chan struct{} {
	return s.toolsChanged.Subscriber()
}

func (s *Server) defaultCursor(cursor string) string {
	if cursor == "" && s.pageSize != DefaultPageSize {
		return PageCursor{Offset: 0, Limit: s.pageSize}.Encode()
	}
	return cursor
}

func (s *Server) lookupTool(name string) (*ToolDescriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, ok := s.toolIdx[name]
	return td, ok
}

func (s *Server) lookupResource(uri string) (*ResourceDescriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rd, ok := s.resIdx[uri]
	return rd, ok
}

func (s *Server) lookupPrompt(name string) (*PromptDescriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pd, ok := s.promptIdx[name]
	return pd, ok
}

// --- icon parsing ---

// parseIcons parses the compact "src[:mime[:sizes[:theme]]]" icon form.
// The src may itself contain a scheme separator; sizes are comma-separated.
func parseIcons(entity string, specs []string) ([]mcp.Icon, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make([]mcp.Icon, 0, len(specs))
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		icon, err := parseIcon(spec)
		if err != nil {
			return nil, &ScanError{Entity: entity, Reason: "invalid icon " + spec, Err: err}
		}
		out = append(out, icon)
	}
	return out, nil
}

func parseIcon(spec string) (mcp.Icon, error) {
	src, rest := splitIconSource(spec)
	if !strings.HasPrefix(src, "https://") && !strings.HasPrefix(src, "data:") {
		return mcp.Icon{}, fmt.Errorf("icon source must be an https URL or data URI")
	}
	icon := mcp.Icon{Source: src}
	if rest != "" {
		parts := strings.SplitN(rest, ":", 3)
		icon.MimeType = strings.TrimSpace(parts[0])
		if icon.MimeType != "" && !validMediaType(icon.MimeType) {
			return mcp.Icon{}, fmt.Errorf("invalid icon MIME type %q", icon.MimeType)
		}
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			for _, sz := range strings.Split(parts[1], ",") {
				icon.Sizes = append(icon.Sizes, strings.TrimSpace(sz))
			}
		}
		if len(parts) > 2 {
			icon.Theme = strings.TrimSpace(parts[2])
		}
	}
	return icon, nil
}

// splitIconSource separates the source URI from the trailing metadata
// fields, tolerating the ":" inside the URI scheme. Data URIs embed ":" and
// "," freely, so trailing fields are not supported for them.
func splitIconSource(spec string) (src, rest string) {
	if strings.HasPrefix(spec, "data:") {
		return spec, ""
	}
	if i := strings.Index(spec, "://"); i >= 0 {
		tail := spec[i+3:]
		if j := strings.Index(tail, ":"); j >= 0 {
			return spec[:i+3+j], tail[j+1:]
		}
		return spec, ""
	}
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return spec, ""
}

// validMediaType reports whether s parses as a media type. contenttype
// yields a zero MediaType for malformed input.
func validMediaType(s string) bool {
	mt := contenttype.NewMediaType(s)
	return mt.Type != ""
}
