// Package hooks implements the ordered pre/post interception chain that runs
// around tool dispatch.
//
// Hooks are plain functions registered against an exact tool name or the
// wildcard "*". Within each phase they execute in ascending numeric order;
// ties keep registration order. A hook receives the best-effort subset of
// {context, tool name, arguments map, result value} that its signature
// declares; parameters the manager cannot supply stay at their zero value.
//
// Hook failures are governed by a per-manager FailureMode. A hook may also
// return a Result to short-circuit dispatch: Deny aborts before the handler
// runs, ModifyArguments / ModifyResult replace the in-flight value, Allow is
// a no-op.
package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
)

// Wildcard matches every tool name.
const Wildcard = "*"

// Phase identifies where in the dispatch a hook runs.
type Phase int

const (
	PhasePre Phase = iota
	PhasePost
)

func (p Phase) String() string {
	if p == PhasePre {
		return "pre"
	}
	return "post"
}

// FailureMode controls what happens when a hook returns an error or panics.
type FailureMode int

const (
	// FailureWarn logs the failure and continues dispatch. Default.
	FailureWarn FailureMode = iota
	// FailureStrict aborts the whole dispatch by propagating the failure.
	FailureStrict
	// FailureSilent swallows the failure entirely.
	FailureSilent
)

// ParseFailureMode maps a configuration string to a FailureMode.
func ParseFailureMode(s string) (FailureMode, error) {
	switch s {
	case "", "warn":
		return FailureWarn, nil
	case "strict":
		return FailureStrict, nil
	case "silent":
		return FailureSilent, nil
	default:
		return FailureWarn, fmt.Errorf("hooks: unknown failure mode %q", s)
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithFailureMode sets the manager-wide failure policy.
func WithFailureMode(mode FailureMode) Option {
	return func(m *Manager) { m.mode = mode }
}

// WithLogger sets the slog handler used for hook diagnostics. Defaults to
// discarding output.
func WithLogger(h slog.Handler) Option {
	return func(m *Manager) {
		if h != nil {
			m.log = slog.New(h)
		}
	}
}

// Manager owns the ordered pre and post hook lists bound to one server
// instance. The lists are built during server construction and are read-only
// once dispatch begins.
type Manager struct {
	log  *slog.Logger
	mode FailureMode

	mu   sync.RWMutex
	pre  []record
	post []record
	seq  int
}

// NewManager constructs an empty Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		log:  slog.New(slog.DiscardHandler),
		mode: FailureWarn,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FailureMode reports the manager's configured failure policy.
func (m *Manager) FailureMode() FailureMode { return m.mode }

// argKind describes what the manager supplies for one hook parameter.
type argKind int

const (
	argZero argKind = iota // unmatched: stays at its zero value
	argCtx
	argTool
	argArgs
	argResult // pre phase has no result; the args map is supplied instead
)

type record struct {
	fn    reflect.Value
	tool  string
	order int
	seq   int
	plan  []argKind
	// return-value positions; -1 when absent
	resultIdx int
	errIdx    int
	name      string
}

func (r *record) matches(tool string) bool {
	return r.tool == tool || r.tool == Wildcard
}

// Register adds a hook function targeting the given tool name (or Wildcard).
// The function may declare any subset of (context.Context, string,
// map[string]any, any) parameters, in any order, and may return a *Result, an
// error, both, or nothing.
//
// Functions with reflectively escalating parameter types (reflect.Value,
// unsafe.Pointer, uintptr, channels, nested funcs) fail validation with
// ErrUnsafeHook; callers are expected to log and skip rather than abort.
func (m *Manager) Register(phase Phase, tool string, order int, fn any) error {
	if fn == nil {
		return fmt.Errorf("hooks: nil hook for tool %q", tool)
	}
	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	if ft.Kind() != reflect.Func {
		return fmt.Errorf("hooks: hook for tool %q is %s, want func", tool, ft.Kind())
	}
	if tool == "" {
		tool = Wildcard
	}

	rec := record{
		fn:        fv,
		tool:      tool,
		order:     order,
		resultIdx: -1,
		errIdx:    -1,
		name:      ft.String(),
	}

	for i := 0; i < ft.NumIn(); i++ {
		kind, err := classifyParam(ft.In(i))
		if err != nil {
			return fmt.Errorf("%w: param %d of %s: %v", ErrUnsafeHook, i, ft, err)
		}
		rec.plan = append(rec.plan, kind)
	}
	if err := classifyReturns(ft, &rec); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	rec.seq = m.seq
	m.seq++
	switch phase {
	case PhasePre:
		m.pre = insertSorted(m.pre, rec)
	case PhasePost:
		m.post = insertSorted(m.post, rec)
	default:
		return fmt.Errorf("hooks: unknown phase %d", phase)
	}
	return nil
}

// insertSorted keeps the list ascending by order with registration order
// breaking ties (stable).
func insertSorted(list []record, rec record) []record {
	list = append(list, rec)
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].order != list[j].order {
			return list[i].order < list[j].order
		}
		return list[i].seq < list[j].seq
	})
	return list
}

var (
	ctxType    = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType    = reflect.TypeOf((*error)(nil)).Elem()
	anyType    = reflect.TypeOf((*any)(nil)).Elem()
	argsType   = reflect.TypeOf(map[string]any(nil))
	stringType = reflect.TypeOf("")
	resultType = reflect.TypeOf((*Result)(nil))
)

func classifyParam(t reflect.Type) (argKind, error) {
	switch {
	case t == ctxType:
		return argCtx, nil
	case t == stringType:
		return argTool, nil
	case t == argsType:
		return argArgs, nil
	case t == anyType:
		return argResult, nil
	}
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Uintptr:
		return argZero, fmt.Errorf("disallowed kind %s", t.Kind())
	}
	if t == reflect.TypeOf(reflect.Value{}) {
		return argZero, fmt.Errorf("disallowed type reflect.Value")
	}
	// Anything else stays at its zero value rather than aborting the call.
	return argZero, nil
}

func classifyReturns(ft reflect.Type, rec *record) error {
	if ft.NumOut() > 2 {
		return fmt.Errorf("hooks: %s returns %d values, want at most 2", ft, ft.NumOut())
	}
	for i := 0; i < ft.NumOut(); i++ {
		switch out := ft.Out(i); {
		case out == resultType:
			rec.resultIdx = i
		case out.Implements(errType):
			rec.errIdx = i
		default:
			return fmt.Errorf("hooks: %s returns unsupported type %s", ft, out)
		}
	}
	return nil
}

// RunPre executes the matching pre-hooks for tool in order. It returns the
// (possibly replaced) arguments map. A Deny outcome surfaces as *DeniedError;
// hook failures surface only under FailureStrict, wrapped in *ExecutionError.
func (m *Manager) RunPre(ctx context.Context, tool string, args map[string]any) (map[string]any, error) {
	m.mu.RLock()
	chain := m.pre
	m.mu.RUnlock()

	for i := range chain {
		rec := &chain[i]
		if !rec.matches(tool) {
			continue
		}
		res, err := m.invoke(ctx, rec, tool, args, args)
		if err != nil {
			if herr := m.handleFailure(PhasePre, tool, rec, err); herr != nil {
				return nil, herr
			}
			continue
		}
		if res == nil {
			continue
		}
		switch res.status {
		case StatusDeny:
			return nil, &DeniedError{Tool: tool, Message: res.message}
		case StatusModify:
			if res.hasArgs {
				args = res.args
			}
		}
	}
	return args, nil
}

// RunPost executes the matching post-hooks for tool in order with the
// resolved handler result. It returns the (possibly replaced) result value.
func (m *Manager) RunPost(ctx context.Context, tool string, args map[string]any, result any) (any, error) {
	m.mu.RLock()
	chain := m.post
	m.mu.RUnlock()

	for i := range chain {
		rec := &chain[i]
		if !rec.matches(tool) {
			continue
		}
		res, err := m.invoke(ctx, rec, tool, args, result)
		if err != nil {
			if herr := m.handleFailure(PhasePost, tool, rec, err); herr != nil {
				return nil, herr
			}
			continue
		}
		if res != nil && res.status == StatusModify && res.hasResult {
			result = res.result
		}
	}
	return result, nil
}

func (m *Manager) handleFailure(phase Phase, tool string, rec *record, err error) error {
	switch m.mode {
	case FailureStrict:
		return &ExecutionError{Tool: tool, Phase: phase, Hook: rec.name, Err: err}
	case FailureWarn:
		m.log.Error("hook execution failed",
			slog.String("tool", tool),
			slog.String("phase", phase.String()),
			slog.String("hook", rec.name),
			slog.String("err", err.Error()))
	case FailureSilent:
	}
	return nil
}

// invoke calls one hook with its compiled argument plan. Panics inside the
// hook are recovered and reported as errors so the failure mode applies.
func (m *Manager) invoke(ctx context.Context, rec *record, tool string, args map[string]any, result any) (res *Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = fmt.Errorf("hook panicked: %v", p)
		}
	}()

	in := make([]reflect.Value, len(rec.plan))
	ft := rec.fn.Type()
	for i, kind := range rec.plan {
		switch kind {
		case argCtx:
			in[i] = reflect.ValueOf(ctx)
		case argTool:
			in[i] = reflect.ValueOf(tool)
		case argArgs:
			if args != nil {
				in[i] = reflect.ValueOf(args)
			} else {
				in[i] = reflect.Zero(ft.In(i))
			}
		case argResult:
			if result != nil {
				in[i] = reflect.ValueOf(result)
			} else {
				in[i] = reflect.Zero(ft.In(i))
			}
		default:
			in[i] = reflect.Zero(ft.In(i))
		}
	}

	out := rec.fn.Call(in)
	if rec.errIdx >= 0 && !out[rec.errIdx].IsNil() {
		return nil, out[rec.errIdx].Interface().(error)
	}
	if rec.resultIdx >= 0 && !out[rec.resultIdx].IsNil() {
		res = out[rec.resultIdx].Interface().(*Result)
	}
	return res, nil
}
