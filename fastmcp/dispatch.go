package fastmcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/tersePrompts/fastMCP4J-sub002/hooks"
	"github.com/tersePrompts/fastMCP4J-sub002/internal/logctx"
)

// dispatchSpec describes one dispatchable entity to the shared state
// machine. Tools run the hook chain; resources and prompts do not.
type dispatchSpec struct {
	kind      string // "tool", "resource", "prompt"
	name      string
	bind      *binding
	async     bool
	useHooks  bool
	sessionID string
}

type invokeOutcome struct {
	value any
	err   error
}

// Dispatch runs one tool call through the pipeline:
//
//	Bound -> PreHooked -> Invoked -> PostHooked -> Marshalled -> Complete
//
// with Failed reachable from every transition. It always returns a *Call,
// already resolved for synchronous handlers and resolved from a continuation
// for asynchronous ones; callers never receive an unhandled error from the
// dispatch boundary.
func (s *Server) Dispatch(ctx context.Context, name string, args map[string]any) *Call {
	return s.DispatchSession(ctx, "", name, args)
}

// DispatchSession is Dispatch with an explicit session identity for
// session-scoped state.
func (s *Server) DispatchSession(ctx context.Context, sessionID, name string, args map[string]any) *Call {
	td, ok := s.lookupTool(name)
	if !ok {
		return resolved(failedResult(ErrorNotFound, fmt.Sprintf("tool not found: %s", name)))
	}
	return s.dispatch(ctx, dispatchSpec{
		kind:      "tool",
		name:      name,
		bind:      td.bind,
		async:     td.Async,
		useHooks:  true,
		sessionID: sessionID,
	}, args)
}

// DispatchResource reads the resource registered under uri. Resources skip
// the tool hook chain but share the rest of the pipeline.
func (s *Server) DispatchResource(ctx context.Context, uri string, args map[string]any) *Call {
	rd, ok := s.lookupResource(uri)
	if !ok {
		return resolved(failedResult(ErrorNotFound, fmt.Sprintf("resource not found: %s", uri)))
	}
	return s.dispatch(ctx, dispatchSpec{
		kind:  "resource",
		name:  rd.Name,
		bind:  rd.bind,
		async: rd.Async,
	}, args)
}

// DispatchPrompt renders the named prompt.
func (s *Server) DispatchPrompt(ctx context.Context, name string, args map[string]any) *Call {
	pd, ok := s.lookupPrompt(name)
	if !ok {
		return resolved(failedResult(ErrorNotFound, fmt.Sprintf("prompt not found: %s", name)))
	}
	return s.dispatch(ctx, dispatchSpec{
		kind:  "prompt",
		name:  name,
		bind:  pd.bind,
		async: pd.Async,
	}, args)
}

func (s *Server) dispatch(ctx context.Context, spec dispatchSpec, args map[string]any) *Call {
	call := newCall()
	start := time.Now()
	rc := newRequestContext(s, spec.name, spec.sessionID)

	ctx = logctx.WithDispatchData(ctx, &logctx.DispatchData{
		RequestID: rc.requestID,
		Kind:      spec.kind,
		Name:      spec.name,
	})
	if spec.sessionID != "" {
		ctx = logctx.WithSessionData(ctx, &logctx.SessionData{SessionID: spec.sessionID})
	}

	var cancel context.CancelFunc
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
	}
	finish := func(res DispatchResult) {
		if cancel != nil {
			cancel()
		}
		s.metrics.RecordInvocation(spec.kind, spec.name, time.Since(start), res.Success)
		if !res.Success {
			s.log.Warn("dispatch failed",
				slog.String("kind", spec.kind),
				slog.String("name", spec.name),
				slog.String("error_kind", res.ErrorKind.String()),
				slog.String("err", res.ErrorMessage))
		}
		call.resolve(res)
	}

	// Bound.
	bound, err := bindArguments(ctx, spec.bind, spec.name, args, rc)
	if err != nil {
		finish(failedResult(ErrorBinding, err.Error()))
		return call
	}

	// PreHooked. A pre-hook may replace the arguments map, in which case the
	// positional bind is redone against the replacement.
	if spec.useHooks {
		hookedArgs, herr := s.hooks.RunPre(ctx, spec.name, args)
		s.metrics.RecordHook(spec.name, "pre", herr == nil)
		if herr != nil {
			finish(classifyHookFailure(herr))
			return call
		}
		if mapReplaced(args, hookedArgs) {
			args = hookedArgs
			bound, err = bindArguments(ctx, spec.bind, spec.name, args, rc)
			if err != nil {
				finish(failedResult(ErrorBinding, err.Error()))
				return call
			}
		}
	}

	// Invoked. Async handlers run on their own goroutine with the remaining
	// states attached as a continuation; the dispatching goroutine is never
	// parked waiting for them.
	if spec.async {
		outCh := make(chan invokeOutcome, 1)
		go func() {
			value, err := spec.bind.call(bound)
			outCh <- invokeOutcome{value: value, err: err}
		}()
		go func() {
			select {
			case out := <-outCh:
				finish(s.completeDispatch(ctx, spec, args, out))
			case <-ctx.Done():
				// Detach: the handler goroutine may still finish, but its
				// result is discarded and no worker stays blocked on it.
				finish(failedResult(ErrorTimeout, fmt.Sprintf("%s %s timed out: %v", spec.kind, spec.name, ctx.Err())))
			}
		}()
		return call
	}

	if ctx.Err() != nil {
		finish(failedResult(ErrorTimeout, fmt.Sprintf("%s %s timed out: %v", spec.kind, spec.name, ctx.Err())))
		return call
	}
	out := invokeOutcome{}
	out.value, out.err = spec.bind.call(bound)
	finish(s.completeDispatch(ctx, spec, args, out))
	return call
}

// completeDispatch runs the PostHooked and Marshalled states once the
// handler has resolved, synchronously or from the async continuation.
func (s *Server) completeDispatch(ctx context.Context, spec dispatchSpec, args map[string]any, out invokeOutcome) DispatchResult {
	if out.err != nil {
		s.log.Error("handler failed",
			slog.String("kind", spec.kind),
			slog.String("name", spec.name),
			slog.String("err", out.err.Error()))
		return failedResult(ErrorHandler, out.err.Error())
	}

	value := out.value
	if spec.useHooks {
		hooked, err := s.hooks.RunPost(ctx, spec.name, args, value)
		s.metrics.RecordHook(spec.name, "post", err == nil)
		if err != nil {
			return classifyHookFailure(err)
		}
		value = hooked
	}

	res, err := marshalResult(spec.name, value)
	if err != nil {
		return failedResult(ErrorMarshal, err.Error())
	}
	return res
}

func classifyHookFailure(err error) DispatchResult {
	var denied *hooks.DeniedError
	if errors.As(err, &denied) {
		msg := denied.Message
		if msg == "" {
			msg = denied.Error()
		}
		return failedResult(ErrorDenied, msg)
	}
	return failedResult(ErrorHook, err.Error())
}

// mapReplaced reports whether a hook substituted a different arguments map.
// Mutation in place is visible to the existing bind already; only a
// replacement forces a re-bind.
func mapReplaced(orig, hooked map[string]any) bool {
	if hooked == nil {
		return orig != nil
	}
	if orig == nil {
		return true
	}
	return reflect.ValueOf(orig).Pointer() != reflect.ValueOf(hooked).Pointer()
}
