package fastmcp

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tersePrompts/fastMCP4J-sub002/hooks"
)

func newTestServer(t *testing.T, opts ...ServerOption) *Server {
	t.Helper()
	s, err := NewServer("test", "0.0.1", opts...)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func registerAdd(t *testing.T, s *Server, opts ...ToolOption) {
	t.Helper()
	all := append([]ToolOption{
		WithParams(Param("a"), Param("b")),
	}, opts...)
	err := s.RegisterTool("add", func(a, b float64) float64 { return a + b }, all...)
	if err != nil {
		t.Fatal(err)
	}
}

func TestDispatchSync(t *testing.T) {
	s := newTestServer(t)
	registerAdd(t, s)

	res := s.Dispatch(context.Background(), "add", map[string]any{"a": 3.0, "b": 5.0}).Await(context.Background())
	if !res.Success {
		t.Fatalf("dispatch failed: %s", res.ErrorMessage)
	}
	if res.Content != "8" {
		t.Errorf("content = %q, want 8", res.Content)
	}
}

func TestDispatchAsync(t *testing.T) {
	s := newTestServer(t)
	err := s.RegisterTool("echo",
		func(ctx context.Context, rc *RequestContext, message string) (string, error) {
			time.Sleep(5 * time.Millisecond)
			return "echo: " + message, nil
		},
		WithParams(Param("message")),
		Async(),
	)
	if err != nil {
		t.Fatal(err)
	}

	call := s.Dispatch(context.Background(), "echo", map[string]any{"message": "hello"})
	res := call.Await(context.Background())
	if !res.Success {
		t.Fatalf("dispatch failed: %s", res.ErrorMessage)
	}
	if res.Content != "echo: hello" {
		t.Errorf("content = %q, want echo: hello", res.Content)
	}
}

func TestDispatchSyncAsyncEquivalence(t *testing.T) {
	double := func(n int) int { return n * 2 }
	args := map[string]any{"n": 21.0}

	syncSrv := newTestServer(t)
	if err := syncSrv.RegisterTool("double", double, WithParams(Param("n"))); err != nil {
		t.Fatal(err)
	}
	asyncSrv := newTestServer(t)
	if err := asyncSrv.RegisterTool("double", double, WithParams(Param("n")), Async()); err != nil {
		t.Fatal(err)
	}

	a := syncSrv.Dispatch(context.Background(), "double", args).Await(context.Background())
	b := asyncSrv.Dispatch(context.Background(), "double", args).Await(context.Background())
	if a != b {
		t.Errorf("sync result %+v differs from async result %+v", a, b)
	}
}

func TestDispatchNotFound(t *testing.T) {
	s := newTestServer(t)
	res := s.Dispatch(context.Background(), "missing", nil).Await(context.Background())
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.ErrorKind != ErrorNotFound {
		t.Errorf("kind = %v, want ErrorNotFound", res.ErrorKind)
	}
}

func TestDispatchBindingFailure(t *testing.T) {
	s := newTestServer(t)
	registerAdd(t, s)
	res := s.Dispatch(context.Background(), "add", map[string]any{"a": 1.0}).Await(context.Background())
	if res.ErrorKind != ErrorBinding {
		t.Errorf("kind = %v, want ErrorBinding", res.ErrorKind)
	}
	if !strings.Contains(res.ErrorMessage, "missing required argument") {
		t.Errorf("message = %q", res.ErrorMessage)
	}
}

func TestDispatchHandlerError(t *testing.T) {
	s := newTestServer(t)
	err := s.RegisterTool("fail", func() error { return errors.New("disk on fire") })
	if err != nil {
		t.Fatal(err)
	}
	res := s.Dispatch(context.Background(), "fail", nil).Await(context.Background())
	if res.ErrorKind != ErrorHandler {
		t.Errorf("kind = %v, want ErrorHandler", res.ErrorKind)
	}
	if res.ErrorMessage != "disk on fire" {
		t.Errorf("message = %q", res.ErrorMessage)
	}
}

func TestDispatchHandlerPanic(t *testing.T) {
	s := newTestServer(t)
	if err := s.RegisterTool("boom", func() string { panic("oops") }); err != nil {
		t.Fatal(err)
	}
	res := s.Dispatch(context.Background(), "boom", nil).Await(context.Background())
	if res.ErrorKind != ErrorHandler {
		t.Errorf("kind = %v, want ErrorHandler", res.ErrorKind)
	}
}

func TestDispatchDeniedByPreHook(t *testing.T) {
	s := newTestServer(t)
	registerAdd(t, s)
	invoked := false
	if err := s.RegisterTool("probe", func() { invoked = true }); err != nil {
		t.Fatal(err)
	}
	err := s.PreHook(hooks.Wildcard, 0, func() *hooks.Result {
		return hooks.Deny("no calls today")
	})
	if err != nil {
		t.Fatal(err)
	}

	res := s.Dispatch(context.Background(), "probe", nil).Await(context.Background())
	if res.ErrorKind != ErrorDenied {
		t.Errorf("kind = %v, want ErrorDenied", res.ErrorKind)
	}
	if res.ErrorMessage != "no calls today" {
		t.Errorf("message = %q", res.ErrorMessage)
	}
	if invoked {
		t.Error("handler ran despite denial")
	}
}

func TestDispatchPreHookReplacesArguments(t *testing.T) {
	s := newTestServer(t)
	registerAdd(t, s)
	err := s.PreHook("add", 0, func(args map[string]any) *hooks.Result {
		return hooks.ModifyArguments(map[string]any{"a": 10.0, "b": 20.0})
	})
	if err != nil {
		t.Fatal(err)
	}

	res := s.Dispatch(context.Background(), "add", map[string]any{"a": 1.0, "b": 2.0}).Await(context.Background())
	if !res.Success {
		t.Fatalf("dispatch failed: %s", res.ErrorMessage)
	}
	if res.Content != "30" {
		t.Errorf("content = %q, want 30 (re-bound arguments)", res.Content)
	}
}

func TestDispatchPostHookModifiesResult(t *testing.T) {
	s := newTestServer(t)
	registerAdd(t, s)
	err := s.PostHook("add", 0, func(result any) *hooks.Result {
		return hooks.ModifyResult("censored")
	})
	if err != nil {
		t.Fatal(err)
	}

	res := s.Dispatch(context.Background(), "add", map[string]any{"a": 1.0, "b": 2.0}).Await(context.Background())
	if res.Content != "censored" {
		t.Errorf("content = %q, want censored", res.Content)
	}
}

func TestDispatchHookStrictFailure(t *testing.T) {
	s := newTestServer(t, WithHookFailureMode(hooks.FailureStrict))
	registerAdd(t, s)
	err := s.PreHook("add", 0, func() error { return errors.New("hook broke") })
	if err != nil {
		t.Fatal(err)
	}
	res := s.Dispatch(context.Background(), "add", map[string]any{"a": 1.0, "b": 2.0}).Await(context.Background())
	if res.ErrorKind != ErrorHook {
		t.Errorf("kind = %v, want ErrorHook", res.ErrorKind)
	}
}

func TestDispatchUnsafeHookSkipped(t *testing.T) {
	s := newTestServer(t)
	registerAdd(t, s)
	// The unsafe hook is logged and skipped, never an error to the caller.
	if err := s.PreHook("add", 0, func(c chan int) {}); err != nil {
		t.Fatalf("PreHook returned %v, want nil for skipped hook", err)
	}
	res := s.Dispatch(context.Background(), "add", map[string]any{"a": 3.0, "b": 5.0}).Await(context.Background())
	if !res.Success {
		t.Errorf("dispatch failed: %s", res.ErrorMessage)
	}
}

func TestDispatchTimeoutDetachesAsyncHandler(t *testing.T) {
	s := newTestServer(t, WithDispatchTimeout(20*time.Millisecond))
	done := make(chan struct{})
	err := s.RegisterTool("slow", func() string {
		defer close(done)
		time.Sleep(200 * time.Millisecond)
		return "late"
	}, Async())
	if err != nil {
		t.Fatal(err)
	}

	res := s.Dispatch(context.Background(), "slow", nil).Await(context.Background())
	if res.ErrorKind != ErrorTimeout {
		t.Fatalf("kind = %v, want ErrorTimeout", res.ErrorKind)
	}

	// The detached handler still finishes but cannot overwrite the result.
	<-done
	time.Sleep(10 * time.Millisecond)
}

func TestCallResolvesOnce(t *testing.T) {
	c := newCall()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.resolve(DispatchResult{Success: true, Content: string(rune('a' + i))})
		}()
	}
	wg.Wait()
	res, ok := c.Result()
	if !ok {
		t.Fatal("call not resolved")
	}
	first := res
	res2 := c.Await(context.Background())
	if res2 != first {
		t.Errorf("Await result %+v differs from first resolution %+v", res2, first)
	}
}

func TestAwaitHonoursContext(t *testing.T) {
	c := newCall()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	res := c.Await(ctx)
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.ErrorKind != ErrorTimeout {
		t.Errorf("kind = %v, want ErrorTimeout", res.ErrorKind)
	}
}

func TestDispatchResourceAndPrompt(t *testing.T) {
	s := newTestServer(t)
	err := s.RegisterResource("memo://greeting", "greeting", func() string {
		return "hello there"
	}, WithMimeType("text/plain"))
	if err != nil {
		t.Fatal(err)
	}
	err = s.RegisterPrompt("review", func(focus string) string {
		return "Please review with focus on " + focus
	}, WithPromptParams(Param("focus")))
	if err != nil {
		t.Fatal(err)
	}

	res := s.DispatchResource(context.Background(), "memo://greeting", nil).Await(context.Background())
	if !res.Success || res.Content != "hello there" {
		t.Errorf("resource res = %+v", res)
	}
	res = s.DispatchPrompt(context.Background(), "review", map[string]any{"focus": "errors"}).Await(context.Background())
	if !res.Success || res.Content != "Please review with focus on errors" {
		t.Errorf("prompt res = %+v", res)
	}
}

func TestDispatchResourceSkipsHooks(t *testing.T) {
	s := newTestServer(t)
	err := s.RegisterResource("memo://x", "x", func() string { return "body" })
	if err != nil {
		t.Fatal(err)
	}
	err = s.PreHook(hooks.Wildcard, 0, func() *hooks.Result { return hooks.Deny("tools only") })
	if err != nil {
		t.Fatal(err)
	}
	res := s.DispatchResource(context.Background(), "memo://x", nil).Await(context.Background())
	if !res.Success {
		t.Errorf("resource dispatch hit the tool hook chain: %+v", res)
	}
}
