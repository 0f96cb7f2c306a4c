package fastmcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// invoke compiles fn against params, binds args, and calls it, returning the
// handler's value return.
func invoke(t *testing.T, fn any, params []ParamSpec, args map[string]any) (any, error) {
	t.Helper()
	b, err := compileBinding("tool \"test\"", fn, params)
	if err != nil {
		t.Fatalf("compileBinding failed: %v", err)
	}
	bound, err := bindArguments(context.Background(), b, "test", args, nil)
	if err != nil {
		return nil, err
	}
	return b.call(bound)
}

func TestBindDeclaredOrder(t *testing.T) {
	fn := func(first, second, third string) string {
		return first + "/" + second + "/" + third
	}
	params := []ParamSpec{Param("first"), Param("second"), Param("third")}
	// Map iteration order must not matter.
	for i := 0; i < 10; i++ {
		got, err := invoke(t, fn, params, map[string]any{
			"third": "c", "first": "a", "second": "b",
		})
		if err != nil {
			t.Fatal(err)
		}
		if got != "a/b/c" {
			t.Fatalf("bound order wrong: got %v", got)
		}
	}
}

func TestBindNumericCoercion(t *testing.T) {
	got, err := invoke(t,
		func(n int, f float64) string { return fmt.Sprintf("%d %g", n, f) },
		[]ParamSpec{Param("n"), Param("f")},
		map[string]any{"n": 42.0, "f": 3.0},
	)
	if err != nil {
		t.Fatal(err)
	}
	if got != "42 3" {
		t.Errorf("got %v", got)
	}
}

func TestBindFractionalToIntFails(t *testing.T) {
	_, err := invoke(t,
		func(n int) int { return n },
		[]ParamSpec{Param("n")},
		map[string]any{"n": 3.5},
	)
	var bindErr *BindingError
	if !errors.As(err, &bindErr) {
		t.Fatalf("error = %v, want *BindingError", err)
	}
	if bindErr.Param != "n" {
		t.Errorf("param = %q, want n", bindErr.Param)
	}
}

func TestBindNegativeToUintFails(t *testing.T) {
	_, err := invoke(t,
		func(n uint) uint { return n },
		[]ParamSpec{Param("n")},
		map[string]any{"n": -1.0},
	)
	var bindErr *BindingError
	if !errors.As(err, &bindErr) {
		t.Errorf("error = %v, want *BindingError", err)
	}
}

func TestBindCompositeCoercion(t *testing.T) {
	type opts struct {
		Depth int  `json:"depth"`
		All   bool `json:"all"`
	}
	got, err := invoke(t,
		func(o opts, tags []string) string {
			return fmt.Sprintf("%d %v %s", o.Depth, o.All, strings.Join(tags, ","))
		},
		[]ParamSpec{Param("o"), Param("tags")},
		map[string]any{
			"o":    map[string]any{"depth": 2.0, "all": true},
			"tags": []any{"a", "b"},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	if got != "2 true a,b" {
		t.Errorf("got %v", got)
	}
}

func TestBindMissingRequired(t *testing.T) {
	_, err := invoke(t,
		func(a, b string) string { return a + b },
		[]ParamSpec{Param("a"), Param("b")},
		map[string]any{"a": "x"},
	)
	var bindErr *BindingError
	if !errors.As(err, &bindErr) {
		t.Fatalf("error = %v, want *BindingError", err)
	}
	if bindErr.Param != "b" {
		t.Errorf("param = %q, want b", bindErr.Param)
	}
}

func TestBindDefaultAndOptional(t *testing.T) {
	got, err := invoke(t,
		func(a, b string, n int) string { return fmt.Sprintf("%s %s %d", a, b, n) },
		[]ParamSpec{
			Param("a"),
			Param("b", ParamDefault("fallback")),
			Param("n", ParamOptional()),
		},
		map[string]any{"a": "x"},
	)
	if err != nil {
		t.Fatal(err)
	}
	if got != "x fallback 0" {
		t.Errorf("got %v", got)
	}
}

func TestBindExplicitNilUsesDefault(t *testing.T) {
	got, err := invoke(t,
		func(b string) string { return b },
		[]ParamSpec{Param("b", ParamDefault("fallback"))},
		map[string]any{"b": nil},
	)
	if err != nil {
		t.Fatal(err)
	}
	if got != "fallback" {
		t.Errorf("got %v", got)
	}
}

func TestBindTooManyArguments(t *testing.T) {
	args := make(map[string]any, maxArgumentCount+1)
	for i := 0; i <= maxArgumentCount; i++ {
		args[fmt.Sprintf("k%d", i)] = i
	}
	_, err := invoke(t, func(a string) string { return a }, []ParamSpec{Param("a")}, args)
	var bindErr *BindingError
	if !errors.As(err, &bindErr) {
		t.Fatalf("error = %v, want *BindingError", err)
	}
	if !strings.Contains(bindErr.Reason, "too many arguments") {
		t.Errorf("reason = %q", bindErr.Reason)
	}
}

func TestBindOversizedString(t *testing.T) {
	_, err := invoke(t,
		func(s string) int { return len(s) },
		[]ParamSpec{Param("s")},
		map[string]any{"s": strings.Repeat("x", maxArgumentSize+1)},
	)
	var bindErr *BindingError
	if !errors.As(err, &bindErr) {
		t.Fatalf("error = %v, want *BindingError", err)
	}
	if !strings.Contains(bindErr.Reason, "maximum size") {
		t.Errorf("reason = %q", bindErr.Reason)
	}
}

func TestBindUncoercible(t *testing.T) {
	_, err := invoke(t,
		func(n int) int { return n },
		[]ParamSpec{Param("n")},
		map[string]any{"n": "not a number"},
	)
	var bindErr *BindingError
	if !errors.As(err, &bindErr) {
		t.Errorf("error = %v, want *BindingError", err)
	}
}

func TestCallRecoversHandlerPanic(t *testing.T) {
	_, err := invoke(t,
		func() string { panic("boom") },
		nil, nil,
	)
	if err == nil || !strings.Contains(err.Error(), "handler panicked") {
		t.Errorf("err = %v, want recovered panic", err)
	}
}

func TestCallReturnsHandlerError(t *testing.T) {
	sentinel := errors.New("nope")
	_, err := invoke(t, func() error { return sentinel }, nil, nil)
	if !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want sentinel", err)
	}
}

func TestFuncNameDefault(t *testing.T) {
	if got := funcName(testHandlerForName); got != "testHandlerForName" {
		t.Errorf("funcName = %q", got)
	}
	if got := funcName(42); got != "" {
		t.Errorf("funcName(non-func) = %q, want empty", got)
	}
}

func testHandlerForName() string { return "" }
