package fastmcp

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func mustBinding(t *testing.T, fn any, params ...ParamSpec) *binding {
	t.Helper()
	b, err := compileBinding("tool \"test\"", fn, params)
	if err != nil {
		t.Fatalf("compileBinding failed: %v", err)
	}
	return b
}

func TestSchemaPrimitiveTypes(t *testing.T) {
	b := mustBinding(t,
		func(s string, n int, f float64, ok bool) {},
		Param("s"), Param("n"), Param("f"), Param("ok"),
	)
	want := map[string]string{"s": "string", "n": "integer", "f": "number", "ok": "boolean"}
	for name, typ := range want {
		prop, exists := b.schema.Properties[name]
		if !exists {
			t.Fatalf("property %q missing", name)
		}
		if prop.Type != typ {
			t.Errorf("property %q type = %q, want %q", name, prop.Type, typ)
		}
	}
	if b.schema.Type != "object" {
		t.Errorf("schema type = %q, want object", b.schema.Type)
	}
}

func TestSchemaCompositeTypes(t *testing.T) {
	type point struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	b := mustBinding(t,
		func(tags []string, attrs map[string]any, p point) {},
		Param("tags"), Param("attrs"), Param("p"),
	)

	tags := b.schema.Properties["tags"]
	if tags.Type != "array" || tags.Items == nil || tags.Items.Type != "string" {
		t.Errorf("tags schema = %+v, want array of string", tags)
	}
	if b.schema.Properties["attrs"].Type != "object" {
		t.Errorf("attrs type = %q, want object", b.schema.Properties["attrs"].Type)
	}
	p := b.schema.Properties["p"]
	if p.Type != "object" {
		t.Errorf("struct type = %q, want object", p.Type)
	}
	if p.Properties["x"].Type != "number" || p.Properties["y"].Type != "number" {
		t.Errorf("struct properties = %+v, want x/y numbers", p.Properties)
	}
}

func TestSchemaRequiredOnlyAtRoot(t *testing.T) {
	b := mustBinding(t,
		func(a, b string, c int) {},
		Param("a"),
		Param("b", ParamDefault("x")),
		Param("c", ParamOptional()),
	)
	if !reflect.DeepEqual(b.schema.Required, []string{"a"}) {
		t.Errorf("required = %v, want [a]", b.schema.Required)
	}
	if b.schema.Properties["b"].Default != "x" {
		t.Errorf("default = %v, want x", b.schema.Properties["b"].Default)
	}
}

func TestSchemaDescriptionFolding(t *testing.T) {
	b := mustBinding(t,
		func(q string) {},
		Param("q",
			ParamDescription("Search query"),
			ParamExamples("foo", "bar baz"),
			ParamConstraints("non-empty"),
			ParamHints("prefer short queries"),
		),
	)
	got := b.schema.Properties["q"].Description
	want := "Search query\n\nExamples: foo, bar baz\n\nConstraints: non-empty\n\nHints: prefer short queries"
	if got != want {
		t.Errorf("description = %q, want %q", got, want)
	}
}

func TestSchemaDescriptionFoldingWithoutBase(t *testing.T) {
	b := mustBinding(t,
		func(q string) {},
		Param("q", ParamExamples("foo")),
	)
	if got := b.schema.Properties["q"].Description; got != "Examples: foo" {
		t.Errorf("description = %q", got)
	}
}

func TestSchemaUnsupportedTypeFailsScan(t *testing.T) {
	cases := []struct {
		name string
		fn   any
	}{
		{"chan", func(c chan int) {}},
		{"func", func(f func()) {}},
		{"non-string map key", func(m map[int]string) {}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := compileBinding("tool \"bad\"", tc.fn, []ParamSpec{Param("p")})
			var scanErr *ScanError
			if !errors.As(err, &scanErr) {
				t.Errorf("error = %v, want *ScanError", err)
			}
		})
	}
}

func TestSchemaInjectedParamsExcluded(t *testing.T) {
	b := mustBinding(t,
		func(ctx context.Context, rc *RequestContext, msg string) {},
		Param("msg"),
	)
	if len(b.schema.Properties) != 1 {
		t.Errorf("properties = %v, want only msg", b.schema.Properties)
	}
	if _, ok := b.schema.Properties["msg"]; !ok {
		t.Error("msg property missing")
	}
}

func TestCompileBindingParamCountMismatch(t *testing.T) {
	if _, err := compileBinding("tool \"t\"", func(a, b string) {}, []ParamSpec{Param("a")}); err == nil {
		t.Error("expected error for too few Param specs")
	}
	if _, err := compileBinding("tool \"t\"", func(a string) {}, []ParamSpec{Param("a"), Param("b")}); err == nil {
		t.Error("expected error for too many Param specs")
	}
}

func TestCompileBindingDuplicateParamName(t *testing.T) {
	_, err := compileBinding("tool \"t\"", func(a, b string) {}, []ParamSpec{Param("x"), Param("x")})
	var scanErr *ScanError
	if !errors.As(err, &scanErr) {
		t.Errorf("error = %v, want *ScanError", err)
	}
}

func TestCompileBindingReturnShapes(t *testing.T) {
	ok := []any{
		func() {},
		func() error { return nil },
		func() string { return "" },
		func() (string, error) { return "", nil },
	}
	for i, fn := range ok {
		if _, err := compileBinding("tool \"t\"", fn, nil); err != nil {
			t.Errorf("case %d: unexpected error %v", i, err)
		}
	}
	bad := []any{
		func() (string, int) { return "", 0 },
		func() (string, error, error) { return "", nil, nil },
	}
	for i, fn := range bad {
		if _, err := compileBinding("tool \"t\"", fn, nil); err == nil {
			t.Errorf("bad case %d: expected error", i)
		}
	}
}
