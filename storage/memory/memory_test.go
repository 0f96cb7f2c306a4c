package memory

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/tersePrompts/fastMCP4J-sub002/storage"
)

func TestSetGetRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	item, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if item == nil || string(item.Data) != "v" {
		t.Fatalf("item = %+v", item)
	}
	if item.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestGetAbsentIsNilNil(t *testing.T) {
	s := New()
	item, err := s.Get(context.Background(), "missing")
	if err != nil {
		t.Fatal(err)
	}
	if item != nil {
		t.Errorf("item = %+v, want nil", item)
	}
}

func TestSessionNamespacing(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("global")); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "k", []byte("a"), storage.WithSession("sess-a")); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "k", []byte("b"), storage.WithSession("sess-b")); err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		opts []storage.Option
		want string
	}{
		{nil, "global"},
		{[]storage.Option{storage.WithSession("sess-a")}, "a"},
		{[]storage.Option{storage.WithSession("sess-b")}, "b"},
	} {
		item, err := s.Get(ctx, "k", tc.opts...)
		if err != nil {
			t.Fatal(err)
		}
		if item == nil || string(item.Data) != tc.want {
			t.Errorf("got %+v, want %q", item, tc.want)
		}
	}
}

func TestTTLExpiry(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v"), storage.WithTTL(10*time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	item, err := s.Get(ctx, "k")
	if err != nil || item == nil {
		t.Fatalf("item before expiry = %+v, err %v", item, err)
	}

	time.Sleep(20 * time.Millisecond)
	item, err = s.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if item != nil {
		t.Errorf("expired item still returned: %+v", item)
	}
}

func TestDeleteKeyAndNamespace(t *testing.T) {
	s := New()
	ctx := context.Background()
	sess := storage.WithSession("sess")

	for _, k := range []string{"a", "b", "c"} {
		if err := s.Set(ctx, k, []byte(k), sess); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Set(ctx, "global-key", []byte("g")); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(ctx, sess, storage.WithKey("b")); err != nil {
		t.Fatal(err)
	}
	keys, err := s.Keys(ctx, "", sess)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(keys, []string{"a", "c"}) {
		t.Errorf("keys after single delete = %v", keys)
	}

	if err := s.Delete(ctx, sess); err != nil {
		t.Fatal(err)
	}
	keys, err = s.Keys(ctx, "", sess)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 0 {
		t.Errorf("keys after namespace delete = %v", keys)
	}

	// The global namespace is untouched.
	item, err := s.Get(ctx, "global-key")
	if err != nil || item == nil {
		t.Errorf("global key lost: %+v, err %v", item, err)
	}
}

func TestKeysPrefixFilterSorted(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, k := range []string{"note:b", "note:a", "todo:x"} {
		if err := s.Set(ctx, k, []byte("v")); err != nil {
			t.Fatal(err)
		}
	}
	keys, err := s.Keys(ctx, "note:")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(keys, []string{"note:a", "note:b"}) {
		t.Errorf("keys = %v", keys)
	}
}

func TestSetCopiesData(t *testing.T) {
	s := New()
	ctx := context.Background()
	buf := []byte("original")
	if err := s.Set(ctx, "k", buf); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'X'
	item, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(item.Data) != "original" {
		t.Errorf("stored data aliased caller buffer: %q", item.Data)
	}
}

func TestClosedStore(t *testing.T) {
	s := New()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := s.Set(ctx, "k", nil); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("Set err = %v, want ErrClosed", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("Get err = %v, want ErrClosed", err)
	}
	if _, err := s.Keys(ctx, ""); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("Keys err = %v, want ErrClosed", err)
	}
}
