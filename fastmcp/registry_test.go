package fastmcp

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordingProvider struct {
	ProviderBase
	events  *[]string
	initErr error
}

func (p *recordingProvider) Initialize(ctx context.Context) error {
	*p.events = append(*p.events, "init:"+p.ProviderName)
	return p.initErr
}

func (p *recordingProvider) OnStart(ctx context.Context) error {
	*p.events = append(*p.events, "start:"+p.ProviderName)
	return nil
}

func (p *recordingProvider) OnSessionStart(ctx context.Context, sessionID string) error {
	*p.events = append(*p.events, "sess-start:"+p.ProviderName+":"+sessionID)
	return nil
}

func (p *recordingProvider) OnStop(ctx context.Context) error {
	*p.events = append(*p.events, "stop:"+p.ProviderName)
	return nil
}

func (p *recordingProvider) Cleanup(ctx context.Context) error {
	*p.events = append(*p.events, "cleanup:"+p.ProviderName)
	return nil
}

func TestRegistryLifecycleOrder(t *testing.T) {
	var events []string
	r := NewRegistry(nil)
	r.Register(&recordingProvider{ProviderBase: ProviderBase{ProviderName: "a"}, events: &events})
	r.Register(&recordingProvider{ProviderBase: ProviderBase{ProviderName: "b"}, events: &events})

	ctx := context.Background()
	if err := r.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	if err := r.Start(ctx); err != nil {
		t.Fatal(err)
	}
	r.SessionStarted(ctx, "s1")
	r.Stop(ctx)

	want := []string{
		"init:a", "init:b",
		"start:a", "start:b",
		"sess-start:a:s1", "sess-start:b:s1",
		// Shutdown runs in reverse registration order.
		"stop:b", "cleanup:b",
		"stop:a", "cleanup:a",
	}
	if len(events) != len(want) {
		t.Fatalf("events = %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, events[i], want[i])
		}
	}
}

func TestRegistryInitializeFailureAborts(t *testing.T) {
	var events []string
	boom := errors.New("no backend")
	r := NewRegistry(nil)
	r.Register(&recordingProvider{ProviderBase: ProviderBase{ProviderName: "bad"}, events: &events, initErr: boom})
	r.Register(&recordingProvider{ProviderBase: ProviderBase{ProviderName: "later"}, events: &events})

	err := r.Initialize(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	for _, e := range events {
		if e == "init:later" {
			t.Error("later provider initialized after failure")
		}
	}
}

func TestChangeNotifierFanOut(t *testing.T) {
	var cn ChangeNotifier
	sub := cn.Subscriber()

	if err := cn.Notify(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-sub:
	case <-time.After(time.Second):
		t.Fatal("signal not delivered")
	}

	// Signals coalesce: two notifies, one buffered signal.
	_ = cn.Notify(context.Background())
	_ = cn.Notify(context.Background())
	<-sub
	select {
	case <-sub:
		t.Fatal("unexpected second signal")
	default:
	}
}

func TestChangeNotifierClose(t *testing.T) {
	var cn ChangeNotifier
	sub := cn.Subscriber()
	cn.Close()

	if _, open := <-sub; open {
		t.Error("subscriber channel not closed")
	}
	if ch := cn.Subscriber(); ch == nil {
		t.Error("post-close subscriber is nil")
	} else if _, open := <-ch; open {
		t.Error("post-close subscriber not pre-closed")
	}
	if err := cn.Notify(context.Background()); err != nil {
		t.Errorf("Notify after close: %v", err)
	}
}
