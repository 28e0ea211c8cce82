package backend

import (
	"context"
	"errors"
	"testing"
)

func TestNewUnknownKind(t *testing.T) {
	if _, _, err := New(context.Background(), Options{Kind: "quantum"}); err == nil {
		t.Fatal("expected error for unknown backend kind")
	}
}

func TestNewLlamaCLIUsesFileLocator(t *testing.T) {
	b, loc, err := New(context.Background(), Options{Kind: KindLlamaCLI, PreferredPath: "/a", FallbackPath: "/b"})
	if err != nil {
		t.Fatal(err)
	}
	if b.Name() != KindLlamaCLI {
		t.Errorf("expected llama-cli, got %s", b.Name())
	}
	fl, ok := loc.(FileLocator)
	if !ok || fl.Preferred != "/a" || fl.Fallback != "/b" {
		t.Errorf("unexpected locator %#v", loc)
	}
}

func TestNewHTTPUsesRemoteLocator(t *testing.T) {
	_, loc, err := New(context.Background(), Options{Kind: KindHTTP, Endpoint: "http://x", Model: "m"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := loc.(RemoteLocator); !ok {
		t.Errorf("expected RemoteLocator, got %T", loc)
	}
}

func TestNewGenAIRequiresKey(t *testing.T) {
	if _, _, err := New(context.Background(), Options{Kind: KindGenAI, Model: "m"}); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestStatic(t *testing.T) {
	s := &Static{Output: "[]"}
	out, err := s.Complete(context.Background(), "p")
	if err != nil || out != "[]" {
		t.Fatalf("unexpected %q, %v", out, err)
	}

	boom := errors.New("boom")
	s.Err = boom
	if _, err := s.Complete(context.Background(), "p"); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Complete(ctx, "p"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if s.Calls() != 3 {
		t.Errorf("expected 3 calls, got %d", s.Calls())
	}
}
