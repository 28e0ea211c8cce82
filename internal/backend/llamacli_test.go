package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func fakeLlama(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "llama-cli")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLlamaCLIArgs(t *testing.T) {
	l := &LlamaCLI{Temperature: 0.2, ExtraArgs: []string{"--seed", "1"}}
	got := strings.Join(l.Args("/m.gguf", "hi"), " ")
	want := "-m /m.gguf -p hi -n 512 --temp 0.2 --no-display-prompt -no-cnv --seed 1"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestLlamaCLIComplete(t *testing.T) {
	model := writeModel(t, t.TempDir(), "model.gguf", 8)
	bin := fakeLlama(t, `echo '[{"name":"request_safe_mode","arguments":{}}]'`)

	l := &LlamaCLI{Binary: bin, Locator: FileLocator{Preferred: model}}
	out, err := l.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "request_safe_mode") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestLlamaCLIExitError(t *testing.T) {
	model := writeModel(t, t.TempDir(), "model.gguf", 8)
	bin := fakeLlama(t, "echo 'loading' >&2\necho 'bad magic' >&2\nexit 3")

	l := &LlamaCLI{Binary: bin, Locator: FileLocator{Preferred: model}}
	_, err := l.Complete(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "exit 3: bad magic") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestLlamaCLIMissingBinary(t *testing.T) {
	model := writeModel(t, t.TempDir(), "model.gguf", 8)
	l := &LlamaCLI{Binary: filepath.Join(t.TempDir(), "nope"), Locator: FileLocator{Preferred: model}}

	_, err := l.Complete(context.Background(), "prompt")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestLlamaCLIMissingModel(t *testing.T) {
	l := &LlamaCLI{Binary: "sh", Locator: FileLocator{Preferred: "/nonexistent/model.gguf"}}

	_, err := l.Complete(context.Background(), "prompt")
	var ae *ArtifactError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *ArtifactError, got %v", err)
	}
}
