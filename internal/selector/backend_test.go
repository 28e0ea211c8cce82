package selector

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/neurorouter"

	"github.com/ppiankov/drivewatch/internal/backend"
	"github.com/ppiankov/drivewatch/internal/intercept"
	"github.com/ppiankov/drivewatch/internal/model"
)

type recordingBackend struct {
	output string
	err    error
	prompt string
	calls  int
}

func (r *recordingBackend) Name() string { return "recording" }

func (r *recordingBackend) Complete(_ context.Context, prompt string) (string, error) {
	r.calls++
	r.prompt = prompt
	return r.output, r.err
}

func diagnosticKind(t *testing.T, actions model.ActionSequence) string {
	t.Helper()
	if len(actions) != 1 || actions[0].Name != model.ActLogSafetyEvent {
		t.Fatalf("expected single diagnostic log_safety_event, got %v", actions.Names())
	}
	kind, _ := actions[0].Arguments.String("error_type")
	return kind
}

func TestBackendSelectParsesOutput(t *testing.T) {
	b := &recordingBackend{output: "Here you go:\n" +
		`[{"name":"trigger_hud_warning","arguments":{"message":"brake","level":"critical"}}]`}
	got := NewBackend(b).Select(context.Background(), model.DefaultContext(), "collision ahead")

	want := model.ActionSequence{model.NewAction(model.ActHUDWarning, "message", "brake", "level", "critical")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(b.prompt, "collision ahead") {
		t.Error("prompt should contain the user prompt")
	}
}

func TestBackendSelectEmptyArrayIsNoAction(t *testing.T) {
	b := &recordingBackend{output: "Nothing to do: []"}
	got := NewBackend(b).Select(context.Background(), model.DefaultContext(), "all clear")
	if len(got) != 0 {
		t.Errorf("expected no actions, got %v", got.Names())
	}
}

func TestBackendSelectLocatorShortCircuits(t *testing.T) {
	b := &recordingBackend{output: "[]"}
	missing := filepath.Join(t.TempDir(), "model.gguf")
	sel := NewBackend(b, WithLocator(backend.FileLocator{Preferred: missing}))

	got := sel.Select(context.Background(), model.DefaultContext(), "")
	if b.calls != 0 {
		t.Errorf("backend should not be called, got %d calls", b.calls)
	}
	if kind := diagnosticKind(t, got); kind != string(KindBackendUnavailable) {
		t.Errorf("expected backend_unavailable, got %s", kind)
	}
	args := got[0].Arguments
	if msg, _ := args.String("message"); msg != "model_not_readable" {
		t.Errorf("expected model_not_readable, got %s", msg)
	}
	if p, _ := args.String("path"); p != missing {
		t.Errorf("expected path %s, got %s", missing, p)
	}
	if v, _ := args.Get("exists"); v != false {
		t.Errorf("expected exists=false, got %v", v)
	}
	if v, _ := args.Get("bytes"); v != int64(-1) {
		t.Errorf("expected bytes=-1, got %v", v)
	}
}

func TestBackendSelectErrorClasses(t *testing.T) {
	tests := []struct {
		name   string
		output string
		err    error
		want   Kind
	}{
		{"rate limited", "", fmt.Errorf("http backend: %w", neurorouter.ErrRateLimited), KindRateLimited},
		{"unavailable", "", fmt.Errorf("http backend: %w: refused", backend.ErrUnavailable), KindBackendUnavailable},
		{"failed", "", errors.New("HTTP 500"), KindBackendFailed},
		{"no structure", "I am not sure what to do.", nil, KindExtractionFailed},
		{"malformed", `{"arguments":{}}`, nil, KindMalformedAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &recordingBackend{output: tt.output, err: tt.err}
			got := NewBackend(b).Select(context.Background(), model.DefaultContext(), "")
			if kind := diagnosticKind(t, got); kind != string(tt.want) {
				t.Errorf("expected %s, got %s", tt.want, kind)
			}
			if msg, _ := got[0].Arguments.String("message"); msg != "inference_error" {
				t.Errorf("expected inference_error, got %s", msg)
			}
		})
	}
}

func TestDiagnosticTruncatesDetail(t *testing.T) {
	long := strings.Repeat("é", 300)
	a := Diagnostic(&SelectorError{Kind: KindBackendFailed, Err: errors.New(long)})
	detail, _ := a.Arguments.String("detail")
	if len(detail) > MaxDetail {
		t.Errorf("detail longer than %d bytes: %d", MaxDetail, len(detail))
	}
	if !strings.HasPrefix(long, detail) {
		t.Error("detail should be a prefix of the error text")
	}
}

func TestClassifyParseErrors(t *testing.T) {
	_, err := intercept.Parse("")
	if got := Classify(err); got != KindExtractionFailed {
		t.Errorf("expected extraction_failed, got %s", got)
	}
	wrapped := &SelectorError{Kind: KindRateLimited, Err: errors.New("x")}
	if got := Classify(fmt.Errorf("outer: %w", wrapped)); got != KindRateLimited {
		t.Errorf("expected classification to pass through, got %s", got)
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(model.DefaultContext().WithSpeedKph(95), "  check lane  ")
	for _, want := range []string{
		`"speed_kph": 95`,
		"User prompt:\ncheck lane\n",
		"Return ONLY a JSON array",
		"- request_safe_mode\n",
		NoActionExample,
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
