package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/drivewatch/internal/cooldown"
	"github.com/ppiankov/drivewatch/internal/gate"
	"github.com/ppiankov/drivewatch/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drivewatch.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Model.Backend != BackendStub {
		t.Errorf("expected stub backend, got %q", cfg.Model.Backend)
	}
	if diff := cmp.Diff(gate.DefaultThresholds(), cfg.Gate); diff != "" {
		t.Errorf("gate defaults mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(cooldown.DefaultConfig(), cfg.Safety); diff != "" {
		t.Errorf("safety defaults mismatch (-want +got):\n%s", diff)
	}
	if cfg.Vehicle.MaxEvents != 100 {
		t.Errorf("expected 100 max events, got %d", cfg.Vehicle.MaxEvents)
	}
	if cfg.Model.Timeout != time.Minute {
		t.Errorf("expected 1m timeout, got %s", cfg.Model.Timeout)
	}
}

func TestTemplateMatchesDefaults(t *testing.T) {
	if err := ValidateYAML([]byte(DefaultConfigYAML())); err != nil {
		t.Fatalf("template does not validate: %v", err)
	}
	cfg, err := Load(writeConfig(t, DefaultConfigYAML()))
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	if diff := cmp.Diff(NewDefaultConfig(), cfg); diff != "" {
		t.Errorf("template differs from defaults (-defaults +template):\n%s", diff)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
model:
  backend: http
  model: gemma-3-1b
gate:
  forward_collision: 0.6
safety:
  cooldown: 2s
  exempt: [log_safety_event]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model.Backend != "http" || cfg.Model.Model != "gemma-3-1b" {
		t.Errorf("model section not applied: %+v", cfg.Model)
	}
	if cfg.Gate.ForwardCollision != 0.6 || cfg.Gate.DrowsyNoHands != 0.8 {
		t.Errorf("gate section not merged with defaults: %+v", cfg.Gate)
	}
	if cfg.Safety.Window != 2*time.Second {
		t.Errorf("expected 2s cooldown, got %s", cfg.Safety.Window)
	}
	if !cmp.Equal(cfg.Safety.Exempt, []string{"log_safety_event"}) {
		t.Errorf("unexpected exempt list %v", cfg.Safety.Exempt)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DRIVEWATCH_MODEL_BACKEND", "genai")
	t.Setenv("DRIVEWATCH_GATE_LANE_MIN_SPEED_KPH", "80")

	cfg, err := Load(writeConfig(t, "model:\n  backend: http\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model.Backend != "genai" {
		t.Errorf("expected env to win, got %q", cfg.Model.Backend)
	}
	if cfg.Gate.LaneMinSpeedKph != 80 {
		t.Errorf("expected 80, got %d", cfg.Gate.LaneMinSpeedKph)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model.Backend != BackendStub {
		t.Errorf("expected defaults, got backend %q", cfg.Model.Backend)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"backend":   "model:\n  backend: quantum\n",
		"threshold": "gate:\n  forward_collision: 1.5\n",
		"cooldown":  "safety:\n  cooldown: -1s\n",
	}
	for name, content := range tests {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestNarrowExemptListKeepsLogging(t *testing.T) {
	cfg, err := Load(writeConfig(t, "safety:\n  exempt: [request_safe_mode]\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g := cooldown.New(cfg.Safety)
	log := model.NewAction(model.ActLogSafetyEvent, "message", "x")
	r := g.Filter(model.ActionSequence{log, log})
	if len(r.Blocked) != 0 {
		t.Errorf("log_safety_event blocked: %v", r.Logs)
	}
}

func TestValidateYAMLUnknownKey(t *testing.T) {
	err := ValidateYAML([]byte("model:\n  backnd: http\n"))
	if err == nil || !strings.Contains(err.Error(), "backnd") {
		t.Errorf("expected unknown field error, got %v", err)
	}
}
