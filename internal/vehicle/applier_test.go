package vehicle

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/drivewatch/internal/model"
)

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestApplier(opts ...Option) *Applier {
	return NewApplier(append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
}

func messages(s model.VehicleState) []string {
	out := make([]string, len(s.Events))
	for i, e := range s.Events {
		out[i] = e.Message
	}
	return out
}

func TestApplyEventLines(t *testing.T) {
	actions := model.ActionSequence{
		model.NewAction(model.ActSteeringVibration, "intensity", "high"),
		model.NewAction(model.ActEscalateWarningLevel, "level", "Critical"),
		model.NewAction(model.ActLogSafetyEvent, "message", "lane"),
		model.NewAction(model.ActLogSafetyEvent),
		model.NewAction("future_action"),
	}
	got := newTestApplier().Apply(model.NewVehicleState(), actions)

	want := []string{
		"trigger:trigger_steering_vibration",
		"warning_level=critical",
		"log:lane",
		"log:log",
		"trigger:future_action",
	}
	if diff := cmp.Diff(want, messages(got)); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if got.WarningLevel != model.Critical {
		t.Errorf("expected CRITICAL, got %s", got.WarningLevel)
	}
	if diff := cmp.Diff(actions, got.LastActions); diff != "" {
		t.Errorf("last actions mismatch (-want +got):\n%s", diff)
	}
	for _, e := range got.Events {
		if !e.Timestamp.Equal(fixedNow) {
			t.Errorf("expected timestamp %s, got %s", fixedNow, e.Timestamp)
		}
	}
}

func TestApplyUnknownLevelKeepsState(t *testing.T) {
	prev := model.NewVehicleState()
	prev.WarningLevel = model.Warning

	got := newTestApplier().Apply(prev, model.ActionSequence{
		model.NewAction(model.ActEscalateWarningLevel, "level", "extreme"),
		model.NewAction(model.ActEscalateWarningLevel),
	})
	if got.WarningLevel != model.Warning {
		t.Errorf("expected WARNING to persist, got %s", got.WarningLevel)
	}
	want := []string{"warning_level=extreme", "warning_level=null"}
	if diff := cmp.Diff(want, messages(got)); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyLevelTransitions(t *testing.T) {
	a := newTestApplier()
	s := model.NewVehicleState()
	for _, step := range []struct {
		level string
		want  model.WarningLevel
	}{
		{"WARNING", model.Warning},
		{"critical", model.Critical},
		{"Normal", model.Normal},
	} {
		s = a.Apply(s, model.ActionSequence{model.NewAction(model.ActEscalateWarningLevel, "level", step.level)})
		if s.WarningLevel != step.want {
			t.Errorf("level %q: expected %s, got %s", step.level, step.want, s.WarningLevel)
		}
	}
}

func TestApplyCapsEventsAtHundred(t *testing.T) {
	a := newTestApplier()
	s := model.NewVehicleState()
	for i := 0; i < 150; i++ {
		s = a.Apply(s, model.ActionSequence{model.NewAction(fmt.Sprintf("act_%03d", i))})
	}
	if len(s.Events) != 100 {
		t.Fatalf("expected 100 events, got %d", len(s.Events))
	}
	if s.Events[0].Message != "trigger:act_050" || s.Events[99].Message != "trigger:act_149" {
		t.Errorf("expected the most recent 100 events, got first=%s last=%s",
			s.Events[0].Message, s.Events[99].Message)
	}
}

func TestApplyDoesNotMutatePrevious(t *testing.T) {
	a := newTestApplier(WithMaxEvents(2))
	prev := a.Apply(model.NewVehicleState(), model.ActionSequence{model.NewAction("a"), model.NewAction("b")})
	before := messages(prev)

	next := a.Apply(prev, model.ActionSequence{model.NewAction("c")})
	if diff := cmp.Diff(before, messages(prev)); diff != "" {
		t.Errorf("previous state mutated (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"trigger:b", "trigger:c"}, messages(next)); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyEmptyBatch(t *testing.T) {
	prev := model.NewVehicleState()
	prev.WarningLevel = model.Critical
	got := newTestApplier().Apply(prev, nil)
	if got.WarningLevel != model.Critical || len(got.Events) != 0 || len(got.LastActions) != 0 {
		t.Errorf("unexpected state %+v", got)
	}
}
