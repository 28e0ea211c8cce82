package audit

import (
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/drivewatch/internal/model"
)

func writeReplayFixture(t *testing.T) string {
	t.Helper()
	l, path := newTestLog(t)
	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	entries := []AuditEntry{
		{RunID: "run-a", Event: "LANE_DEPARTURE_HIGH_SPEED", Action: model.NewAction(model.ActSteeringVibration), Decision: DecisionExecuted},
		{RunID: "run-a", Event: "LANE_DEPARTURE_HIGH_SPEED", Action: model.NewAction(model.ActLogSafetyEvent), Decision: DecisionExecuted},
		{RunID: "run-b", Event: "MANUAL_TRIGGER", Action: model.NewAction(model.ActSteeringVibration), Decision: DecisionBlocked,
			Reason: "SafetyGate: blocked trigger_steering_vibration (cooldown 3s)"},
	}
	for i, e := range entries {
		e.Seq = i
		e.Timestamp = base.Add(time.Duration(i) * time.Minute).Format(TimestampFormat)
		if err := l.Record(e); err != nil {
			t.Fatal(err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReplayAll(t *testing.T) {
	result, err := Replay(writeReplayFixture(t), ReplayFilter{})
	if err != nil {
		t.Fatal(err)
	}
	s := result.Summary
	if s.Total != 3 || s.Runs != 2 || s.ExecutedCount != 2 || s.BlockedCount != 1 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.ByEvent["LANE_DEPARTURE_HIGH_SPEED"] != 2 || s.ByEvent["MANUAL_TRIGGER"] != 1 {
		t.Errorf("unexpected event counts %v", s.ByEvent)
	}
	if s.FirstTimestamp != "2026-02-01T08:00:00.000Z" || s.LastTimestamp != "2026-02-01T08:02:00.000Z" {
		t.Errorf("unexpected time range %s..%s", s.FirstTimestamp, s.LastTimestamp)
	}
}

func TestReplayFilters(t *testing.T) {
	path := writeReplayFixture(t)

	byRun, err := Replay(path, ReplayFilter{RunID: "run-b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byRun.Entries) != 1 || byRun.Entries[0].Decision != DecisionBlocked {
		t.Errorf("expected the single blocked entry, got %+v", byRun.Entries)
	}

	from := time.Date(2026, 2, 1, 8, 0, 30, 0, time.UTC)
	to := time.Date(2026, 2, 1, 8, 1, 30, 0, time.UTC)
	byTime, err := Replay(path, ReplayFilter{From: from, To: to})
	if err != nil {
		t.Fatal(err)
	}
	if len(byTime.Entries) != 1 || byTime.Entries[0].Seq != 1 {
		t.Errorf("expected only seq 1 in range, got %+v", byTime.Entries)
	}
}

func TestReplayMissingFile(t *testing.T) {
	if _, err := Replay("/nonexistent/audit.jsonl", ReplayFilter{}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFormatTimeline(t *testing.T) {
	result, err := Replay(writeReplayFixture(t), ReplayFilter{})
	if err != nil {
		t.Fatal(err)
	}
	out := FormatTimeline(result)
	for _, want := range []string{
		"Run: all runs | 2026-02-01 08:00:00–08:02:00 UTC",
		"BLOCKED",
		"SafetyGate: blocked trigger_steering_vibration (cooldown 3s)",
		"Summary: 2 executed, 1 blocked across 2 run(s) | LANE_DEPARTURE_HIGH_SPEED=2 MANUAL_TRIGGER=1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("timeline missing %q:\n%s", want, out)
		}
	}
}

func TestFormatTimelineEmpty(t *testing.T) {
	out := FormatTimeline(&ReplayResult{RunID: "run-x"})
	if out != "Run: run-x | No entries found.\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestFormatJSON(t *testing.T) {
	result, err := Replay(writeReplayFixture(t), ReplayFilter{RunID: "run-a"})
	if err != nil {
		t.Fatal(err)
	}
	out, err := FormatJSON(result)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"run_id": "run-a"`) || !strings.Contains(out, `"executed_count": 2`) {
		t.Errorf("unexpected json:\n%s", out)
	}
}
