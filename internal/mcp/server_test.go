package mcp

import (
	"context"
	"sort"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/drivewatch/internal/model"
	"github.com/ppiankov/drivewatch/internal/session"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(session.New(session.Options{}), "test", nil)
}

func TestParseTaggedCalls(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	text := `<start_function_call>call:trigger_voice_prompt{message:<escape>Take a break<escape>,level:warning}<end_function_call>`
	result, out, err := s.handleParse(ctx, &mcpsdk.CallToolRequest{}, ParseInput{Text: text})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil && result.IsError {
		t.Fatal("expected success, got error result")
	}
	if out.Strategy != "tagged_calls" {
		t.Errorf("strategy = %q", out.Strategy)
	}
	if len(out.Actions) != 1 || out.Actions[0].Arguments["message"] != "Take a break" {
		t.Fatalf("actions = %+v", out.Actions)
	}
}

func TestParseFailureIsErrorResult(t *testing.T) {
	s := newTestServer(t)

	result, out, err := s.handleParse(context.Background(), &mcpsdk.CallToolRequest{}, ParseInput{Text: `{"foo":"bar"}`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("expected IsError result")
	}
	if out.Error != "malformed_action" {
		t.Errorf("error kind = %q", out.Error)
	}
	if out.Actions == nil {
		t.Error("actions should encode as an empty list")
	}
}

func TestGate(t *testing.T) {
	s := newTestServer(t)
	cx := model.DefaultContext().WithLaneDeparture(true).WithLaneConfidence(0.8).WithSpeedKph(95)

	_, out, err := s.handleGate(context.Background(), &mcpsdk.CallToolRequest{}, GateInput{Context: &cx})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Triggered || out.Event != string(model.EventLaneDepartureHighSpeed) {
		t.Errorf("gate = %+v", out)
	}
	if out.Reason != "lane departure(>=0.70) + speed(95kph)" {
		t.Errorf("reason = %q", out.Reason)
	}
}

func TestGateClampsContext(t *testing.T) {
	s := newTestServer(t)
	cx := model.DefaultContext()
	cx.ForwardCollisionRisk = 4.2

	_, out, err := s.handleGate(context.Background(), &mcpsdk.CallToolRequest{}, GateInput{Context: &cx})
	if err != nil {
		t.Fatal(err)
	}
	if out.Event != string(model.EventForwardCollisionHigh) || out.Reason != "forward collision risk(1.00)" {
		t.Errorf("gate = %+v", out)
	}
}

func TestFilterBlocksRepeat(t *testing.T) {
	s := newTestServer(t)
	in := FilterInput{Actions: []ActionItem{
		{Name: model.ActLogSafetyEvent, Arguments: map[string]any{"message": "x"}},
		{Name: model.ActSteeringVibration},
		{Name: model.ActSteeringVibration},
	}}

	_, out, err := s.handleFilter(context.Background(), &mcpsdk.CallToolRequest{}, in)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Executed) != 2 || len(out.Blocked) != 1 || len(out.Logs) != 1 {
		t.Errorf("filter = %+v", out)
	}
}

func TestRunScenario(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleRun(context.Background(), &mcpsdk.CallToolRequest{}, RunInput{Scenario: "11"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Event != string(model.EventManualTrigger) || out.GateEvent != string(model.EventDrowsyNoHands) {
		t.Errorf("events = %s / %s", out.Event, out.GateEvent)
	}
	if out.WarningLevel != "CRITICAL" {
		t.Errorf("warning level = %s", out.WarningLevel)
	}
	if len(out.Blocked) != 3 {
		t.Errorf("blocked = %v", out.Blocked)
	}

	if _, _, err := s.handleRun(context.Background(), &mcpsdk.CallToolRequest{}, RunInput{Scenario: "42"}); err == nil {
		t.Error("expected error for unknown scenario")
	}
}

func TestScenarios(t *testing.T) {
	s := newTestServer(t)
	_, out, err := s.handleScenarios(context.Background(), &mcpsdk.CallToolRequest{}, ScenariosInput{})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Scenarios) != 12 || out.Scenarios[0].Index != 1 {
		t.Errorf("scenarios = %+v", out.Scenarios)
	}
}

func TestFromItemsSortsKeys(t *testing.T) {
	actions := fromItems([]ActionItem{{Name: "x", Arguments: map[string]any{"b": 1, "a": 2}}})
	if got := actions[0].Arguments.Keys(); got[0] != "a" || got[1] != "b" {
		t.Errorf("keys = %v", got)
	}
}

func TestToolsOverInMemoryTransport(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()
	ss, err := s.Connect(ctx, serverTransport)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer func() {
		_ = cs.Close()
		_ = ss.Wait()
	}()

	tools, err := cs.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	want := []string{"drivewatch_filter", "drivewatch_gate", "drivewatch_parse", "drivewatch_run", "drivewatch_scenarios"}
	if len(names) != len(want) {
		t.Fatalf("tools = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("tool %d = %s, want %s", i, names[i], want[i])
		}
	}

	res, err := cs.CallTool(ctx, &mcpsdk.CallToolParams{Name: "drivewatch_scenarios", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool returned error: %+v", res.Content)
	}
}
