package mcp

import (
	"context"
	"fmt"
	"sort"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/ppiankov/drivewatch/internal/intercept"
	"github.com/ppiankov/drivewatch/internal/model"
	"github.com/ppiankov/drivewatch/internal/scenario"
	"github.com/ppiankov/drivewatch/internal/selector"
)

// --- Input/Output types ---

// ActionItem is one vehicle action in tool input and output.
type ActionItem struct {
	Name      string         `json:"name" jsonschema:"action name, e.g. trigger_hud_warning"`
	Arguments map[string]any `json:"arguments,omitempty" jsonschema:"action arguments"`
}

// ParseInput defines parameters for the drivewatch_parse tool.
type ParseInput struct {
	Text string `json:"text" jsonschema:"raw model output"`
}

// ParseOutput lists the extracted actions.
type ParseOutput struct {
	Actions  []ActionItem `json:"actions"`
	Strategy string       `json:"strategy"`
	Error    string       `json:"error,omitempty"`
}

// GateInput defines parameters for the drivewatch_gate tool.
type GateInput struct {
	Context *model.Context `json:"context,omitempty" jsonschema:"driving context; omit to use the session context"`
}

// GateOutput is the gate decision.
type GateOutput struct {
	Triggered bool   `json:"triggered"`
	Event     string `json:"event"`
	Reason    string `json:"reason"`
}

// FilterInput defines parameters for the drivewatch_filter tool.
type FilterInput struct {
	Actions []ActionItem `json:"actions" jsonschema:"actions in selection order"`
}

// FilterOutput splits the batch.
type FilterOutput struct {
	Executed []ActionItem `json:"executed"`
	Blocked  []ActionItem `json:"blocked"`
	Logs     []string     `json:"logs"`
}

// RunInput defines parameters for the drivewatch_run tool.
type RunInput struct {
	Scenario string         `json:"scenario,omitempty" jsonschema:"built-in scenario by 1-based index or title"`
	Context  *model.Context `json:"context,omitempty" jsonschema:"replacement driving context"`
	Prompt   *string        `json:"prompt,omitempty" jsonschema:"driver prompt"`
}

// RunOutput summarizes one pipeline pass.
type RunOutput struct {
	RunID        string       `json:"run_id"`
	Event        string       `json:"event"`
	GateEvent    string       `json:"gate_event"`
	GateReason   string       `json:"gate_reason"`
	Selected     []ActionItem `json:"selected"`
	Executed     []string     `json:"executed"`
	Blocked      []string     `json:"blocked"`
	Logs         []string     `json:"logs"`
	WarningLevel string       `json:"warning_level"`
	Events       []string     `json:"events"`
}

// ScenariosInput is empty; no parameters needed.
type ScenariosInput struct{}

// ScenariosOutput lists the built-in scenarios.
type ScenariosOutput struct {
	Scenarios []ScenarioItem `json:"scenarios"`
}

// ScenarioItem describes one built-in scenario.
type ScenarioItem struct {
	Index  int    `json:"index"`
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

// --- Handlers ---

func (s *Server) handleParse(_ context.Context, _ *mcpsdk.CallToolRequest, input ParseInput) (*mcpsdk.CallToolResult, ParseOutput, error) {
	actions, strategy, err := intercept.ParseWithStrategy(input.Text)
	out := ParseOutput{Actions: toItems(actions), Strategy: strategy.String()}
	if err != nil {
		out.Error = string(selector.Classify(err))
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

func (s *Server) handleGate(_ context.Context, _ *mcpsdk.CallToolRequest, input GateInput) (*mcpsdk.CallToolResult, GateOutput, error) {
	s.mu.Lock()
	c := s.session.Context()
	if input.Context != nil {
		c = input.Context.Clamped()
	}
	res := s.session.Evaluate(c)
	s.mu.Unlock()

	return nil, GateOutput{Triggered: res.Triggered, Event: string(res.Event), Reason: res.Reason}, nil
}

func (s *Server) handleFilter(_ context.Context, _ *mcpsdk.CallToolRequest, input FilterInput) (*mcpsdk.CallToolResult, FilterOutput, error) {
	s.mu.Lock()
	res := s.session.Filter(fromItems(input.Actions))
	s.mu.Unlock()

	return nil, FilterOutput{
		Executed: toItems(res.Executed),
		Blocked:  toItems(res.Blocked),
		Logs:     nonNil(res.Logs),
	}, nil
}

func (s *Server) handleRun(ctx context.Context, _ *mcpsdk.CallToolRequest, input RunInput) (*mcpsdk.CallToolResult, RunOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if input.Scenario != "" {
		d, ok := scenario.Find(scenario.Builtin(), input.Scenario)
		if !ok {
			return nil, RunOutput{}, fmt.Errorf("unknown scenario %q", input.Scenario)
		}
		s.session.SelectScenario(d)
	}
	if input.Context != nil {
		replacement := input.Context.Clamped()
		s.session.UpdateContext(func(model.Context) model.Context { return replacement })
	}
	if input.Prompt != nil {
		s.session.SetPrompt(*input.Prompt)
	}

	snap, err := s.session.Run(ctx)
	if err != nil {
		s.logger.Warn("mcp.run: persistence failed", zap.String("run_id", snap.RunID), zap.Error(err))
	}

	events := make([]string, len(snap.Vehicle.Events))
	for i, ev := range snap.Vehicle.Events {
		events[i] = ev.Message
	}
	return nil, RunOutput{
		RunID:        snap.RunID,
		Event:        string(snap.Event),
		GateEvent:    string(snap.Gate.Event),
		GateReason:   snap.Gate.Reason,
		Selected:     toItems(snap.Selected),
		Executed:     snap.Safety.Executed.Names(),
		Blocked:      snap.Safety.Blocked.Names(),
		Logs:         nonNil(snap.Safety.Logs),
		WarningLevel: snap.Vehicle.WarningLevel.String(),
		Events:       events,
	}, nil
}

func (s *Server) handleScenarios(_ context.Context, _ *mcpsdk.CallToolRequest, _ ScenariosInput) (*mcpsdk.CallToolResult, ScenariosOutput, error) {
	demos := scenario.Builtin()
	out := ScenariosOutput{Scenarios: make([]ScenarioItem, len(demos))}
	for i, d := range demos {
		out.Scenarios[i] = ScenarioItem{Index: i + 1, Title: d.Title, Prompt: d.Prompt}
	}
	return nil, out, nil
}

func toItems(actions model.ActionSequence) []ActionItem {
	items := make([]ActionItem, len(actions))
	for i, a := range actions {
		items[i] = ActionItem{Name: a.Name}
		if a.Arguments.Len() > 0 {
			items[i].Arguments = a.Arguments.Map()
		}
	}
	return items
}

// fromItems sorts argument keys so the resulting Arguments order is stable.
func fromItems(items []ActionItem) model.ActionSequence {
	actions := make(model.ActionSequence, len(items))
	for i, it := range items {
		keys := make([]string, 0, len(it.Arguments))
		for k := range it.Arguments {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var args model.Arguments
		for _, k := range keys {
			args.Set(k, it.Arguments[k])
		}
		actions[i] = model.Action{Name: it.Name, Arguments: args}
	}
	return actions
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
