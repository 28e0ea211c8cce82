package scenario

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/drivewatch/internal/cooldown"
	"github.com/ppiankov/drivewatch/internal/gate"
	"github.com/ppiankov/drivewatch/internal/model"
	"github.com/ppiankov/drivewatch/internal/selector"
	"github.com/ppiankov/drivewatch/internal/vehicle"
)

// Options configures the pipeline each case runs through.
type Options struct {
	Thresholds gate.Thresholds
	Safety     cooldown.Config
	MaxEvents  int
	// NewSelector builds the selector for one case. Nil means the stub.
	NewSelector func() selector.Selector
}

// DefaultOptions returns the stub selector with default thresholds.
func DefaultOptions() Options {
	return Options{
		Thresholds: gate.DefaultThresholds(),
		Safety:     cooldown.DefaultConfig(),
		MaxEvents:  vehicle.DefaultMaxEvents,
	}
}

// Run evaluates all cases in a scenario. Each case gets a fresh selector,
// cooldown store and vehicle state (cases are independent).
func Run(ctx context.Context, s *Scenario, opts Options) *RunResult {
	result := &RunResult{
		Name:  s.Name,
		Total: len(s.Cases),
	}

	for i, c := range s.Cases {
		cr := runCase(ctx, c, opts)
		cr.Index = i + 1
		if cr.Passed {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Cases = append(result.Cases, cr)
	}

	return result
}

func runCase(ctx context.Context, c Case, opts Options) CaseResult {
	demoCtx := model.DefaultContext()
	prompt := ""
	if c.Builtin != "" {
		d, ok := Find(Builtin(), c.Builtin)
		if !ok {
			return CaseResult{Failures: []string{fmt.Sprintf("unknown builtin %q", c.Builtin)}}
		}
		demoCtx, prompt = d.Context, d.Prompt
	}
	if c.Context.Kind != 0 {
		if err := c.Context.Decode(&demoCtx); err != nil {
			return CaseResult{Failures: []string{fmt.Sprintf("context: %v", err)}}
		}
		demoCtx = demoCtx.Clamped()
	}
	if strings.TrimSpace(c.Prompt) != "" {
		prompt = c.Prompt
	}

	var sel selector.Selector = selector.NewStub()
	if opts.NewSelector != nil {
		sel = opts.NewSelector()
	}
	maxEvents := opts.MaxEvents
	if maxEvents <= 0 {
		maxEvents = vehicle.DefaultMaxEvents
	}

	gateResult := gate.New(opts.Thresholds).Evaluate(demoCtx)
	selected := sel.Select(ctx, demoCtx, prompt)
	safety := cooldown.New(opts.Safety).Filter(selected)
	state := vehicle.NewApplier(vehicle.WithMaxEvents(maxEvents)).Apply(model.NewVehicleState(), safety.Executed)

	cr := CaseResult{
		Prompt:       prompt,
		Event:        string(gateResult.Event),
		Selected:     selected.Names(),
		Blocked:      safety.Blocked.Names(),
		WarningLevel: state.WarningLevel.String(),
	}
	cr.Failures = check(c.Expect, cr, selected)
	cr.Passed = len(cr.Failures) == 0
	return cr
}

func check(exp Expect, cr CaseResult, selected model.ActionSequence) []string {
	var failures []string
	if exp.Event != "" && !strings.EqualFold(exp.Event, cr.Event) {
		failures = append(failures, fmt.Sprintf("event: expected %s, got %s", strings.ToUpper(exp.Event), cr.Event))
	}
	if exp.Actions != nil && !slices.Equal(exp.Actions, cr.Selected) {
		failures = append(failures, fmt.Sprintf("actions: expected %v, got %v", exp.Actions, cr.Selected))
	}
	if exp.Calls != nil {
		if ok, reason := MatchActions(selected, exp.Calls); !ok {
			failures = append(failures, "calls: "+reason)
		}
	}
	if exp.Blocked != nil && !slices.Equal(exp.Blocked, cr.Blocked) {
		failures = append(failures, fmt.Sprintf("blocked: expected %v, got %v", exp.Blocked, cr.Blocked))
	}
	if exp.WarningLevel != "" {
		want, ok := model.ParseWarningLevel(exp.WarningLevel)
		if !ok {
			failures = append(failures, fmt.Sprintf("warning_level: unknown level %q", exp.WarningLevel))
		} else if want.String() != cr.WarningLevel {
			failures = append(failures, fmt.Sprintf("warning_level: expected %s, got %s", want, cr.WarningLevel))
		}
	}
	return failures
}

// Load reads one scenario YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	return &s, nil
}

// LoadAndRun loads a scenario YAML file and runs it.
func LoadAndRun(ctx context.Context, path string, opts Options) (*RunResult, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}

	result := Run(ctx, s, opts)
	result.File = path

	return result, nil
}
