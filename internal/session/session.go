// Package session drives the full pipeline for one interactive driving
// session: context and prompt in, selected/executed/blocked actions and
// vehicle state out.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/drivewatch/internal/audit"
	"github.com/ppiankov/drivewatch/internal/config"
	"github.com/ppiankov/drivewatch/internal/cooldown"
	"github.com/ppiankov/drivewatch/internal/gate"
	"github.com/ppiankov/drivewatch/internal/intercept"
	"github.com/ppiankov/drivewatch/internal/journal"
	"github.com/ppiankov/drivewatch/internal/model"
	"github.com/ppiankov/drivewatch/internal/scenario"
	"github.com/ppiankov/drivewatch/internal/selector"
	"github.com/ppiankov/drivewatch/internal/vehicle"
)

// DefaultMaxLog caps the session log.
const DefaultMaxLog = 200

// Options wires a Session. Selector is required; nil gates and applier
// fall back to defaults. Audit and Journal are optional.
type Options struct {
	Selector   selector.Selector
	Gate       *gate.Gate
	Safety     *cooldown.Gate
	Applier    *vehicle.Applier
	Audit      *audit.Log
	Journal    *journal.Store
	Logger     *zap.Logger
	Clock      func() time.Time
	MaxLog     int
	ConfigHash string
}

// Snapshot is the outcome of one pipeline run. It shares no mutable state
// with the session.
type Snapshot struct {
	RunID        string               `json:"run_id"`
	Event        model.ScenarioEvent  `json:"event"`
	Gate         model.GateResult     `json:"gate"`
	Context      model.Context        `json:"context"`
	Prompt       string               `json:"prompt"`
	Selected     model.ActionSequence `json:"selected"`
	Safety       model.SafetyResult   `json:"safety"`
	Vehicle      model.VehicleState   `json:"vehicle"`
	EngineerJSON string               `json:"engineer_json"`
}

// Session holds one context, one prompt, one cooldown store and one vehicle
// state. It is not safe for concurrent use.
type Session struct {
	selector   selector.Selector
	gate       *gate.Gate
	safety     *cooldown.Gate
	applier    *vehicle.Applier
	audit      *audit.Log
	journal    *journal.Store
	logger     *zap.Logger
	now        func() time.Time
	maxLog     int
	configHash string

	title    string
	context  model.Context
	prompt   string
	auto     bool
	lastGate model.GateResult
	vehicle  model.VehicleState
	log      []string
	last     *Snapshot
}

// New creates a Session positioned on the first built-in demo.
func New(opts Options) *Session {
	s := &Session{
		selector:   opts.Selector,
		gate:       opts.Gate,
		safety:     opts.Safety,
		applier:    opts.Applier,
		audit:      opts.Audit,
		journal:    opts.Journal,
		logger:     opts.Logger,
		now:        opts.Clock,
		maxLog:     opts.MaxLog,
		configHash: opts.ConfigHash,
		vehicle:    model.NewVehicleState(),
	}
	if s.selector == nil {
		s.selector = selector.NewStub()
	}
	if s.gate == nil {
		s.gate = gate.New(gate.DefaultThresholds())
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.safety == nil {
		s.safety = cooldown.New(cooldown.DefaultConfig(), cooldown.WithClock(s.now))
	}
	if s.applier == nil {
		s.applier = vehicle.NewApplier(vehicle.WithClock(s.now))
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.maxLog <= 0 {
		s.maxLog = DefaultMaxLog
	}

	first := scenario.Builtin()[0]
	s.title, s.context, s.prompt = first.Title, first.Context, first.Prompt
	s.lastGate = s.gate.Evaluate(s.context)
	return s
}

// SelectScenario loads a demo's context and prompt and forgets every
// cooldown so the new scenario starts clean.
func (s *Session) SelectScenario(d scenario.Demo) {
	s.title = d.Title
	s.context = d.Context.Clamped()
	s.prompt = d.Prompt
	s.safety.Clear()
	s.lastGate = s.gate.Evaluate(s.context)
	s.appendLog("scenario: " + d.Title)
}

// UpdateContext applies fn and clamps the result into range.
func (s *Session) UpdateContext(fn func(model.Context) model.Context) {
	s.context = fn(s.context).Clamped()
	s.lastGate = s.gate.Evaluate(s.context)
}

// SetPrompt replaces the driver prompt.
func (s *Session) SetPrompt(p string) { s.prompt = p }

// SetAutoMode toggles gate-triggered runs on Tick.
func (s *Session) SetAutoMode(on bool) { s.auto = on }

// Title returns the selected demo title.
func (s *Session) Title() string { return s.title }

// Context returns the current driving context.
func (s *Session) Context() model.Context { return s.context }

// Prompt returns the current driver prompt.
func (s *Session) Prompt() string { return s.prompt }

// AutoMode reports whether Tick runs the pipeline on a gate trigger.
func (s *Session) AutoMode() bool { return s.auto }

// LastGate returns the most recent gate evaluation.
func (s *Session) LastGate() model.GateResult { return s.lastGate }

// Vehicle returns the current vehicle state.
func (s *Session) Vehicle() model.VehicleState { return s.vehicle }

// Cooldowns returns the accepted-action timestamps.
func (s *Session) Cooldowns() []cooldown.Entry { return s.safety.Store().Entries() }

// Log returns a copy of the bounded session log, oldest first.
func (s *Session) Log() []string {
	out := make([]string, len(s.log))
	copy(out, s.log)
	return out
}

// Last returns the most recent snapshot, or nil before the first run.
func (s *Session) Last() *Snapshot { return s.last }

// Run is the manual trigger: it always runs the pipeline.
func (s *Session) Run(ctx context.Context) (Snapshot, error) {
	s.lastGate = s.gate.Evaluate(s.context)
	return s.run(ctx, model.EventManualTrigger)
}

// Tick re-evaluates the gate. With auto mode on and a triggered gate it
// runs the pipeline tagged with the gate event and returns its snapshot.
func (s *Session) Tick(ctx context.Context) (model.GateResult, *Snapshot, error) {
	s.lastGate = s.gate.Evaluate(s.context)
	if !s.auto || !s.lastGate.Triggered {
		return s.lastGate, nil, nil
	}
	snap, err := s.run(ctx, s.lastGate.Event)
	return s.lastGate, &snap, err
}

// Evaluate runs the scenario gate over c, clamped, without touching
// session state.
func (s *Session) Evaluate(c model.Context) model.GateResult {
	return s.gate.Evaluate(c.Clamped())
}

// Filter passes actions through the session's cooldown gate.
func (s *Session) Filter(actions model.ActionSequence) model.SafetyResult {
	return s.safety.Filter(actions)
}

// Apply folds actions into the session's vehicle state directly,
// bypassing selection and cooldown.
func (s *Session) Apply(actions model.ActionSequence) model.VehicleState {
	s.vehicle = s.applier.Apply(s.vehicle, actions)
	return s.vehicle
}

// Reset returns the vehicle to NORMAL and clears cooldowns and the log.
func (s *Session) Reset() {
	s.vehicle = model.NewVehicleState()
	s.safety.Clear()
	s.log = nil
	s.last = nil
}

// Reconfigure re-applies gate thresholds and the cooldown policy without
// clearing cooldown state.
func (s *Session) Reconfigure(cfg *config.Config) {
	s.gate.SetThresholds(cfg.Gate)
	s.safety.Reconfigure(cfg.Safety)
	s.configHash = audit.HashConfig(struct {
		Gate   gate.Thresholds `json:"gate"`
		Safety cooldown.Config `json:"safety"`
	}{cfg.Gate, cfg.Safety})
	s.lastGate = s.gate.Evaluate(s.context)
	s.logger.Info("session.reconfigure",
		zap.Duration("cooldown", s.safety.Window()),
		zap.String("config_hash", s.configHash),
	)
}

func (s *Session) run(ctx context.Context, event model.ScenarioEvent) (Snapshot, error) {
	runID := journal.NewRunID()
	logger := s.logger.With(zap.String("run_id", runID), zap.String("event", string(event)))

	selected := s.selector.Select(ctx, s.context, s.prompt)
	safety := s.safety.Filter(selected)
	s.vehicle = s.applier.Apply(s.vehicle, safety.Executed)

	engineer, err := intercept.EncodeArrayIndent(selected)
	if err != nil {
		engineer = []byte("[]")
	}

	for _, line := range safety.Logs {
		s.appendLog(line)
	}

	snap := Snapshot{
		RunID:        runID,
		Event:        event,
		Gate:         s.lastGate,
		Context:      s.context,
		Prompt:       s.prompt,
		Selected:     selected,
		Safety:       safety,
		Vehicle:      s.vehicle,
		EngineerJSON: string(engineer),
	}
	s.last = &snap

	logger.Info("session.run",
		zap.Strings("selected", selected.Names()),
		zap.Int("executed", len(safety.Executed)),
		zap.Int("blocked", len(safety.Blocked)),
		zap.Stringer("warning_level", s.vehicle.WarningLevel),
	)

	return snap, errors.Join(s.recordAudit(snap), s.recordJournal(ctx, snap))
}

func (s *Session) appendLog(line string) {
	s.log = append(s.log, line)
	if over := len(s.log) - s.maxLog; over > 0 {
		s.log = append([]string(nil), s.log[over:]...)
	}
}

// recordAudit writes one entry per selected action in selection order.
func (s *Session) recordAudit(snap Snapshot) error {
	if s.audit == nil {
		return nil
	}
	run := audit.Run{
		ID:         snap.RunID,
		Event:      string(snap.Event),
		ConfigHash: s.configHash,
		At:         s.now(),
	}
	exec, blocked := snap.Safety.Executed, snap.Safety.Blocked
	ei, bi := 0, 0
	for _, a := range snap.Selected {
		o := audit.Outcome{Action: a}
		switch {
		case ei < len(exec) && sameAction(exec[ei], a):
			ei++
			o.Decision = audit.DecisionExecuted
			o.Reason = "accepted"
			if s.safety.IsExempt(a.Name) {
				o.Reason = "exempt"
			}
		case bi < len(blocked):
			o.Decision = audit.DecisionBlocked
			if bi < len(snap.Safety.Logs) {
				o.Reason = snap.Safety.Logs[bi]
			}
			bi++
		default:
			continue
		}
		run.Outcomes = append(run.Outcomes, o)
	}
	if err := s.audit.RecordRun(run); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	return nil
}

func (s *Session) recordJournal(ctx context.Context, snap Snapshot) error {
	if s.journal == nil {
		return nil
	}
	_, err := s.journal.Record(ctx, journal.Run{
		ID:           snap.RunID,
		CreatedAt:    s.now(),
		Event:        snap.Event,
		Gate:         snap.Gate,
		Prompt:       snap.Prompt,
		Context:      snap.Context,
		Selected:     snap.Selected,
		Executed:     snap.Safety.Executed,
		Blocked:      snap.Safety.Blocked,
		SafetyLogs:   snap.Safety.Logs,
		WarningLevel: snap.Vehicle.WarningLevel,
	})
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	return nil
}

func sameAction(a, b model.Action) bool {
	return a.Name == b.Name && a.Arguments.Equal(b.Arguments)
}
