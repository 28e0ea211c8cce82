// Package vehicle folds executed actions into the mock vehicle state.
package vehicle

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/drivewatch/internal/model"
)

// DefaultMaxEvents caps the event log.
const DefaultMaxEvents = 100

// Applier applies action batches to a VehicleState. It keeps no state of
// its own besides configuration.
type Applier struct {
	maxEvents int
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures an Applier.
type Option func(*Applier)

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Applier) { a.now = now }
}

// WithMaxEvents overrides the event cap. Non-positive values are ignored.
func WithMaxEvents(n int) Option {
	return func(a *Applier) {
		if n > 0 {
			a.maxEvents = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Applier) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewApplier creates an Applier.
func NewApplier(opts ...Option) *Applier {
	a := &Applier{maxEvents: DefaultMaxEvents, now: time.Now, logger: zap.NewNop()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Apply returns the state after actions. Every action appends one event;
// only escalate_warning_level changes the warning level. prev is never
// modified.
func (a *Applier) Apply(prev model.VehicleState, actions model.ActionSequence) model.VehicleState {
	a.logger.Debug("vehicle.apply",
		zap.Int("actions", len(actions)),
		zap.Stringer("prev_warning", prev.WarningLevel),
	)

	now := a.now()
	level := prev.WarningLevel
	events := make([]model.VehicleEvent, 0, len(prev.Events)+len(actions))
	events = append(events, prev.Events...)

	for _, act := range actions {
		var msg string
		switch act.Name {
		case model.ActEscalateWarningLevel:
			raw := "null"
			if v, ok := act.Arguments.String("level"); ok {
				raw = strings.ToLower(v)
			}
			if parsed, ok := model.ParseWarningLevel(raw); ok {
				level = parsed
			}
			msg = "warning_level=" + raw
		case model.ActLogSafetyEvent:
			m, ok := act.Arguments.String("message")
			if !ok {
				m = "log"
			}
			msg = "log:" + m
		default:
			msg = "trigger:" + act.Name
		}
		a.logger.Debug("vehicle.action", zap.String("event", msg))
		events = append(events, model.VehicleEvent{Timestamp: now, Message: msg})
	}

	if over := len(events) - a.maxEvents; over > 0 {
		events = events[over:]
	}

	last := make(model.ActionSequence, len(actions))
	copy(last, actions)

	return model.VehicleState{
		WarningLevel: level,
		LastActions:  last,
		Events:       events,
	}
}
