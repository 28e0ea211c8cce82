package model

import (
	"fmt"
	"strings"
	"time"
)

// WarningLevel is the vehicle's driver-warning state. Only the
// escalate_warning_level action moves it.
type WarningLevel int

const (
	Normal   WarningLevel = 0
	Warning  WarningLevel = 1
	Critical WarningLevel = 2
)

func (l WarningLevel) String() string {
	switch l {
	case Normal:
		return "NORMAL"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseWarningLevel maps a level argument case-insensitively.
// Returns false for anything outside normal|warning|critical.
func ParseWarningLevel(s string) (WarningLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal":
		return Normal, true
	case "warning":
		return Warning, true
	case "critical":
		return Critical, true
	default:
		return Normal, false
	}
}

// MarshalText renders the level as its upper-case name.
func (l WarningLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText accepts the level name in any case.
func (l *WarningLevel) UnmarshalText(b []byte) error {
	parsed, ok := ParseWarningLevel(string(b))
	if !ok {
		return fmt.Errorf("unknown warning level %q", string(b))
	}
	*l = parsed
	return nil
}

// ScenarioEvent is the single diagnostic event reported by the scenario gate.
type ScenarioEvent string

const (
	EventNone                   ScenarioEvent = "NONE"
	EventLaneDepartureHighSpeed ScenarioEvent = "LANE_DEPARTURE_HIGH_SPEED"
	EventDrowsyConfident        ScenarioEvent = "DROWSY_CONFIDENT"
	EventDrowsyNoHands          ScenarioEvent = "DROWSY_NO_HANDS"
	EventForwardCollisionHigh   ScenarioEvent = "FORWARD_COLLISION_HIGH"
	EventManualTrigger          ScenarioEvent = "MANUAL_TRIGGER"
)

// GateResult is the output of scenario gate evaluation.
// Triggered is always equal to Event != EventNone.
type GateResult struct {
	Triggered bool          `json:"triggered"`
	Event     ScenarioEvent `json:"event"`
	Reason    string        `json:"reason"`
}

// NoTrigger returns the non-triggered result with the given reason.
func NoTrigger(reason string) GateResult {
	return GateResult{Event: EventNone, Reason: reason}
}

// Trigger returns a triggered result for event.
func Trigger(event ScenarioEvent, reason string) GateResult {
	return GateResult{Triggered: event != EventNone, Event: event, Reason: reason}
}

// SafetyResult is the output of the cooldown safety gate.
// Executed and Blocked together hold every input action exactly once.
type SafetyResult struct {
	Executed ActionSequence `json:"executed"`
	Blocked  ActionSequence `json:"blocked"`
	Logs     []string       `json:"logs"`
}

// VehicleEvent is one line in the mock vehicle's event log.
type VehicleEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// VehicleState is the mock vehicle snapshot. Each apply produces a new one.
type VehicleState struct {
	WarningLevel WarningLevel   `json:"warning_level"`
	LastActions  ActionSequence `json:"last_actions"`
	Events       []VehicleEvent `json:"events"`
}

// NewVehicleState returns the initial state: NORMAL, nothing logged.
func NewVehicleState() VehicleState {
	return VehicleState{
		WarningLevel: Normal,
		LastActions:  ActionSequence{},
		Events:       []VehicleEvent{},
	}
}
