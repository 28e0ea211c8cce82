package selector

import (
	"context"
	"strings"

	"github.com/ppiankov/drivewatch/internal/model"
)

// FatigueMinutes is the driving duration at which the stub recommends a rest.
const FatigueMinutes = 120

var (
	laneKeywords      = []string{"lane", "차선"}
	drowsyKeywords    = []string{"drowsy", "sleepy", "asleep", "졸"}
	gripKeywords      = []string{"steering", "hands", "grip", "핸들", "미그립"}
	collisionKeywords = []string{"collision", "crash", "충돌"}
)

// Stub is a deterministic rule-based selector. It needs no model and is
// the default when no backend is configured.
type Stub struct{}

// NewStub returns a Stub.
func NewStub() *Stub { return &Stub{} }

// Select applies the rules in fixed order and always appends exactly one
// trailing log_safety_event summarizing the selection.
func (s *Stub) Select(_ context.Context, c model.Context, prompt string) model.ActionSequence {
	p := strings.ToLower(prompt)
	var actions model.ActionSequence

	if c.LaneDeparture.Departed || mentions(p, laneKeywords) {
		actions = append(actions,
			model.NewAction(model.ActSteeringVibration, "intensity", "high"),
			model.NewAction(model.ActHUDWarning, "message", "Lane departure detected", "level", "warning"),
		)
	}

	if c.Drowsiness.Drowsy || mentions(p, drowsyKeywords) {
		actions = append(actions,
			model.NewAction(model.ActDrowsinessAlertSound, "volume_percent", 100),
			model.NewAction(model.ActVoicePrompt, "message", "Are you feeling drowsy?", "level", "critical"),
			model.NewAction(model.ActEscalateWarningLevel, "level", "critical"),
		)
	}

	if !c.SteeringGrip.HandsOn || mentions(p, gripKeywords) {
		actions = append(actions,
			model.NewAction(model.ActClusterVisualWarning, "message", "Check steering grip", "level", "warning"),
		)
	}

	if c.ForwardCollisionRisk >= 0.7 || mentions(p, collisionKeywords) {
		actions = append(actions,
			model.NewAction(model.ActClusterVisualWarning, "message", "Forward collision risk", "level", "critical"),
			model.NewAction(model.ActHUDWarning, "message", "Watch ahead", "level", "critical"),
			model.NewAction(model.ActEscalateWarningLevel, "level", "critical"),
		)
	}

	if c.DrivingDurationMinutes >= FatigueMinutes {
		actions = append(actions,
			model.NewAction(model.ActRestRecommendation, "minutes_driven", c.DrivingDurationMinutes),
		)
	}

	if len(actions) == 0 {
		return append(actions, model.NewAction(model.ActLogSafetyEvent, "message", "no_action_selected"))
	}
	return append(actions, model.NewAction(model.ActLogSafetyEvent, "message", "actions_selected", "count", len(actions)))
}

func mentions(prompt string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(prompt, k) {
			return true
		}
	}
	return false
}
