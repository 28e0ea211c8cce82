// Package gate decides from sensor context alone whether a scenario is
// risky enough to warrant an automatic pipeline run.
package gate

import (
	"fmt"

	"github.com/ppiankov/drivewatch/internal/model"
)

// Thresholds are the trigger levels for each rule. Comparisons are >=.
type Thresholds struct {
	DrowsyNoHands    float64 `mapstructure:"drowsy_no_hands" yaml:"drowsy_no_hands" json:"drowsy_no_hands"`
	DrowsyConfident  float64 `mapstructure:"drowsy_confident" yaml:"drowsy_confident" json:"drowsy_confident"`
	LaneDeparture    float64 `mapstructure:"lane_departure" yaml:"lane_departure" json:"lane_departure"`
	LaneMinSpeedKph  int     `mapstructure:"lane_min_speed_kph" yaml:"lane_min_speed_kph" json:"lane_min_speed_kph"`
	ForwardCollision float64 `mapstructure:"forward_collision" yaml:"forward_collision" json:"forward_collision"`
}

// DefaultThresholds returns the stock trigger levels.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DrowsyNoHands:    0.8,
		DrowsyConfident:  0.9,
		LaneDeparture:    0.7,
		LaneMinSpeedKph:  60,
		ForwardCollision: 0.75,
	}
}

// Gate evaluates a context against Thresholds.
type Gate struct {
	thresholds Thresholds
}

// New creates a Gate.
func New(t Thresholds) *Gate {
	return &Gate{thresholds: t}
}

// Thresholds returns the active thresholds.
func (g *Gate) Thresholds() Thresholds { return g.thresholds }

// SetThresholds replaces the thresholds, e.g. on config reload.
func (g *Gate) SetThresholds(t Thresholds) { g.thresholds = t }

// Evaluate returns the first matching rule. Order (must not be changed):
//  1. drowsy, confidence >= DrowsyNoHands, hands off
//  2. drowsy, confidence >= DrowsyConfident
//  3. lane departed, confidence >= LaneDeparture, speed >= LaneMinSpeedKph
//  4. forward collision risk >= ForwardCollision
//
// With the default thresholds rule 2 can only fire with hands on, since
// any drowsy-and-no-hands context at 0.9 already matched rule 1.
func (g *Gate) Evaluate(c model.Context) model.GateResult {
	t := g.thresholds

	if c.Drowsiness.Drowsy && c.Drowsiness.Confidence >= t.DrowsyNoHands && !c.SteeringGrip.HandsOn {
		return model.Trigger(model.EventDrowsyNoHands,
			fmt.Sprintf("drowsy(>=%.2f) + no hands", t.DrowsyNoHands))
	}

	if c.Drowsiness.Drowsy && c.Drowsiness.Confidence >= t.DrowsyConfident {
		return model.Trigger(model.EventDrowsyConfident,
			fmt.Sprintf("drowsy(>=%.2f)", t.DrowsyConfident))
	}

	if c.LaneDeparture.Departed && c.LaneDeparture.Confidence >= t.LaneDeparture && c.SpeedKph >= t.LaneMinSpeedKph {
		return model.Trigger(model.EventLaneDepartureHighSpeed,
			fmt.Sprintf("lane departure(>=%.2f) + speed(%dkph)", t.LaneDeparture, c.SpeedKph))
	}

	if c.ForwardCollisionRisk >= t.ForwardCollision {
		return model.Trigger(model.EventForwardCollisionHigh,
			fmt.Sprintf("forward collision risk(%.2f)", c.ForwardCollisionRisk))
	}

	return model.NoTrigger("no significant risk detected")
}
