package cli

import (
	"github.com/spf13/cobra"

	"github.com/ppiankov/drivewatch/internal/model"
)

// contextFlags overrides individual context fields from the command line.
// Only flags the user actually set are applied.
type contextFlags struct {
	lane             bool
	laneConfidence   float64
	drowsy           bool
	drowsyConfidence float64
	handsOff         bool
	speed            int
	collision        float64
	minutes          int
}

func (f *contextFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.BoolVar(&f.lane, "lane", false, "Lane departure detected")
	fl.Float64Var(&f.laneConfidence, "lane-confidence", 0, "Lane departure confidence (0..1)")
	fl.BoolVar(&f.drowsy, "drowsy", false, "Driver drowsiness detected")
	fl.Float64Var(&f.drowsyConfidence, "drowsy-confidence", 0, "Drowsiness confidence (0..1)")
	fl.BoolVar(&f.handsOff, "hands-off", false, "No hands on the steering wheel")
	fl.IntVar(&f.speed, "speed", 0, "Vehicle speed in km/h (0..240)")
	fl.Float64Var(&f.collision, "collision", 0, "Forward collision risk (0..1)")
	fl.IntVar(&f.minutes, "minutes", 0, "Continuous driving duration in minutes")
}

func (f *contextFlags) changed(cmd *cobra.Command) bool {
	for _, name := range []string{"lane", "lane-confidence", "drowsy", "drowsy-confidence", "hands-off", "speed", "collision", "minutes"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func (f *contextFlags) apply(cmd *cobra.Command, c model.Context) model.Context {
	fl := cmd.Flags()
	if fl.Changed("lane") {
		c = c.WithLaneDeparture(f.lane)
	}
	if fl.Changed("lane-confidence") {
		c = c.WithLaneConfidence(f.laneConfidence)
	}
	if fl.Changed("drowsy") {
		c = c.WithDrowsy(f.drowsy)
	}
	if fl.Changed("drowsy-confidence") {
		c = c.WithDrowsinessConfidence(f.drowsyConfidence)
	}
	if fl.Changed("hands-off") {
		c = c.WithHandsOn(!f.handsOff)
	}
	if fl.Changed("speed") {
		c = c.WithSpeedKph(f.speed)
	}
	if fl.Changed("collision") {
		c = c.WithForwardCollisionRisk(f.collision)
	}
	if fl.Changed("minutes") {
		c = c.WithDrivingDurationMinutes(f.minutes)
	}
	return c.Clamped()
}
