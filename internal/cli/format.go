package cli

import (
	"fmt"
	"strings"

	"github.com/ppiankov/drivewatch/internal/model"
	"github.com/ppiankov/drivewatch/internal/session"
)

func formatContext(c model.Context) string {
	hands := "on"
	if !c.SteeringGrip.HandsOn {
		hands = "off"
	}
	return fmt.Sprintf("lane=%t(%.2f) drowsy=%t(%.2f) hands=%s speed=%dkph collision=%.2f minutes=%d",
		c.LaneDeparture.Departed, c.LaneDeparture.Confidence,
		c.Drowsiness.Drowsy, c.Drowsiness.Confidence,
		hands, c.SpeedKph, c.ForwardCollisionRisk, c.DrivingDurationMinutes)
}

func formatGate(g model.GateResult) string {
	return fmt.Sprintf("%s (%s)", g.Event, g.Reason)
}

func formatNames(actions model.ActionSequence) string {
	if len(actions) == 0 {
		return "-"
	}
	return strings.Join(actions.Names(), ", ")
}

// formatSnapshot renders one pipeline run for the terminal. Engineer mode
// appends the raw JSON handed to the safety gate.
func formatSnapshot(snap session.Snapshot, engineer bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s  event=%s\n", snap.RunID, snap.Event)
	fmt.Fprintf(&b, "  gate:     %s\n", formatGate(snap.Gate))
	fmt.Fprintf(&b, "  context:  %s\n", formatContext(snap.Context))
	if snap.Prompt != "" {
		fmt.Fprintf(&b, "  prompt:   %q\n", snap.Prompt)
	}
	fmt.Fprintf(&b, "  selected: %s\n", formatNames(snap.Selected))
	fmt.Fprintf(&b, "  executed: %s\n", formatNames(snap.Safety.Executed))
	fmt.Fprintf(&b, "  blocked:  %s\n", formatNames(snap.Safety.Blocked))
	for _, line := range snap.Safety.Logs {
		fmt.Fprintf(&b, "    %s\n", line)
	}
	fmt.Fprintf(&b, "  warning:  %s\n", snap.Vehicle.WarningLevel)
	for _, ev := range snap.Vehicle.Events {
		fmt.Fprintf(&b, "    %s %s\n", ev.Timestamp.Format("15:04:05.000"), ev.Message)
	}
	if engineer {
		b.WriteString("\n")
		b.WriteString(snap.EngineerJSON)
		b.WriteString("\n")
	}
	return b.String()
}
