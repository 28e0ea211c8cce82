package scenario

import (
	"strconv"
	"strings"

	"github.com/ppiankov/drivewatch/internal/model"
)

func demoContext(laneDeparted bool, laneConf float64, drowsy bool, drowsyConf float64, handsOn bool, speed int, collision float64, minutes int) model.Context {
	return model.Context{
		LaneDeparture:          model.LaneDeparture{Departed: laneDeparted, Confidence: laneConf},
		Drowsiness:             model.Drowsiness{Drowsy: drowsy, Confidence: drowsyConf},
		SteeringGrip:           model.SteeringGrip{HandsOn: handsOn},
		SpeedKph:               speed,
		ForwardCollisionRisk:   collision,
		DrivingDurationMinutes: minutes,
	}
}

// Builtin returns the demo catalog. The first entry is the session default.
func Builtin() []Demo {
	return []Demo{
		{"Normal driving", "Status check", demoContext(false, 0.1, false, 0.1, true, 80, 0.2, 10)},
		{"Lane departure (sensor)", "Lane departure detected", demoContext(true, 0.7, false, 0.2, true, 85, 0.2, 20)},
		{"Lane departure + no grip", "Lane departure detected and the driver is not holding the steering wheel", demoContext(true, 0.8, false, 0.2, false, 90, 0.2, 25)},
		{"Lane departure (prompt)", "The car seems to be drifting out of the lane", demoContext(false, 0.2, false, 0.2, true, 70, 0.2, 15)},
		{"Drowsy (sensor)", "Drowsy driving suspected", demoContext(false, 0.1, true, 0.85, true, 70, 0.2, 90)},
		{"Drowsy (prompt)", "I feel sleepy. Warn me", demoContext(false, 0.1, false, 0.3, true, 75, 0.2, 80)},
		{"No grip (sensor)", "The driver is not holding the steering wheel", demoContext(false, 0.1, false, 0.2, false, 60, 0.2, 30)},
		{"No grip (prompt)", "I think my hands are off the wheel", demoContext(false, 0.1, false, 0.2, true, 55, 0.2, 25)},
		{"Forward collision (sensor)", "Forward collision risk is high", demoContext(false, 0.1, false, 0.2, true, 90, 0.9, 15)},
		{"Forward collision (prompt)", "Are we about to crash?", demoContext(false, 0.1, false, 0.2, true, 50, 0.2, 15)},
		{"Compound risk (lane + drowsy + collision)", "Drifting out of the lane, sleepy, and a collision risk ahead", demoContext(true, 0.9, true, 0.9, false, 100, 0.95, 120)},
		{"Borderline (noise)", "The road markings look a little shaky", demoContext(false, 0.55, false, 0.4, true, 65, 0.6, 40)},
	}
}

// Find looks a demo up by 1-based index or case-insensitive title.
func Find(demos []Demo, key string) (Demo, bool) {
	key = strings.TrimSpace(key)
	if n, err := strconv.Atoi(key); err == nil {
		if n >= 1 && n <= len(demos) {
			return demos[n-1], true
		}
		return Demo{}, false
	}
	for _, d := range demos {
		if strings.EqualFold(d.Title, key) {
			return d, true
		}
	}
	return Demo{}, false
}
