package model

// LaneDeparture is the lane-departure sensor reading.
type LaneDeparture struct {
	Departed   bool    `json:"departed" yaml:"departed"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Drowsiness is the driver-monitoring camera reading.
type Drowsiness struct {
	Drowsy     bool    `json:"drowsy" yaml:"drowsy"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// SteeringGrip is the hands-on-wheel sensor reading.
type SteeringGrip struct {
	HandsOn bool `json:"hands_on" yaml:"hands_on"`
}

// Context is an immutable snapshot of sensed or simulated driver and vehicle
// state. Update it through the With* methods, which return a clamped copy.
type Context struct {
	LaneDeparture          LaneDeparture `json:"lane_departure" yaml:"lane_departure"`
	Drowsiness             Drowsiness    `json:"drowsiness" yaml:"drowsiness"`
	SteeringGrip           SteeringGrip  `json:"steering_grip" yaml:"steering_grip"`
	SpeedKph               int           `json:"speed_kph" yaml:"speed_kph"`
	ForwardCollisionRisk   float64       `json:"forward_collision_risk" yaml:"forward_collision_risk"`
	DrivingDurationMinutes int           `json:"driving_duration_minutes" yaml:"driving_duration_minutes"`
}

// Bounds for the clamped context fields.
const (
	MaxSpeedKph               = 240
	MaxDrivingDurationMinutes = 600
)

// DefaultContext is a calm drive: no departure, alert driver, hands on.
func DefaultContext() Context {
	return Context{
		LaneDeparture:          LaneDeparture{Confidence: 0.1},
		Drowsiness:             Drowsiness{Confidence: 0.1},
		SteeringGrip:           SteeringGrip{HandsOn: true},
		SpeedKph:               80,
		ForwardCollisionRisk:   0.2,
		DrivingDurationMinutes: 10,
	}
}

func (c Context) WithLaneDeparture(departed bool) Context {
	c.LaneDeparture.Departed = departed
	return c
}

func (c Context) WithLaneConfidence(confidence float64) Context {
	c.LaneDeparture.Confidence = clampUnit(confidence)
	return c
}

func (c Context) WithDrowsy(drowsy bool) Context {
	c.Drowsiness.Drowsy = drowsy
	return c
}

func (c Context) WithDrowsinessConfidence(confidence float64) Context {
	c.Drowsiness.Confidence = clampUnit(confidence)
	return c
}

func (c Context) WithHandsOn(handsOn bool) Context {
	c.SteeringGrip.HandsOn = handsOn
	return c
}

func (c Context) WithSpeedKph(speed int) Context {
	c.SpeedKph = clampInt(speed, 0, MaxSpeedKph)
	return c
}

func (c Context) WithForwardCollisionRisk(risk float64) Context {
	c.ForwardCollisionRisk = clampUnit(risk)
	return c
}

func (c Context) WithDrivingDurationMinutes(minutes int) Context {
	c.DrivingDurationMinutes = clampInt(minutes, 0, MaxDrivingDurationMinutes)
	return c
}

// Clamped returns c with every bounded field forced into range.
// Used on contexts that arrive from files or the wire.
func (c Context) Clamped() Context {
	return c.
		WithLaneConfidence(c.LaneDeparture.Confidence).
		WithDrowsinessConfidence(c.Drowsiness.Confidence).
		WithSpeedKph(c.SpeedKph).
		WithForwardCollisionRisk(c.ForwardCollisionRisk).
		WithDrivingDurationMinutes(c.DrivingDurationMinutes)
}

func clampUnit(v float64) float64 {
	if v != v { // NaN
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
