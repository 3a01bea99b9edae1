package rssi_nav

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

// SearchPattern selects the exploration motion used in SEARCH.
type SearchPattern int

const (
	PatternSpiral SearchPattern = iota
	PatternZigzag
)

// ParseSearchPattern converts a pattern name. Empty means spiral.
func ParseSearchPattern(value string) (SearchPattern, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "spiral":
		return PatternSpiral, nil
	case "zigzag":
		return PatternZigzag, nil
	default:
		return PatternSpiral, errors.Errorf("unknown search pattern %q", value)
	}
}

// ZigzagConfig is a timed straight-then-turn search cycle.
type ZigzagConfig struct {
	Straight  Duration `json:"straight"`
	Turn      Duration `json:"turn"`
	TurnAngle float64  `json:"turn_angle"`
}

// MotionConfig holds speeds and steering limits.
type MotionConfig struct {
	MaxSteer       float64      `json:"max_steer"`
	SearchSpeed    float64      `json:"search_speed"`
	ApproachSpeed  float64      `json:"approach_speed"`
	AvoidSpeed     float64      `json:"avoid_speed"`
	DegradeFactor  float64      `json:"degrade_factor"`
	WiggleAngle    float64      `json:"wiggle_angle"`
	HintSlowFactor float64      `json:"hint_slow_factor"`
	SearchPattern  string       `json:"search_pattern"`
	SpiralStep     float64      `json:"spiral_step"`
	Zigzag         ZigzagConfig `json:"zigzag"`
}

// PolicyInput is everything the motion policy needs for one tick.
type PolicyInput struct {
	T             float64
	State         NavState
	Trend         Trend
	Obstacle      bool
	TurnDir       TurnDir
	SpiralAngle   float64
	SearchElapsed float64 // seconds since SEARCH was entered
	HintBlocked   bool
}

// Command maps the controller situation to a motion command.
func Command(cfg MotionConfig, in PolicyInput) MotionCommand {
	var speed, steer float64
	switch {
	case in.Obstacle:
		dir := in.TurnDir
		if dir == TurnNone {
			dir = TurnLeft
		}
		speed = -cfg.AvoidSpeed
		steer = float64(dir) * cfg.MaxSteer
	case in.State == StateSearch:
		speed = cfg.SearchSpeed
		steer = searchSteer(cfg, in)
	case in.State == StateApproach:
		speed = cfg.ApproachSpeed
		if in.Trend == TrendDegrading {
			speed *= cfg.DegradeFactor
			steer = cfg.WiggleAngle
		}
	}
	if in.HintBlocked && speed > 0 && cfg.HintSlowFactor > 0 {
		speed *= cfg.HintSlowFactor
	}
	return MotionCommand{T: in.T, State: in.State, Speed: speed, Steer: clampSteer(steer, cfg.MaxSteer)}
}

// searchSteer returns the steering angle for the configured search pattern.
func searchSteer(cfg MotionConfig, in PolicyInput) float64 {
	pattern, _ := ParseSearchPattern(cfg.SearchPattern)
	if pattern == PatternSpiral {
		return in.SpiralAngle
	}
	straight := cfg.Zigzag.Straight.D().Seconds()
	cycle := straight + cfg.Zigzag.Turn.D().Seconds()
	if cycle <= 0 {
		return 0
	}
	if math.Mod(in.SearchElapsed, cycle) < straight {
		return 0
	}
	return cfg.Zigzag.TurnAngle
}

// NextSpiralAngle advances the decaying spiral steer angle by one tick.
//
// The angle moves toward zero by step and snaps back to full left lock once
// it would reach or cross zero.
func NextSpiralAngle(angle, step, maxSteer float64) float64 {
	next := angle + step
	if angle >= 0 || next >= 0 {
		return -maxSteer
	}
	return next
}

// clampSteer keeps a steering angle inside the mechanical limit.
func clampSteer(steer, maxSteer float64) float64 {
	if math.IsNaN(steer) {
		return 0
	}
	return clamp(steer, -math.Abs(maxSteer), math.Abs(maxSteer))
}
