package rssi_nav

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Duration is a time.Duration that reads Go duration strings from JSON.
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// UnmarshalJSON accepts "250ms" style strings or plain nanosecond numbers.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.Errorf("duration must be a string or integer: %s", string(b))
	}
	*d = Duration(n)
	return nil
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// LogConfig controls structured logging.
type LogConfig struct {
	Enabled     bool   `json:"enabled"`
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

// AppConfig aggregates all configuration sections.
type AppConfig struct {
	Hz         float64          `json:"hz"`
	Burst      BurstConfig      `json:"burst"`
	Filter     FilterConfig     `json:"filter"`
	Obstacle   ObstacleConfig   `json:"obstacle"`
	Controller ControllerConfig `json:"controller"`
	Motion     MotionConfig     `json:"motion"`
	Signal     WirelessConfig   `json:"signal"`
	Serial     SerialConfig     `json:"serial"`
	Output     OutputConfig     `json:"output"`
	Hint       HintConfig       `json:"hint"`
	Distance   DistanceConfig   `json:"distance"`
	Viz        VizConfig        `json:"viz"`
	Log        LogConfig        `json:"log"`
}

// DefaultConfig returns the tuning used on the reference robot.
func DefaultConfig() AppConfig {
	return AppConfig{
		Hz: 20,
		Burst: BurstConfig{
			Samples:      5,
			SampleDelay:  Duration(50 * time.Millisecond),
			TrimFraction: 0.1,
		},
		Filter: FilterConfig{
			R:               2.0,
			Q:               0.05,
			InitialValue:    -70,
			InitialVariance: 1.0,
		},
		Obstacle: ObstacleConfig{
			ThresholdCM:    25,
			MaxPlausibleCM: 300,
			Debounce:       2,
		},
		Controller: ControllerConfig{
			ApproachThreshold: -53,
			TargetThreshold:   -48.5,
			TargetHold:        3,
			Deadband:          1.0,
			ReorientAfter:     3,
			VerifyFailState:   StateSearch,
			Verify:            VerifyConfig{TotalChecks: 20, RequiredHits: 4},
			Reorient: ManeuverConfig{
				Speed:     25,
				TurnAngle: 30,
				Reverse:   Duration(800 * time.Millisecond),
				Forward:   Duration(800 * time.Millisecond),
			},
			Avoid: ManeuverConfig{
				Speed:     40,
				TurnAngle: 35,
				Reverse:   Duration(800 * time.Millisecond),
				Forward:   Duration(600 * time.Millisecond),
			},
			Backoff: ManeuverConfig{
				Speed:     25,
				TurnAngle: 30,
				Reverse:   Duration(time.Second),
				Forward:   0,
			},
		},
		Motion: MotionConfig{
			MaxSteer:       35,
			SearchSpeed:    40,
			ApproachSpeed:  25,
			AvoidSpeed:     40,
			DegradeFactor:  0.8,
			WiggleAngle:    20,
			HintSlowFactor: 0.6,
			SearchPattern:  "spiral",
			SpiralStep:     0.05,
			Zigzag: ZigzagConfig{
				Straight:  Duration(8 * time.Second),
				Turn:      Duration(3 * time.Second),
				TurnAngle: -35,
			},
		},
		Signal: WirelessConfig{
			Interface: "wlan0",
			Path:      "/proc/net/wireless",
		},
		Serial: SerialConfig{
			Baud:        115200,
			ReadTimeout: Duration(200 * time.Millisecond),
		},
		Hint: HintConfig{
			TTL:        Duration(500 * time.Millisecond),
			ReadBuffer: 2048,
			MQTT:       MQTTConfig{Topic: "rssinav/vision", ClientID: "rssinav"},
		},
		Distance: DistanceConfig{RefAt1m: -50, PathLoss: 2.5},
		Viz:      VizConfig{Addr: "127.0.0.1:7070"},
		Log:      LogConfig{Enabled: true, Level: "info"},
	}
}

// LoadConfig reads the JSON config from disk on top of DefaultConfig.
func LoadConfig(path string) (AppConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %q", path)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "config %q", path)
	}
	return cfg, nil
}

// Validate checks the invariants the controller depends on.
func (c AppConfig) Validate() error {
	if c.Hz <= 0 {
		return errors.New("hz must be > 0")
	}
	if c.Burst.Samples < 1 {
		return errors.New("burst.samples must be >= 1")
	}
	if c.Burst.TrimFraction < 0 || c.Burst.TrimFraction >= 0.5 {
		return errors.Errorf("burst.trim_fraction must be in [0, 0.5), got %v", c.Burst.TrimFraction)
	}
	if c.Filter.R <= 0 || c.Filter.Q < 0 {
		return errors.New("filter.r must be > 0 and filter.q >= 0")
	}
	if c.Obstacle.Debounce < 2 {
		return errors.Errorf("obstacle.debounce must be >= 2, got %d", c.Obstacle.Debounce)
	}
	if c.Obstacle.ThresholdCM <= 0 || c.Obstacle.MaxPlausibleCM <= c.Obstacle.ThresholdCM {
		return errors.New("obstacle thresholds must satisfy 0 < threshold_cm < max_plausible_cm")
	}
	v := c.Controller.Verify
	if v.RequiredHits <= 0 || v.RequiredHits >= v.TotalChecks {
		return errors.Errorf("controller.verify needs 0 < required_hits < total_checks, got %d/%d", v.RequiredHits, v.TotalChecks)
	}
	if c.Controller.TargetThreshold <= c.Controller.ApproachThreshold {
		return errors.New("controller.target_threshold must be above approach_threshold")
	}
	if c.Controller.Deadband < 0 {
		return errors.New("controller.deadband must be >= 0")
	}
	if c.Controller.ReorientAfter < 1 {
		return errors.New("controller.reorient_after must be >= 1")
	}
	switch c.Controller.VerifyFailState {
	case 0, StateSearch, StateApproach:
	default:
		return errors.Errorf("controller.verify_fail_state must be SEARCH or APPROACH, got %s", c.Controller.VerifyFailState)
	}
	if c.Motion.MaxSteer <= 0 {
		return errors.New("motion.max_steer must be > 0")
	}
	pattern, err := ParseSearchPattern(c.Motion.SearchPattern)
	if err != nil {
		return err
	}
	if pattern == PatternSpiral && c.Motion.SpiralStep <= 0 {
		return errors.Errorf("motion.spiral_step must be > 0, got %v", c.Motion.SpiralStep)
	}
	return nil
}

// ParseNavState converts a state name into a NavState.
func ParseNavState(value string) (NavState, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	switch normalized {
	case "SEARCH":
		return StateSearch, nil
	case "APPROACH":
		return StateApproach, nil
	case "VERIFY":
		return StateVerify, nil
	case "AVOID":
		return StateAvoid, nil
	case "FINISH":
		return StateFinish, nil
	default:
		return StateSearch, errors.Errorf("unknown state %q", value)
	}
}

// UnmarshalJSON allows states to be loaded from JSON strings.
func (s *NavState) UnmarshalJSON(b []byte) error {
	var raw *string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	parsed, err := ParseNavState(*raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
