package rssi_nav

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ManeuverConfig describes an open-loop reverse-and-turn sequence.
type ManeuverConfig struct {
	Speed     float64  `json:"speed"`
	TurnAngle float64  `json:"turn_angle"`
	Reverse   Duration `json:"reverse"`
	Forward   Duration `json:"forward"`
}

// ManeuverStep holds one actuator setting for a fixed duration.
//
// A zero speed step stops the robot.
type ManeuverStep struct {
	Speed    float64
	Steer    float64
	Duration time.Duration
}

// Maneuver is a named timed sequence played by the runner.
type Maneuver struct {
	Name  string
	Dir   TurnDir
	Steps []ManeuverStep
}

// buildManeuver stops, reverses and turns toward dir.
//
// With a forward phase the robot reverses straight and turns while driving
// forward. Without one the turn is applied while reversing.
func buildManeuver(name string, cfg ManeuverConfig, dir TurnDir, maxSteer float64) *Maneuver {
	if dir == TurnNone {
		dir = TurnLeft
	}
	turn := clampSteer(float64(dir)*cfg.TurnAngle, maxSteer)
	m := &Maneuver{Name: name, Dir: dir}
	m.Steps = append(m.Steps, ManeuverStep{})
	if cfg.Forward > 0 {
		m.Steps = append(m.Steps,
			ManeuverStep{Speed: -cfg.Speed, Steer: 0, Duration: cfg.Reverse.D()},
			ManeuverStep{Speed: cfg.Speed, Steer: turn, Duration: cfg.Forward.D()},
		)
	} else {
		m.Steps = append(m.Steps, ManeuverStep{Speed: -cfg.Speed, Steer: turn, Duration: cfg.Reverse.D()})
	}
	m.Steps = append(m.Steps, ManeuverStep{})
	return m
}

// Duration returns the total time the maneuver takes.
func (m *Maneuver) Duration() time.Duration {
	var total time.Duration
	for _, s := range m.Steps {
		total += s.Duration
	}
	return total
}

// PlayManeuver sends each step to the actuator and waits its duration.
//
// Actuation errors are collected and the sequence continues; cancellation
// aborts between steps. The returned error is the first actuation failure or
// the context error.
func PlayManeuver(ctx context.Context, act Actuator, m *Maneuver, sleep func(context.Context, time.Duration) error) error {
	if m == nil {
		return nil
	}
	if sleep == nil {
		sleep = sleepCtx
	}
	var firstErr error
	for i, step := range m.Steps {
		var err error
		if step.Speed == 0 {
			err = act.Stop()
		} else {
			err = act.Drive(step.Speed, step.Steer)
		}
		if err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "maneuver %s step %d", m.Name, i)
		}
		if err := sleep(ctx, step.Duration); err != nil {
			return err
		}
	}
	return firstErr
}
