package rssi_nav

import (
	"context"
	"fmt"
	"time"
)

// RawSample is a single signal-strength reading in dBm.
type RawSample struct {
	T     time.Time
	Value float64
}

// BurstEstimate is the reduced value of one burst of raw samples.
//
// Valid counts readings that succeeded; Used counts the readings left after
// trimming.
type BurstEstimate struct {
	Value float64
	Valid int
	Used  int
}

// NavState is the navigation state owned by the Controller.
type NavState int

const (
	StateSearch NavState = iota + 1
	StateApproach
	StateVerify
	StateAvoid
	StateFinish
)

func (s NavState) String() string {
	switch s {
	case StateSearch:
		return "SEARCH"
	case StateApproach:
		return "APPROACH"
	case StateVerify:
		return "VERIFY"
	case StateAvoid:
		return "AVOID"
	case StateFinish:
		return "FINISH"
	default:
		return fmt.Sprintf("NavState(%d)", int(s))
	}
}

// Trend classifies the change of the filtered signal between two ticks.
type Trend int

const (
	TrendNoise Trend = iota
	TrendImproving
	TrendDegrading
)

func (t Trend) String() string {
	switch t {
	case TrendImproving:
		return "improving"
	case TrendDegrading:
		return "degrading"
	default:
		return "noise"
	}
}

// TurnDir selects a steering side. Negative steer angles turn left.
type TurnDir int

const (
	TurnLeft  TurnDir = -1
	TurnNone  TurnDir = 0
	TurnRight TurnDir = 1
)

// Opposite returns the other side. TurnNone maps to TurnLeft.
func (d TurnDir) Opposite() TurnDir {
	if d == TurnLeft {
		return TurnRight
	}
	return TurnLeft
}

func (d TurnDir) String() string {
	switch d {
	case TurnLeft:
		return "left"
	case TurnRight:
		return "right"
	default:
		return "none"
	}
}

// MotionCommand is the controller output sent to the actuator.
type MotionCommand struct {
	T     float64
	State NavState
	Speed float64 // signed, negative reverses
	Steer float64 // degrees, [-MaxSteer, MaxSteer]
}

// ObstacleHint is an advisory free-space estimate from a vision producer.
//
// FreeLeft and FreeRight are in [0, 1], larger meaning more open floor.
type ObstacleHint struct {
	Blocked   bool
	FreeLeft  float64
	FreeRight float64
}

// SignalReader returns one raw signal-strength reading.
//
// Transient failures return ErrMissingSample; a permanently absent interface
// returns ErrSensorUnavailable.
type SignalReader interface {
	ReadSignal() (float64, error)
}

// RangeReader returns the forward distance in centimeters.
type RangeReader interface {
	ReadRange() (float64, error)
}

// Actuator drives the robot. Both calls are idempotent.
type Actuator interface {
	Drive(speed, steer float64) error
	Stop() error
}

// SideScanner measures free distance on both sides by panning the rangefinder.
type SideScanner interface {
	ScanSides(ctx context.Context) (left, right float64, err error)
}

// HintSource returns the latest non-expired vision hint, if any.
type HintSource interface {
	Latest() (ObstacleHint, bool)
}
