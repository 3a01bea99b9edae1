package rssi_nav

import (
	"context"
	"fmt"
	"time"
)

// scriptedSignal replays values; a non-nil error at the same index wins.
// After the script it repeats the last value.
type scriptedSignal struct {
	values []float64
	errs   []error
	i      int
	onRead func(n int)
}

func (s *scriptedSignal) ReadSignal() (float64, error) {
	i := s.i
	s.i++
	if s.onRead != nil {
		s.onRead(s.i)
	}
	if i < len(s.errs) && s.errs[i] != nil {
		return 0, s.errs[i]
	}
	if len(s.values) == 0 {
		return 0, ErrMissingSample
	}
	if i >= len(s.values) {
		i = len(s.values) - 1
	}
	return s.values[i], nil
}

type constRange struct {
	cm    float64
	err   error
	panic bool
}

func (r *constRange) ReadRange() (float64, error) {
	if r.panic {
		panic("range driver crashed")
	}
	return r.cm, r.err
}

type recordingActuator struct {
	calls    []string
	driveErr error
	stopErr  error
	stops    int
}

func (a *recordingActuator) Drive(speed, steer float64) error {
	a.calls = append(a.calls, fmt.Sprintf("drive %.1f %.1f", speed, steer))
	return a.driveErr
}

func (a *recordingActuator) Stop() error {
	a.stops++
	a.calls = append(a.calls, "stop")
	return a.stopErr
}

func (a *recordingActuator) last() string {
	if len(a.calls) == 0 {
		return ""
	}
	return a.calls[len(a.calls)-1]
}

type fixedScanner struct {
	left, right float64
	err         error
	scans       int
}

func (s *fixedScanner) ScanSides(context.Context) (float64, float64, error) {
	s.scans++
	return s.left, s.right, s.err
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// testConfig is the configuration used by the controller scenarios.
func testConfig() AppConfig {
	cfg := DefaultConfig()
	cfg.Hz = 1000
	cfg.Burst.Samples = 3
	cfg.Burst.SampleDelay = 0
	cfg.Controller.ApproachThreshold = -55
	cfg.Controller.TargetThreshold = -46
	cfg.Controller.TargetHold = 3
	cfg.Controller.Deadband = 1
	cfg.Controller.ReorientAfter = 3
	cfg.Obstacle.Debounce = 3
	cfg.Log.Enabled = false
	return cfg
}
