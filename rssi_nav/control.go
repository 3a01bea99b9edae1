package rssi_nav

import "math"

// ControllerConfig bundles thresholds, counters and maneuver timings.
type ControllerConfig struct {
	ApproachThreshold float64 `json:"approach_threshold"`
	TargetThreshold   float64 `json:"target_threshold"`
	TargetHold        int     `json:"target_hold"`
	Deadband          float64 `json:"deadband"`
	ReorientAfter     int     `json:"reorient_after"`

	ResetFilterAfterAvoid bool     `json:"reset_filter_after_avoid"`
	VerifyFailState       NavState `json:"verify_fail_state"`

	Verify   VerifyConfig   `json:"verify"`
	Reorient ManeuverConfig `json:"reorient"`
	Avoid    ManeuverConfig `json:"avoid"`
	Backoff  ManeuverConfig `json:"backoff"`
}

// TickInput is the sensor summary for one control tick.
type TickInput struct {
	T        float64
	Signal   float64 // filtered
	Obstacle bool    // debounced rangefinder
	Hint     *ObstacleHint
}

// Decision is the controller output for one tick.
type Decision struct {
	Prev     NavState
	State    NavState
	Trend    Trend
	Delta    float64
	Command  MotionCommand
	Maneuver *Maneuver
	Verify   *VerifyOutcome
}

// Transitioned reports whether the tick changed state.
func (d Decision) Transitioned() bool { return d.Prev != d.State }

// Controller owns the navigation state, the filtered signal and all counters.
type Controller struct {
	Cfg    ControllerConfig
	Motion MotionConfig

	state    NavState
	filter   *SignalFilter
	obstacle *ObstacleMonitor
	gate     *VerifyGate

	prevSignal  float64
	hasPrev     bool
	drops       int
	targetHold  int
	spiralAngle float64
	searchStart *float64
	lastT       float64
	lastSteer   float64
	lastAvoid   TurnDir
}

// NewController constructs a controller in SEARCH.
func NewController(cfg AppConfig) *Controller {
	ccfg := cfg.Controller
	if ccfg.VerifyFailState != StateApproach {
		ccfg.VerifyFailState = StateSearch
	}
	return &Controller{
		Cfg:         ccfg,
		Motion:      cfg.Motion,
		state:       StateSearch,
		filter:      NewSignalFilter(cfg.Filter),
		obstacle:    NewObstacleMonitor(cfg.Obstacle),
		gate:        NewVerifyGate(ccfg.Verify, ccfg.TargetThreshold),
		spiralAngle: -cfg.Motion.MaxSteer,
	}
}

// State returns the current navigation state.
func (c *Controller) State() NavState { return c.state }

// Filtered returns the current filtered signal.
func (c *Controller) Filtered() FilteredSignal { return c.filter.State() }

// Drops returns the consecutive degrading tick count.
func (c *Controller) Drops() int { return c.drops }

// Smooth folds a burst estimate into the filtered signal.
func (c *Controller) Smooth(est BurstEstimate, ok bool) float64 {
	return c.filter.Smooth(est.Value, ok)
}

// ObserveRange feeds the obstacle monitor and returns the debounced flag.
func (c *Controller) ObserveRange(cm float64, ok bool) bool {
	return c.obstacle.Observe(cm, ok)
}

// Step advances the state machine by one tick.
func (c *Controller) Step(in TickInput) Decision {
	c.lastT = in.T
	if c.searchStart == nil {
		t := in.T
		c.searchStart = &t
	}

	trend, delta := c.classify(in.Signal)
	c.prevSignal = in.Signal
	c.hasPrev = true

	dec := Decision{Prev: c.state, Trend: trend, Delta: delta}
	switch c.state {
	case StateSearch, StateApproach:
		if in.Obstacle {
			c.state = StateAvoid
			dec.Command = Command(c.Motion, PolicyInput{
				T: in.T, State: StateAvoid, Obstacle: true, TurnDir: c.avoidDir(in.Hint),
			})
			break
		}
		if c.state == StateSearch {
			dec.Command, dec.Maneuver = c.stepSearch(in)
		} else {
			dec.Command, dec.Maneuver = c.stepApproach(in, trend)
		}
	case StateVerify:
		out := c.gate.Record(in.Signal)
		dec.Verify = &out
		dec.Command = c.stopCommand(in.T)
		if out.Done {
			if out.Confirmed {
				c.state = StateFinish
			} else {
				dec.Maneuver = buildManeuver("backoff", c.Cfg.Backoff, c.steerSide().Opposite(), c.Motion.MaxSteer)
				c.enter(c.Cfg.VerifyFailState, in.T)
			}
		}
	default:
		dec.Command = c.stopCommand(in.T)
	}

	dec.State = c.state
	dec.Command.State = c.state
	if dec.Command.Speed != 0 && dec.Command.Steer != 0 {
		c.lastSteer = dec.Command.Steer
	}
	return dec
}

// stepSearch explores until the signal crosses the approach threshold.
func (c *Controller) stepSearch(in TickInput) (MotionCommand, *Maneuver) {
	if in.Signal > c.Cfg.ApproachThreshold {
		c.enter(StateApproach, in.T)
		return Command(c.Motion, c.policyInput(in, StateApproach, TrendNoise)), nil
	}
	cmd := Command(c.Motion, c.policyInput(in, StateSearch, TrendNoise))
	c.spiralAngle = NextSpiralAngle(c.spiralAngle, c.Motion.SpiralStep, c.Motion.MaxSteer)
	return cmd, nil
}

// stepApproach follows the trend and hands over to VERIFY near the target.
func (c *Controller) stepApproach(in TickInput, trend Trend) (MotionCommand, *Maneuver) {
	if in.Signal >= c.Cfg.TargetThreshold {
		c.targetHold++
		if c.targetHold >= max(1, c.Cfg.TargetHold) {
			c.enter(StateVerify, in.T)
			return c.stopCommand(in.T), nil
		}
	} else {
		c.targetHold = 0
	}

	var m *Maneuver
	// drops counts consecutive degrading ticks only
	switch trend {
	case TrendImproving, TrendNoise:
		c.drops = 0
	case TrendDegrading:
		c.drops++
		if c.drops >= c.Cfg.ReorientAfter {
			m = buildManeuver("reorient", c.Cfg.Reorient, c.steerSide().Opposite(), c.Motion.MaxSteer)
			c.drops = 0
		}
	}
	return Command(c.Motion, c.policyInput(in, StateApproach, trend)), m
}

// CompleteAvoid builds the avoidance maneuver toward dir and returns to SEARCH.
//
// It returns nil unless the controller is in AVOID.
func (c *Controller) CompleteAvoid(dir TurnDir) *Maneuver {
	if c.state != StateAvoid {
		return nil
	}
	if dir == TurnNone {
		dir = c.lastAvoid.Opposite()
	}
	m := buildManeuver("avoid", c.Cfg.Avoid, dir, c.Motion.MaxSteer)
	c.lastAvoid = dir
	c.obstacle.Reset()
	c.hasPrev = false
	if c.Cfg.ResetFilterAfterAvoid {
		c.filter.Reset()
	}
	c.enter(StateSearch, c.lastT)
	return m
}

// NextAvoidDir is the side used when nothing better is known.
func (c *Controller) NextAvoidDir() TurnDir {
	return c.lastAvoid.Opposite()
}

// enter switches state and resets the counters owned by the new state.
func (c *Controller) enter(next NavState, t float64) {
	c.drops = 0
	c.targetHold = 0
	switch next {
	case StateSearch:
		c.searchStart = &t
		c.spiralAngle = -c.Motion.MaxSteer
	case StateVerify:
		c.gate.Reset()
	}
	c.state = next
}

// classify compares the filtered signal with the previous tick.
func (c *Controller) classify(signal float64) (Trend, float64) {
	if !c.hasPrev {
		return TrendNoise, 0
	}
	delta := signal - c.prevSignal
	switch {
	case delta > c.Cfg.Deadband:
		return TrendImproving, delta
	case delta < -c.Cfg.Deadband:
		return TrendDegrading, delta
	default:
		return TrendNoise, delta
	}
}

// policyInput fills the motion policy input for a moving state.
func (c *Controller) policyInput(in TickInput, state NavState, trend Trend) PolicyInput {
	elapsed := 0.0
	if c.searchStart != nil {
		elapsed = math.Max(0, in.T-*c.searchStart)
	}
	return PolicyInput{
		T:             in.T,
		State:         state,
		Trend:         trend,
		SpiralAngle:   c.spiralAngle,
		SearchElapsed: elapsed,
		HintBlocked:   in.Hint != nil && in.Hint.Blocked,
	}
}

// avoidDir picks the side for the immediate reverse command.
func (c *Controller) avoidDir(hint *ObstacleHint) TurnDir {
	if dir := TurnFromHint(hint); dir != TurnNone {
		return dir
	}
	return c.NextAvoidDir()
}

// steerSide returns the side of the most recent non-zero steering command.
func (c *Controller) steerSide() TurnDir {
	if c.lastSteer > 0 {
		return TurnRight
	}
	if c.lastSteer < 0 {
		return TurnLeft
	}
	return TurnNone
}

func (c *Controller) stopCommand(t float64) MotionCommand {
	return MotionCommand{T: t, State: c.state}
}

// TurnFromHint picks the side with more free space in a vision hint.
func TurnFromHint(hint *ObstacleHint) TurnDir {
	if hint == nil || hint.FreeLeft == hint.FreeRight {
		return TurnNone
	}
	if hint.FreeLeft > hint.FreeRight {
		return TurnLeft
	}
	return TurnRight
}

// TurnFromScan picks the side with the larger measured distance.
func TurnFromScan(left, right float64) TurnDir {
	if left <= 0 && right <= 0 {
		return TurnNone
	}
	if left > right {
		return TurnLeft
	}
	return TurnRight
}

// clamp keeps value inside [lo, hi].
func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
