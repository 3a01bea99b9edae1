package rssi_nav

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Hardware bundles the collaborators the control loop talks to.
//
// Scanner and Hints are optional.
type Hardware struct {
	Signal   SignalReader
	Range    RangeReader
	Actuator Actuator
	Scanner  SideScanner
	Hints    HintSource
}

// Runner drives the controller at a fixed best-effort rate.
type Runner struct {
	cfg     AppConfig
	hw      Hardware
	ctrl    *Controller
	sampler *BurstSampler
	metrics *Metrics
	logger  *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewRunner constructs a runner with a fresh controller in SEARCH.
func NewRunner(cfg AppConfig, hw Hardware, metrics *Metrics, logger *zap.Logger) *Runner {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:     cfg,
		hw:      hw,
		ctrl:    NewController(cfg),
		sampler: NewBurstSampler(cfg.Burst, hw.Signal),
		metrics: metrics,
		logger:  logger,
		sleep:   sleepCtx,
		now:     time.Now,
	}
}

// Controller exposes the controller for inspection.
func (r *Runner) Controller() *Controller { return r.ctrl }

// Run executes the control loop until FINISH, cancellation or a fatal error.
//
// The robot is stopped before Run returns. Cancellation is not an error.
func (r *Runner) Run(ctx context.Context) error {
	if r.cfg.Hz <= 0 {
		return errors.New("hz must be > 0")
	}
	defer r.safeStop()

	dtTarget := time.Duration(float64(time.Second) / r.cfg.Hz)
	t0 := r.now()
	r.logger.Info("homing started",
		zap.Float64("approach_threshold", r.cfg.Controller.ApproachThreshold),
		zap.Float64("target_threshold", r.cfg.Controller.TargetThreshold))

	for {
		if ctx.Err() != nil {
			r.logger.Info("homing cancelled", zap.Stringer("state", r.ctrl.State()))
			return nil
		}
		start := r.now()
		done, err := r.tick(ctx, start.Sub(t0).Seconds())
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				r.logger.Info("homing cancelled", zap.Stringer("state", r.ctrl.State()))
				return nil
			}
			r.logger.Error("control loop halted", zap.Stringer("state", r.ctrl.State()), zap.Error(err))
			return err
		}
		if done {
			sig := r.ctrl.Filtered()
			r.logger.Info("source found",
				zap.Float64("signal", sig.X),
				zap.Float64("distance_m", EstimateDistance(sig.X, r.cfg.Distance)))
			return nil
		}
		if err := r.sleep(ctx, dtTarget-r.now().Sub(start)); err != nil {
			continue
		}
	}
}

// tick runs one sense-decide-act cycle. It reports done once FINISH is reached.
func (r *Runner) tick(ctx context.Context, t float64) (done bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Errorf("panic in control tick: %v", rec)
		}
	}()

	// Range first: nothing below may skip the obstacle check.
	cm, rerr := r.hw.Range.ReadRange()
	if IsSensorUnavailable(rerr) {
		return false, errors.Wrap(rerr, "rangefinder")
	}
	obstacle := r.ctrl.ObserveRange(cm, rerr == nil)

	est, ok, err := r.sampler.Sample(ctx)
	if err != nil {
		return false, err
	}
	r.metrics.ObserveBurst(est, ok)
	signal := r.ctrl.Smooth(est, ok)

	var hint *ObstacleHint
	if r.hw.Hints != nil {
		if h, fresh := r.hw.Hints.Latest(); fresh {
			hint = &h
		}
	}

	dec := r.ctrl.Step(TickInput{T: t, Signal: signal, Obstacle: obstacle, Hint: hint})
	r.metrics.ObserveTick(r.ctrl.Filtered(), cm, dec)
	r.logTick(dec, est, ok, cm, rerr == nil)

	switch dec.State {
	case StateAvoid:
		dir := r.chooseAvoidDir(ctx, hint)
		m := r.ctrl.CompleteAvoid(dir)
		r.logger.Info("avoiding obstacle", zap.Float64("range_cm", cm), zap.Stringer("turn", m.Dir))
		r.play(ctx, m)
	case StateFinish:
		r.apply(MotionCommand{T: t, State: StateFinish})
		return true, nil
	default:
		r.apply(dec.Command)
		if dec.Maneuver != nil {
			r.logger.Info("maneuver", zap.String("name", dec.Maneuver.Name), zap.Stringer("turn", dec.Maneuver.Dir))
			r.play(ctx, dec.Maneuver)
		}
	}
	return false, nil
}

// chooseAvoidDir prefers a fresh vision hint, then an ultrasonic side scan.
func (r *Runner) chooseAvoidDir(ctx context.Context, hint *ObstacleHint) TurnDir {
	if dir := TurnFromHint(hint); dir != TurnNone {
		return dir
	}
	if r.hw.Scanner == nil {
		return TurnNone
	}
	left, right, err := r.hw.Scanner.ScanSides(ctx)
	if err != nil {
		r.logger.Warn("side scan failed", zap.Error(err))
		return TurnNone
	}
	r.logger.Debug("side scan", zap.Float64("left_cm", left), zap.Float64("right_cm", right))
	return TurnFromScan(left, right)
}

// apply sends one command. Failures are logged and followed by a stop retry.
func (r *Runner) apply(cmd MotionCommand) {
	if s, ok := r.hw.Actuator.(interface{ SetState(NavState) }); ok {
		s.SetState(cmd.State)
	}
	var err error
	if cmd.Speed == 0 {
		err = r.hw.Actuator.Stop()
	} else {
		err = r.hw.Actuator.Drive(cmd.Speed, cmd.Steer)
	}
	if err != nil {
		r.actuationFailed(err)
	}
}

// play runs a maneuver and handles actuation failures like apply.
func (r *Runner) play(ctx context.Context, m *Maneuver) {
	if m == nil {
		return
	}
	r.metrics.ObserveManeuver()
	err := PlayManeuver(ctx, r.hw.Actuator, m, r.sleep)
	if err != nil && ctx.Err() == nil {
		r.actuationFailed(err)
	}
}

func (r *Runner) actuationFailed(err error) {
	r.metrics.ObserveActuationError()
	r.logger.Warn("actuation failed", zap.Error(err))
	if serr := r.hw.Actuator.Stop(); serr != nil {
		r.metrics.ObserveActuationError()
		r.logger.Error("stop retry failed", zap.Error(serr))
	}
}

// safeStop is the last thing the loop does on any exit path.
func (r *Runner) safeStop() {
	if err := r.hw.Actuator.Stop(); err != nil {
		r.logger.Error("final stop failed", zap.Error(err))
		if err := r.hw.Actuator.Stop(); err != nil {
			r.logger.Error("final stop retry failed", zap.Error(err))
		}
	}
}

func (r *Runner) logTick(dec Decision, est BurstEstimate, ok bool, cm float64, rangeOK bool) {
	if dec.Transitioned() {
		r.logger.Info("state change",
			zap.Stringer("from", dec.Prev),
			zap.Stringer("to", dec.State),
			zap.Float64("signal", r.ctrl.Filtered().X))
	}
	if dec.Verify != nil {
		r.logger.Info("verify",
			zap.Int("check", dec.Verify.ChecksDone),
			zap.Int("hits", dec.Verify.Hits),
			zap.Bool("done", dec.Verify.Done),
			zap.Bool("confirmed", dec.Verify.Confirmed))
	}
	if ce := r.logger.Check(zap.DebugLevel, "tick"); ce != nil {
		sig := r.ctrl.Filtered()
		ce.Write(
			zap.Float64("t", dec.Command.T),
			zap.Stringer("state", dec.State),
			zap.Bool("burst_ok", ok),
			zap.Float64("burst", est.Value),
			zap.Int("burst_valid", est.Valid),
			zap.Float64("filtered", sig.X),
			zap.Float64("variance", sig.P),
			zap.Bool("range_ok", rangeOK),
			zap.Float64("range_cm", cm),
			zap.Stringer("trend", dec.Trend),
			zap.Float64("delta", dec.Delta),
			zap.Int("drops", r.ctrl.Drops()),
			zap.Float64("speed", dec.Command.Speed),
			zap.Float64("steer", dec.Command.Steer),
		)
	}
}

// MeasureResult is one line of the measure command.
type MeasureResult struct {
	Burst     BurstEstimate
	OK        bool
	Filtered  FilteredSignal
	DistanceM float64
}

// RunMeasure samples the signal count times without moving and reports each
// burst through out.
func RunMeasure(ctx context.Context, cfg AppConfig, reader SignalReader, count int, out func(MeasureResult)) error {
	sampler := NewBurstSampler(cfg.Burst, reader)
	filter := NewSignalFilter(cfg.Filter)
	for i := 0; count <= 0 || i < count; i++ {
		est, ok, err := sampler.Sample(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		filter.Smooth(est.Value, ok)
		sig := filter.State()
		out(MeasureResult{Burst: est, OK: ok, Filtered: sig, DistanceM: EstimateDistance(sig.X, cfg.Distance)})
	}
	return nil
}
