package rssi_nav

import (
	"net/http"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/rcrowley/go-metrics/exp"
	"go.uber.org/zap"
)

// VizConfig controls the optional /debug/metrics endpoint used for live plots.
type VizConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// Metrics tracks the control loop in a go-metrics registry.
type Metrics struct {
	Registry gometrics.Registry

	filtered   gometrics.GaugeFloat64
	variance   gometrics.GaugeFloat64
	rangeCM    gometrics.GaugeFloat64
	speed      gometrics.GaugeFloat64
	steer      gometrics.GaugeFloat64
	state      gometrics.Gauge
	ticks      gometrics.Counter
	emptyBurst gometrics.Counter
	obstacles  gometrics.Counter
	actErrors  gometrics.Counter
	maneuvers  gometrics.Counter
	burstValid gometrics.Histogram
}

// NewMetrics registers the loop metrics in a fresh registry.
func NewMetrics() *Metrics {
	r := gometrics.NewRegistry()
	return &Metrics{
		Registry:   r,
		filtered:   gometrics.NewRegisteredGaugeFloat64("signal.filtered", r),
		variance:   gometrics.NewRegisteredGaugeFloat64("signal.variance", r),
		rangeCM:    gometrics.NewRegisteredGaugeFloat64("range.cm", r),
		speed:      gometrics.NewRegisteredGaugeFloat64("output.speed", r),
		steer:      gometrics.NewRegisteredGaugeFloat64("output.steer", r),
		state:      gometrics.NewRegisteredGauge("nav.state", r),
		ticks:      gometrics.NewRegisteredCounter("loop.ticks", r),
		emptyBurst: gometrics.NewRegisteredCounter("signal.empty_bursts", r),
		obstacles:  gometrics.NewRegisteredCounter("range.obstacles", r),
		actErrors:  gometrics.NewRegisteredCounter("output.errors", r),
		maneuvers:  gometrics.NewRegisteredCounter("output.maneuvers", r),
		burstValid: gometrics.NewRegisteredHistogram("signal.burst_valid", r, gometrics.NewUniformSample(256)),
	}
}

// StartViz serves the registry as JSON on cfg.Addr.
func StartViz(cfg VizConfig, m *Metrics, logger *zap.Logger) *http.Server {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:7070"
	}

	mux := http.NewServeMux()
	mux.Handle("/debug/metrics", exp.ExpHandler(m.Registry))
	server := &http.Server{Addr: cfg.Addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("viz server error", zap.Error(err))
		}
	}()
	return server
}

// ObserveBurst records one burst result.
func (m *Metrics) ObserveBurst(est BurstEstimate, ok bool) {
	m.burstValid.Update(int64(est.Valid))
	if !ok {
		m.emptyBurst.Inc(1)
	}
}

// ObserveTick records the filtered signal and the decision of one tick.
func (m *Metrics) ObserveTick(sig FilteredSignal, rangeCM float64, dec Decision) {
	m.ticks.Inc(1)
	m.filtered.Update(sig.X)
	m.variance.Update(sig.P)
	m.rangeCM.Update(rangeCM)
	m.state.Update(int64(dec.State))
	m.speed.Update(dec.Command.Speed)
	m.steer.Update(dec.Command.Steer)
	if dec.State == StateAvoid && dec.Transitioned() {
		m.obstacles.Inc(1)
	}
}

// ObserveManeuver counts a played maneuver.
func (m *Metrics) ObserveManeuver() {
	m.maneuvers.Inc(1)
}

// ObserveActuationError counts a failed drive or stop call.
func (m *Metrics) ObserveActuationError() {
	m.actErrors.Inc(1)
}
