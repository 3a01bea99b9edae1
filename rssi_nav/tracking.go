package rssi_nav

// FilterConfig controls the recursive signal estimator.
type FilterConfig struct {
	R               float64 `json:"r"`
	Q               float64 `json:"q"`
	InitialValue    float64 `json:"initial_value"`
	InitialVariance float64 `json:"initial_variance"`
}

// FilteredSignal is the running estimate and its variance.
type FilteredSignal struct {
	X float64
	P float64
}

// SignalFilter is a one-dimensional Kalman filter over burst estimates.
//
// R is the measurement noise (larger trusts new samples less); Q is the
// process noise (larger lets the estimate move faster).
type SignalFilter struct {
	cfg   FilterConfig
	state FilteredSignal
}

// NewSignalFilter constructs a filter seeded with the configured low value.
func NewSignalFilter(cfg FilterConfig) *SignalFilter {
	f := &SignalFilter{cfg: cfg}
	f.Reset()
	return f
}

// Smooth folds one measurement into the estimate and returns it.
//
// With ok == false the previous estimate is returned and the variance is left
// untouched.
func (f *SignalFilter) Smooth(z float64, ok bool) float64 {
	pPred := f.state.P + f.cfg.Q
	if !ok {
		return f.state.X
	}
	k := pPred / (pPred + f.cfg.R)
	f.state.X += k * (z - f.state.X)
	f.state.P = (1 - k) * pPred
	return f.state.X
}

// State returns the current estimate and variance.
func (f *SignalFilter) State() FilteredSignal {
	return f.state
}

// Reset re-seeds the filter for a fresh acquisition.
func (f *SignalFilter) Reset() {
	p := f.cfg.InitialVariance
	if p <= 0 {
		p = 1.0
	}
	f.state = FilteredSignal{X: f.cfg.InitialValue, P: p}
}
