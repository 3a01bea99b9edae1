package rssi_nav

// VerifyConfig sets the k-of-N arrival test.
type VerifyConfig struct {
	TotalChecks  int `json:"total_checks"`
	RequiredHits int `json:"required_hits"`
}

// VerifyOutcome is the gate progress after one recorded sample.
type VerifyOutcome struct {
	ChecksDone int
	Hits       int
	Done       bool
	Confirmed  bool
}

// VerifyGate confirms arrival only if enough of a fixed number of samples
// reach the target.
type VerifyGate struct {
	cfg    VerifyConfig
	target float64
	checks int
	hits   int
}

// NewVerifyGate constructs a gate against the given target threshold.
func NewVerifyGate(cfg VerifyConfig, target float64) *VerifyGate {
	return &VerifyGate{cfg: cfg, target: target}
}

// Record counts one filtered sample.
func (g *VerifyGate) Record(v float64) VerifyOutcome {
	if g.checks < g.cfg.TotalChecks {
		g.checks++
		if v >= g.target {
			g.hits++
		}
	}
	out := VerifyOutcome{ChecksDone: g.checks, Hits: g.hits}
	if g.checks == g.cfg.TotalChecks {
		out.Done = true
		out.Confirmed = g.hits >= g.cfg.RequiredHits
	}
	return out
}

// Reset starts a new verification round.
func (g *VerifyGate) Reset() {
	g.checks = 0
	g.hits = 0
}
