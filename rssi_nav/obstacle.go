package rssi_nav

// ObstacleConfig controls rangefinder debouncing.
type ObstacleConfig struct {
	ThresholdCM    float64 `json:"threshold_cm"`
	MaxPlausibleCM float64 `json:"max_plausible_cm"`
	Debounce       int     `json:"debounce"`
}

// ObstacleMonitor confirms an obstacle after consecutive close readings.
type ObstacleMonitor struct {
	cfg   ObstacleConfig
	count int
}

// NewObstacleMonitor constructs a monitor with the given configuration.
func NewObstacleMonitor(cfg ObstacleConfig) *ObstacleMonitor {
	return &ObstacleMonitor{cfg: cfg}
}

// Observe ingests one range reading and reports a confirmed obstacle.
//
// A missing, non-positive or implausibly large reading leaves the counter as
// it was.
func (m *ObstacleMonitor) Observe(cm float64, ok bool) bool {
	if m.Plausible(cm, ok) {
		if cm < m.cfg.ThresholdCM {
			m.count++
		} else {
			m.count = 0
		}
	}
	return m.count >= m.cfg.Debounce
}

// Plausible reports whether a reading counts as a real measurement.
func (m *ObstacleMonitor) Plausible(cm float64, ok bool) bool {
	return ok && cm > 0 && cm <= m.cfg.MaxPlausibleCM
}

// Count returns the current number of consecutive close readings.
func (m *ObstacleMonitor) Count() int { return m.count }

// Reset clears the debounce counter.
func (m *ObstacleMonitor) Reset() { m.count = 0 }
