package rssi_nav

import "math"

// DistanceConfig holds the log-distance path loss model parameters.
type DistanceConfig struct {
	RefAt1m  float64 `json:"ref_at_1m"` // dBm measured at one meter
	PathLoss float64 `json:"path_loss"` // 2 open field, 3-4 cluttered indoors
}

// EstimateDistance returns a rough distance in meters for a signal level.
//
// d = 10 ^ ((A - rssi) / (10 n)). Only meant for operator logs.
func EstimateDistance(rssi float64, cfg DistanceConfig) float64 {
	n := cfg.PathLoss
	if n <= 0 {
		n = 2
	}
	return math.Pow(10, (cfg.RefAt1m-rssi)/(10*n))
}
