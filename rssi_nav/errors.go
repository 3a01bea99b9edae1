package rssi_nav

import "github.com/pkg/errors"

var (
	// ErrMissingSample marks a single failed read. Callers drop the sample.
	ErrMissingSample = errors.New("missing sample")
	// ErrSensorUnavailable marks a sensor that will not come back.
	ErrSensorUnavailable = errors.New("sensor unavailable")
)

// IsSensorUnavailable reports whether err wraps ErrSensorUnavailable.
func IsSensorUnavailable(err error) bool {
	return errors.Is(err, ErrSensorUnavailable)
}
