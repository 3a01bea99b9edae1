package rssi_nav

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// BurstConfig controls burst sampling of the signal reader.
type BurstConfig struct {
	Samples      int      `json:"samples"`
	SampleDelay  Duration `json:"sample_delay"`
	TrimFraction float64  `json:"trim_fraction"`
}

// minTrimSamples is the smallest burst that gets trimmed.
const minTrimSamples = 5

// BurstSampler reduces several quick raw readings into one estimate.
type BurstSampler struct {
	cfg    BurstConfig
	reader SignalReader
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewBurstSampler constructs a sampler over the given reader.
func NewBurstSampler(cfg BurstConfig, reader SignalReader) *BurstSampler {
	return &BurstSampler{cfg: cfg, reader: reader, sleep: sleepCtx}
}

// Sample takes cfg.Samples readings spaced by cfg.SampleDelay.
//
// Missing samples are skipped. ok is false when no reading succeeded. An
// unavailable sensor aborts the burst with an error.
func (b *BurstSampler) Sample(ctx context.Context) (BurstEstimate, bool, error) {
	values := make([]float64, 0, b.cfg.Samples)
	for i := 0; i < b.cfg.Samples; i++ {
		v, err := b.reader.ReadSignal()
		switch {
		case err == nil:
			values = append(values, v)
		case errors.Is(err, ErrSensorUnavailable):
			return BurstEstimate{}, false, errors.Wrap(err, "burst sample")
		}
		if err := b.sleep(ctx, b.cfg.SampleDelay.D()); err != nil {
			return BurstEstimate{}, false, err
		}
	}
	if len(values) == 0 {
		return BurstEstimate{}, false, nil
	}
	mean, used := TrimmedMean(values, b.cfg.TrimFraction)
	return BurstEstimate{Value: mean, Valid: len(values), Used: used}, true, nil
}

// TrimmedMean averages values after dropping fraction of them from each end.
//
// Fewer than five values are averaged untrimmed. The input slice is sorted in
// place. used is the number of values that entered the mean.
func TrimmedMean(values []float64, fraction float64) (mean float64, used int) {
	if len(values) == 0 {
		return 0, 0
	}
	kept := values
	if len(values) >= minTrimSamples && fraction > 0 {
		sort.Float64s(values)
		cut := int(float64(len(values)) * fraction)
		if cut > 0 && 2*cut < len(values) {
			kept = values[cut : len(values)-cut]
		}
	}
	var sum float64
	for _, v := range kept {
		sum += v
	}
	return sum / float64(len(kept)), len(kept)
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
