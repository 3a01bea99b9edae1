package rssi_nav

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func TestTrimmedMeanRejectsOutlier(t *testing.T) {
	cases := []struct {
		name     string
		base     []float64
		fraction float64
	}{
		{"five samples", []float64{-60, -61, -59, -60, -62}, 0.2},
		{"ten samples", []float64{-60, -61, -59, -60, -62, -58, -61, -60, -59, -60}, 0.1},
	}
	for _, tc := range cases {
		for pos := range tc.base {
			for _, outlier := range []float64{-20, -110} {
				values := append([]float64(nil), tc.base...)
				values[pos] = outlier
				untrimmed := mean(values)
				deviation := math.Abs(outlier - mean(tc.base))

				trimmed, used := TrimmedMean(append([]float64(nil), values...), tc.fraction)
				assert.Less(t, used, len(values), tc.name)
				assert.Less(t, math.Abs(trimmed-untrimmed), deviation, "%s pos=%d outlier=%v", tc.name, pos, outlier)
				assert.InDelta(t, mean(tc.base), trimmed, 1.5, "%s pos=%d outlier=%v", tc.name, pos, outlier)
			}
		}
	}
}

func TestTrimmedMeanSmallBurstIsNotTrimmed(t *testing.T) {
	for n := 1; n < 5; n++ {
		values := []float64{-40, -80, -60, -70}[:n]
		got, used := TrimmedMean(append([]float64(nil), values...), 0.4)
		assert.Equal(t, n, used)
		assert.InDelta(t, mean(values), got, 1e-9)
	}

	got, used := TrimmedMean(nil, 0.1)
	assert.Equal(t, 0, used)
	assert.Zero(t, got)
}

func TestBurstSamplerSkipsMissingSamples(t *testing.T) {
	t.Run("partial burst", func(t *testing.T) {
		reader := &scriptedSignal{
			values: []float64{-50, 0, -54, 0, -52},
			errs:   []error{nil, ErrMissingSample, nil, ErrMissingSample, nil},
		}
		sampler := NewBurstSampler(BurstConfig{Samples: 5, TrimFraction: 0.2}, reader)
		sampler.sleep = noSleep

		est, ok, err := sampler.Sample(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 3, est.Valid)
		assert.Equal(t, 3, est.Used)
		assert.InDelta(t, -52, est.Value, 1e-9)
	})

	t.Run("empty burst", func(t *testing.T) {
		reader := &scriptedSignal{errs: []error{ErrMissingSample, ErrMissingSample, ErrMissingSample}}
		sampler := NewBurstSampler(BurstConfig{Samples: 3}, reader)
		sampler.sleep = noSleep

		_, ok, err := sampler.Sample(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("full burst is trimmed", func(t *testing.T) {
		reader := &scriptedSignal{values: []float64{-60, -20, -61, -59, -60, -100, -60, -61, -59, -60}}
		sampler := NewBurstSampler(BurstConfig{Samples: 10, TrimFraction: 0.1}, reader)
		sampler.sleep = noSleep

		est, ok, err := sampler.Sample(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 10, est.Valid)
		assert.Equal(t, 8, est.Used)
		assert.InDelta(t, -60, est.Value, 0.01)
	})
}

func TestBurstSamplerStopsOnUnavailableSensor(t *testing.T) {
	reader := &scriptedSignal{
		values: []float64{-50, -50},
		errs:   []error{nil, ErrSensorUnavailable},
	}
	sampler := NewBurstSampler(BurstConfig{Samples: 5}, reader)
	sampler.sleep = noSleep

	_, ok, err := sampler.Sample(context.Background())
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, IsSensorUnavailable(err))
	assert.Equal(t, 2, reader.i)
}

func TestBurstSamplerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sampler := NewBurstSampler(BurstConfig{Samples: 5}, &scriptedSignal{values: []float64{-50}})

	_, ok, err := sampler.Sample(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
}
