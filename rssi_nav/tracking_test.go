package rssi_nav

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalFilterConverges(t *testing.T) {
	const truth = -50.0
	f := NewSignalFilter(FilterConfig{R: 2.0, Q: 0.05, InitialValue: -70, InitialVariance: 1})
	rng := rand.New(rand.NewSource(7))

	prevP := f.State().P
	var early, late float64
	for i := 0; i < 300; i++ {
		z := truth + (rng.Float64()*2-1)*3
		f.Smooth(z, true)

		st := f.State()
		require.LessOrEqual(t, st.P, prevP+1e-12, "variance grew at update %d", i)
		prevP = st.P

		errAbs := math.Abs(st.X - truth)
		if i < 10 {
			early += errAbs / 10
		}
		if i >= 250 {
			late += errAbs / 50
		}
	}
	assert.Less(t, late, early)
	assert.InDelta(t, truth, f.State().X, 2)
}

func TestSignalFilterMissedUpdate(t *testing.T) {
	f := NewSignalFilter(FilterConfig{R: 2.0, Q: 0.05, InitialValue: -70, InitialVariance: 1})
	f.Smooth(-60, true)
	before := f.State()

	got := f.Smooth(0, false)
	assert.Equal(t, before.X, got)
	assert.Equal(t, before, f.State())
}

func TestSignalFilterStep(t *testing.T) {
	f := NewSignalFilter(FilterConfig{R: 2.0, Q: 0.05, InitialValue: -70, InitialVariance: 1})
	got := f.Smooth(-40, true)

	k := 1.05 / 3.05
	assert.InDelta(t, -70+k*30, got, 1e-9)
	assert.InDelta(t, (1-k)*1.05, f.State().P, 1e-9)

	f.Reset()
	assert.Equal(t, FilteredSignal{X: -70, P: 1}, f.State())
}
