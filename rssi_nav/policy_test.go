package rssi_nav

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandNeverExceedsSteerLimit(t *testing.T) {
	states := []NavState{StateSearch, StateApproach, StateVerify, StateAvoid, StateFinish}
	trends := []Trend{TrendNoise, TrendImproving, TrendDegrading}
	dirs := []TurnDir{TurnLeft, TurnNone, TurnRight}
	angles := []float64{-1000, -35, -12.5, 0, 12.5, 35, 1000, math.NaN(), math.Inf(1)}

	for _, pattern := range []string{"spiral", "zigzag"} {
		for _, maxSteer := range []float64{10, 35} {
			cfg := DefaultConfig().Motion
			cfg.MaxSteer = maxSteer
			cfg.SearchPattern = pattern
			cfg.WiggleAngle = 90
			cfg.Zigzag.TurnAngle = -90
			for _, st := range states {
				for _, tr := range trends {
					for _, obstacle := range []bool{false, true} {
						for _, dir := range dirs {
							for _, angle := range angles {
								for _, elapsed := range []float64{0, 9, 10.5} {
									cmd := Command(cfg, PolicyInput{
										State: st, Trend: tr, Obstacle: obstacle, TurnDir: dir,
										SpiralAngle: angle, SearchElapsed: elapsed,
									})
									require.False(t, math.IsNaN(cmd.Steer))
									require.LessOrEqual(t, math.Abs(cmd.Steer), maxSteer,
										"pattern=%s state=%s trend=%s obstacle=%v angle=%v", pattern, st, tr, obstacle, angle)
								}
							}
						}
					}
				}
			}
		}
	}
}

func TestCommandPerState(t *testing.T) {
	cfg := DefaultConfig().Motion

	t.Run("obstacle reverses and turns", func(t *testing.T) {
		cmd := Command(cfg, PolicyInput{State: StateApproach, Obstacle: true, TurnDir: TurnRight})
		assert.Equal(t, -cfg.AvoidSpeed, cmd.Speed)
		assert.Equal(t, cfg.MaxSteer, cmd.Steer)

		cmd = Command(cfg, PolicyInput{State: StateSearch, Obstacle: true})
		assert.Equal(t, -cfg.MaxSteer, cmd.Steer)
	})

	t.Run("approach", func(t *testing.T) {
		cmd := Command(cfg, PolicyInput{State: StateApproach, Trend: TrendImproving})
		assert.Equal(t, cfg.ApproachSpeed, cmd.Speed)
		assert.Zero(t, cmd.Steer)

		cmd = Command(cfg, PolicyInput{State: StateApproach, Trend: TrendDegrading})
		assert.Equal(t, cfg.ApproachSpeed*cfg.DegradeFactor, cmd.Speed)
		assert.Equal(t, cfg.WiggleAngle, cmd.Steer)
	})

	t.Run("stopped states", func(t *testing.T) {
		for _, st := range []NavState{StateVerify, StateFinish, StateAvoid} {
			cmd := Command(cfg, PolicyInput{State: st, Trend: TrendImproving})
			assert.Zero(t, cmd.Speed, st.String())
		}
	})

	t.Run("zigzag search", func(t *testing.T) {
		z := cfg
		z.SearchPattern = "zigzag"
		z.Zigzag = ZigzagConfig{Straight: Duration(8 * time.Second), Turn: Duration(3 * time.Second), TurnAngle: -35}
		assert.Zero(t, Command(z, PolicyInput{State: StateSearch, SearchElapsed: 2}).Steer)
		assert.Equal(t, -35.0, Command(z, PolicyInput{State: StateSearch, SearchElapsed: 9}).Steer)
		assert.Zero(t, Command(z, PolicyInput{State: StateSearch, SearchElapsed: 12}).Steer)
	})

	t.Run("blocked hint slows forward motion only", func(t *testing.T) {
		cmd := Command(cfg, PolicyInput{State: StateSearch, HintBlocked: true})
		assert.InDelta(t, cfg.SearchSpeed*cfg.HintSlowFactor, cmd.Speed, 1e-9)

		cmd = Command(cfg, PolicyInput{State: StateSearch, Obstacle: true, HintBlocked: true})
		assert.Equal(t, -cfg.AvoidSpeed, cmd.Speed)
	})
}

func TestNextSpiralAngle(t *testing.T) {
	angle := -35.0
	var got []float64
	for i := 0; i < 8; i++ {
		angle = NextSpiralAngle(angle, 5, 35)
		got = append(got, angle)
	}
	assert.Equal(t, []float64{-30, -25, -20, -15, -10, -5, -35, -30}, got)
	assert.Equal(t, -35.0, NextSpiralAngle(12, 5, 35))
}

func TestParseSearchPattern(t *testing.T) {
	p, err := ParseSearchPattern(" ZigZag ")
	require.NoError(t, err)
	assert.Equal(t, PatternZigzag, p)

	p, err = ParseSearchPattern("")
	require.NoError(t, err)
	assert.Equal(t, PatternSpiral, p)

	_, err = ParseSearchPattern("random")
	assert.Error(t, err)
}
