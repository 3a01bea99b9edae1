package rssi_nav

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	require.NoError(t, testConfig().Validate())
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"hz": 10,
		"burst": {"samples": 7, "sample_delay": "40ms"},
		"obstacle": {"debounce": 4},
		"controller": {"verify_fail_state": "approach", "verify": {"total_checks": 30, "required_hits": 4}},
		"motion": {"search_pattern": "zigzag", "zigzag": {"straight": 2000000000}},
		"serial": {"port": "/dev/ttyACM0"}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 10.0, cfg.Hz)
	assert.Equal(t, 7, cfg.Burst.Samples)
	assert.Equal(t, 40*time.Millisecond, cfg.Burst.SampleDelay.D())
	assert.Equal(t, 0.1, cfg.Burst.TrimFraction, "unset fields keep defaults")
	assert.Equal(t, 4, cfg.Obstacle.Debounce)
	assert.Equal(t, StateApproach, cfg.Controller.VerifyFailState)
	assert.Equal(t, 30, cfg.Controller.Verify.TotalChecks)
	assert.Equal(t, 2*time.Second, cfg.Motion.Zigzag.Straight.D())
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.Baud)
}

func TestLoadConfigExample(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "config.example.json"))
	require.NoError(t, err)
	assert.Equal(t, StateSearch, cfg.Controller.VerifyFailState)
	assert.Equal(t, -55.0, cfg.Controller.ApproachThreshold)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"syntax":         `{"hz": }`,
		"hz":             `{"hz": 0}`,
		"trim":           `{"burst": {"trim_fraction": 0.5}}`,
		"verify":         `{"controller": {"verify": {"total_checks": 4, "required_hits": 4}}}`,
		"thresholds":     `{"controller": {"approach_threshold": -40, "target_threshold": -45}}`,
		"fail state":     `{"controller": {"verify_fail_state": "FINISH"}}`,
		"unknown state":  `{"controller": {"verify_fail_state": "HOVER"}}`,
		"pattern":        `{"motion": {"search_pattern": "random"}}`,
		"duration":       `{"burst": {"sample_delay": "soon"}}`,
		"obstacle range": `{"obstacle": {"threshold_cm": 400}}`,
		"debounce":       `{"obstacle": {"debounce": 1}}`,
		"spiral step":    `{"motion": {"spiral_step": 0}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	zigzag := DefaultConfig()
	zigzag.Motion.SearchPattern = "zigzag"
	zigzag.Motion.SpiralStep = 0
	assert.NoError(t, zigzag.Validate(), "spiral step only matters for the spiral")
}

func TestDurationJSON(t *testing.T) {
	d := Duration(1500 * time.Millisecond)
	b, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1.5s"`, string(b))

	var back Duration
	require.NoError(t, back.UnmarshalJSON(b))
	assert.Equal(t, d, back)
	assert.Error(t, back.UnmarshalJSON([]byte(`true`)))
}
