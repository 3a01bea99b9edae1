package rssi_nav

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHintCSV(t *testing.T) {
	h, err := parseHintCSV([]byte("1,0.2,0.9\n"))
	require.NoError(t, err)
	assert.Equal(t, ObstacleHint{Blocked: true, FreeLeft: 0.2, FreeRight: 0.9}, h)

	h, err = parseHintCSV([]byte("1712.5, false, 1.7, -0.3"))
	require.NoError(t, err)
	assert.Equal(t, ObstacleHint{Blocked: false, FreeLeft: 1, FreeRight: 0}, h)

	for _, bad := range []string{"", "1,0.2", "1,2,3,4,5", "maybe,0.1,0.2", "1,x,0.2"} {
		_, err := parseHintCSV([]byte(bad))
		assert.Error(t, err, bad)
	}
}

func TestParseHintJSON(t *testing.T) {
	h, err := parseHintJSON([]byte(`{"blocked":true,"free_left":0.3,"free_right":0.6,"ts":17}`))
	require.NoError(t, err)
	assert.Equal(t, ObstacleHint{Blocked: true, FreeLeft: 0.3, FreeRight: 0.6}, h)

	h, err = parseHintJSON([]byte(`{"blocked":false}`))
	require.NoError(t, err)
	assert.Equal(t, 1.0, h.FreeLeft)
	assert.Equal(t, 1.0, h.FreeRight)

	_, err = parseHintJSON([]byte(`{"free_left":0.3}`))
	assert.Error(t, err)
	_, err = parseHintJSON([]byte(`{"blocked":`))
	assert.Error(t, err)
}

func TestHintStoreExpires(t *testing.T) {
	store := NewHintStore(50 * time.Millisecond)
	defer store.Close()

	_, ok := store.Latest()
	assert.False(t, ok)

	want := ObstacleHint{Blocked: true, FreeLeft: 0.1, FreeRight: 0.8}
	store.Update(want)
	got, ok := store.Latest()
	require.True(t, ok)
	assert.Equal(t, want, got)

	assert.Eventually(t, func() bool {
		_, ok := store.Latest()
		return !ok
	}, time.Second, 10*time.Millisecond)
}
