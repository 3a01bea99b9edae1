package rssi_nav

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// HintConfig controls where advisory vision hints come from.
type HintConfig struct {
	UDPAddr    string     `json:"udp_addr"`
	ReadBuffer int        `json:"read_buffer"`
	MQTT       MQTTConfig `json:"mqtt"`
	TTL        Duration   `json:"ttl"`
}

const hintKey = "latest"

// HintStore keeps the latest vision hint until it goes stale.
type HintStore struct {
	cache *ttlcache.Cache[string, ObstacleHint]
	ttl   time.Duration
}

// NewHintStore constructs a store whose entries expire after ttl.
func NewHintStore(ttl time.Duration) *HintStore {
	if ttl <= 0 {
		ttl = 500 * time.Millisecond
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, ObstacleHint](ttl),
		ttlcache.WithCapacity[string, ObstacleHint](1),
	)
	go cache.Start()
	return &HintStore{cache: cache, ttl: ttl}
}

// Update stores a fresh hint.
func (s *HintStore) Update(h ObstacleHint) {
	s.cache.Set(hintKey, h, ttlcache.DefaultTTL)
}

// Latest returns the stored hint if it has not expired.
func (s *HintStore) Latest() (ObstacleHint, bool) {
	item := s.cache.Get(hintKey, ttlcache.WithDisableTouchOnHit[string, ObstacleHint]())
	if item == nil || item.IsExpired() {
		return ObstacleHint{}, false
	}
	return item.Value(), true
}

// Close stops the expiry goroutine.
func (s *HintStore) Close() {
	s.cache.Stop()
}

// StartUDPHintListener spawns a goroutine that reads CSV hints into store.
//
// The listener stops when ctx is done.
func StartUDPHintListener(ctx context.Context, cfg HintConfig, store *HintStore, logger *zap.Logger) error {
	addr, err := net.ResolveUDPAddr("udp", cfg.UDPAddr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}

	bufSize := cfg.ReadBuffer
	if bufSize <= 0 {
		bufSize = 2048
	}

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	go func() {
		buf := make([]byte, bufSize)
		for {
			n, _, err := conn.ReadFromUDP(buf)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				continue
			}
			hint, err := parseHintCSV(buf[:n])
			if err != nil {
				logger.Debug("drop hint datagram", zap.Error(err))
				continue
			}
			store.Update(hint)
		}
	}()
	return nil
}

// parseHintCSV parses "blocked,free_left,free_right" with an optional
// leading timestamp field.
func parseHintCSV(b []byte) (ObstacleHint, error) {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return ObstacleHint{}, errors.New("empty payload")
	}

	parts := strings.Split(s, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return ObstacleHint{}, errors.Errorf("expected 3 or 4 fields, got %d", len(parts))
	}
	idx := len(parts) - 3

	blocked, err := parseBoolLoose(parts[idx])
	if err != nil {
		return ObstacleHint{}, err
	}
	left, err := parseF64(parts[idx+1])
	if err != nil {
		return ObstacleHint{}, err
	}
	right, err := parseF64(parts[idx+2])
	if err != nil {
		return ObstacleHint{}, err
	}
	return ObstacleHint{Blocked: blocked, FreeLeft: clamp(left, 0, 1), FreeRight: clamp(right, 0, 1)}, nil
}

// parseF64 parses a float from a CSV field.
func parseF64(value string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(value), 64)
}

// parseBoolLoose parses booleans from common telemetry encodings.
func parseBoolLoose(value string) (bool, error) {
	norm := strings.ToLower(strings.TrimSpace(value))
	switch norm {
	case "1", "true", "yes", "y", "t":
		return true, nil
	case "0", "false", "no", "n", "f":
		return false, nil
	default:
		f, err := strconv.ParseFloat(norm, 64)
		if err != nil {
			return false, err
		}
		return f != 0, nil
	}
}
