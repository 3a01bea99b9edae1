package rssi_nav

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// WirelessConfig selects the interface whose link level is read.
type WirelessConfig struct {
	Interface string `json:"interface"`
	Path      string `json:"path"`
}

// ProcWirelessReader reads the signal level column of /proc/net/wireless.
type ProcWirelessReader struct {
	iface string
	path  string
}

// NewProcWirelessReader constructs a reader for cfg.Interface.
func NewProcWirelessReader(cfg WirelessConfig) *ProcWirelessReader {
	path := cfg.Path
	if path == "" {
		path = "/proc/net/wireless"
	}
	return &ProcWirelessReader{iface: cfg.Interface, path: path}
}

// Check reports ErrSensorUnavailable when the wireless table is missing.
func (r *ProcWirelessReader) Check() error {
	if _, err := os.Stat(r.path); err != nil {
		return errors.Wrapf(ErrSensorUnavailable, "%s: %v", r.path, err)
	}
	return nil
}

// ReadSignal returns the current level in dBm.
func (r *ProcWirelessReader) ReadSignal() (float64, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.Wrapf(ErrSensorUnavailable, "%s", r.path)
		}
		return 0, errors.Wrap(ErrMissingSample, err.Error())
	}
	defer f.Close()

	prefix := r.iface + ":"
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[0] != prefix {
			continue
		}
		return parseWirelessLevel(fields[3])
	}
	return 0, errors.Wrapf(ErrMissingSample, "interface %s not listed", r.iface)
}

// parseWirelessLevel parses values like "-52." that the kernel prints.
func parseWirelessLevel(field string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(field, "."), 64)
	if err != nil {
		return 0, errors.Wrapf(ErrMissingSample, "level %q", field)
	}
	return v, nil
}
