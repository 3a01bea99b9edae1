package rssi_nav

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tarm/serial"
)

// SerialConfig selects the microcontroller that drives the motors and
// reads the ultrasonic sensor.
type SerialConfig struct {
	Port        string   `json:"port"`
	Baud        int      `json:"baud"`
	ReadTimeout Duration `json:"read_timeout"`
	PanAngle    float64  `json:"pan_angle"`
	PanSettle   Duration `json:"pan_settle"`
}

// SerialPort is the byte stream to the board. Tests substitute a pipe.
type SerialPort interface {
	io.ReadWriteCloser
}

// SerialBase speaks a line protocol with the drive board:
//
//	D <speed> <steer>   drive
//	S                   stop
//	R <seq>             read range, board replies "<seq> <cm>"
//	P <angle>           pan the rangefinder
//
// A port that stops accepting writes, or fails reads with anything other
// than a timeout, is reported as ErrSensorUnavailable.
type SerialBase struct {
	cfg    SerialConfig
	mu     sync.Mutex
	conn   SerialPort
	reader *bufio.Reader
	seq    uint32
}

// OpenSerialBase opens the configured serial port.
func OpenSerialBase(cfg SerialConfig) (*SerialBase, error) {
	s, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout.D(),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open serial %s", cfg.Port)
	}
	return NewSerialBase(cfg, s), nil
}

// NewSerialBase wraps an already open port.
func NewSerialBase(cfg SerialConfig, port SerialPort) *SerialBase {
	if cfg.PanAngle == 0 {
		cfg.PanAngle = 45
	}
	if cfg.PanSettle == 0 {
		cfg.PanSettle = Duration(250 * time.Millisecond)
	}
	return &SerialBase{cfg: cfg, conn: port, reader: bufio.NewReader(port)}
}

// Close closes the port.
func (b *SerialBase) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}

// Drive sets speed and steering.
func (b *SerialBase) Drive(speed, steer float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writeLine(fmt.Sprintf("D %.1f %.1f", speed, steer))
}

// Stop halts the motors and centers the steering.
func (b *SerialBase) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writeLine("S")
}

// ReadRange asks the board for one ultrasonic distance in centimeters.
func (b *SerialBase) ReadRange() (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readRangeLocked()
}

// ScanSides pans the rangefinder left then right and recenters it.
func (b *SerialBase) ScanSides(ctx context.Context) (left, right float64, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	defer func() {
		if perr := b.writeLine("P 0"); perr != nil && err == nil {
			err = perr
		}
	}()

	if err := b.writeLine("S"); err != nil {
		return 0, 0, err
	}
	left, err = b.rangeAt(ctx, -b.cfg.PanAngle)
	if err != nil {
		return 0, 0, err
	}
	right, err = b.rangeAt(ctx, b.cfg.PanAngle)
	if err != nil {
		return 0, 0, err
	}
	return left, right, nil
}

func (b *SerialBase) rangeAt(ctx context.Context, angle float64) (float64, error) {
	if err := b.writeLine(fmt.Sprintf("P %.0f", angle)); err != nil {
		return 0, err
	}
	if err := sleepCtx(ctx, b.cfg.PanSettle.D()); err != nil {
		return 0, err
	}
	cm, err := b.readRangeLocked()
	if errors.Is(err, ErrMissingSample) {
		return 0, nil
	}
	return cm, err
}

// readRangeLocked sends a tagged range request and waits for the reply with
// the same tag. Replies to earlier requests that arrived late are skipped.
func (b *SerialBase) readRangeLocked() (float64, error) {
	if n := b.reader.Buffered(); n > 0 {
		_, _ = b.reader.Discard(n)
	}
	b.seq++
	seq := b.seq
	if err := b.writeLine(fmt.Sprintf("R %d", seq)); err != nil {
		return 0, err
	}
	for {
		line, err := b.reader.ReadString('\n')
		if err != nil {
			return 0, classifyReadError(err)
		}
		tag, cm, err := parseRangeReply(line)
		if err != nil {
			return 0, err
		}
		if tag == seq {
			return cm, nil
		}
	}
}

// parseRangeReply splits "<seq> <cm>".
func parseRangeReply(line string) (uint32, float64, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, errors.Wrapf(ErrMissingSample, "range reply %q", strings.TrimSpace(line))
	}
	tag, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return 0, 0, errors.Wrapf(ErrMissingSample, "range reply tag %q", fields[0])
	}
	cm, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, errors.Wrapf(ErrMissingSample, "range reply %q", strings.TrimSpace(line))
	}
	return uint32(tag), cm, nil
}

// classifyReadError maps a port read failure. tarm/serial reports an
// expired read timeout as io.EOF.
func classifyReadError(err error) error {
	var timeout interface{ Timeout() bool }
	if errors.Is(err, io.EOF) || (errors.As(err, &timeout) && timeout.Timeout()) {
		return errors.Wrap(ErrMissingSample, err.Error())
	}
	return errors.Wrapf(ErrSensorUnavailable, "serial read: %v", err)
}

func (b *SerialBase) writeLine(cmd string) error {
	if b.conn == nil {
		return errors.Wrap(ErrSensorUnavailable, "serial port not open")
	}
	if _, err := b.conn.Write([]byte(cmd + "\n")); err != nil {
		return errors.Wrapf(ErrSensorUnavailable, "serial write %q: %v", cmd, err)
	}
	return nil
}
