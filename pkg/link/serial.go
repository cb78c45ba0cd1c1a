package link

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"github.com/itohio/ballbeam/pkg/config"
	"github.com/itohio/ballbeam/pkg/logging"
)

const (
	// DefaultBaudRate is the rig's fixed baud rate.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default number of received lines held for Poll.
	DefaultBufferSize = 100
	// maxLineLength bounds a line that never sees its terminator.
	maxLineLength = 4096
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial is a Transport over a serial port.
type Serial struct {
	cfg     config.SerialConfig
	bufSize int
	logger  *zap.Logger

	conn      io.ReadWriteCloser
	lines     chan string
	done      chan struct{}
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
}

// New creates a serial transport. cfg is copied and not consulted again after
// Connect; zero baud rate and buffer size fall back to defaults.
func New(cfg config.SerialConfig, bufSize int, logger *zap.Logger) *Serial {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	return &Serial{
		cfg:     cfg,
		bufSize: bufSize,
		logger:  logging.OrNop(logger).With(zap.String("component", "serial"), zap.String("port", cfg.Port)),
		lines:   make(chan string, bufSize),
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(details))
	for _, d := range details {
		desc := d.Name
		if d.IsUSB {
			desc = fmt.Sprintf("%s [%s:%s]", d.Product, d.VID, d.PID)
			if d.Product == "" {
				desc = fmt.Sprintf("USB %s:%s", d.VID, d.PID)
			}
		}
		result = append(result, Port{Name: d.Name, Description: desc})
	}

	return result, nil
}

// Connect opens the serial port and starts receiving lines.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return ErrAlreadyConnected
	}

	port, err := serial.Open(d.cfg.Port, &serial.Mode{
		BaudRate: d.cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.cfg.Port, err)
	}

	if d.cfg.ReadTimeout > 0 {
		if err := port.SetReadTimeout(d.cfg.ReadTimeout); err != nil {
			port.Close()
			return fmt.Errorf("failed to set read timeout on %s: %w", d.cfg.Port, err)
		}
	}

	d.start(port)
	d.logger.Info("Serial port opened", zap.Int("baud_rate", d.cfg.BaudRate), zap.Duration("read_timeout", d.cfg.ReadTimeout))

	return nil
}

// start attaches an open connection. Callers hold d.mu.
func (d *Serial) start(conn io.ReadWriteCloser) {
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.conn = conn
	d.done = make(chan struct{})
	d.connected = true

	go d.readLines(d.ctx, conn, d.done)
}

// Close closes the port, waits for the reader to stop and discards lines that
// were never polled.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	var err error
	if d.conn != nil {
		if err = d.conn.Close(); err != nil {
			err = fmt.Errorf("failed to close serial port %s: %w", d.cfg.Port, err)
		}
		d.conn = nil
	}

	<-d.done
	d.connected = false

	// Lines from this connection must not surface after a reconnect
	if n := drain(d.lines); n > 0 {
		d.logger.Debug("Discarded unread lines", zap.Int("lines", n))
	}
	d.logger.Info("Serial port closed")

	return err
}

// Poll returns the next received line without blocking.
func (d *Serial) Poll() (string, bool) {
	select {
	case line := <-d.lines:
		return line, true
	default:
		return "", false
	}
}

// Send writes line to the device, appending the terminator if missing.
func (d *Serial) Send(line string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return ErrNotConnected
	}

	if _, err := io.WriteString(d.conn, withTerminator(line)); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}

	d.logger.Debug("Command sent", zap.String("line", strings.TrimSpace(line)))
	return nil
}

// readLines splits the incoming byte stream into lines. It returns on the
// first read error; after that Poll simply yields nothing.
func (d *Serial) readLines(ctx context.Context, conn io.Reader, done chan<- struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Panic in serial reader", zap.Any("panic", r))
		}
	}()

	buf := make([]byte, 256)
	var pending []byte

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			pending = d.splitLines(pending)
		}

		if err != nil {
			if ctx.Err() == nil {
				if errors.Is(err, io.EOF) {
					d.logger.Warn("Serial port reached EOF, telemetry stopped")
				} else {
					d.logger.Warn("Error reading from serial port, telemetry stopped", zap.Error(err))
				}
			}
			return
		}

		select {
		case <-ctx.Done():
			return
		default:
			// n == 0 with no error is a read timeout; keep waiting
		}
	}
}

// splitLines delivers every complete line in pending and returns the rest.
func (d *Serial) splitLines(pending []byte) []byte {
	for {
		i := bytes.IndexByte(pending, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSpace(string(pending[:i]))
		pending = pending[i+1:]
		if line != "" {
			d.deliver(line)
		}
	}

	if len(pending) > maxLineLength {
		d.logger.Warn("Dropping unterminated input", zap.Int("bytes", len(pending)))
		return nil
	}

	// Compact so the backing array does not grow without bound.
	return append([]byte(nil), pending...)
}

func (d *Serial) deliver(line string) {
	select {
	case d.lines <- line:
	default:
		d.logger.Warn("Line buffer full, dropping line", zap.String("line", line))
	}
}
