// Package link owns the connection to the rig.
package link

import (
	"errors"

	"go.uber.org/zap"

	"github.com/itohio/ballbeam/pkg/config"
)

var (
	// ErrNotConnected is returned by Send before Connect or after Close.
	ErrNotConnected = errors.New("not connected")
	// ErrAlreadyConnected is returned by a second Connect.
	ErrAlreadyConnected = errors.New("already connected")
)

// Transport defines the line transport to the rig (real or mocked).
//
// Poll never blocks: it returns one complete line when one has been received
// and nothing otherwise. A transport that lost its device keeps returning
// nothing; read failures are not reported through Poll.
type Transport interface {
	Connect() error
	Close() error
	Poll() (string, bool)
	Send(line string) error
}

// Ensure Serial implements Transport.
var _ Transport = (*Serial)(nil)

// Ensure Mock implements Transport.
var _ Transport = (*Mock)(nil)

// Open builds the transport selected by the configuration: the simulated rig
// when useMock is set, the configured serial port otherwise. The returned
// transport is not connected yet.
func Open(cfg *config.Config, useMock bool, logger *zap.Logger) Transport {
	if useMock {
		return NewMock(&cfg.Mock, logger)
	}
	return New(cfg.Serial, DefaultBufferSize, logger)
}

// drain discards every line still queued in lines.
func drain(lines chan string) int {
	n := 0
	for {
		select {
		case <-lines:
			n++
		default:
			return n
		}
	}
}

// withTerminator appends a newline unless line already ends with one.
func withTerminator(line string) string {
	if len(line) > 0 && line[len(line)-1] == '\n' {
		return line
	}
	return line + "\n"
}
