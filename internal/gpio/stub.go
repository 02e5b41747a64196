//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/debounced-button/internal/logic"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealReader is not available on non-Linux platforms.
type RealReader struct{}

// NewRealReader returns an error on non-Linux platforms.
func NewRealReader(chipName string, pin int, pull Pull) (*RealReader, error) {
	return nil, errUnsupported
}

// Read is not implemented on non-Linux platforms.
func (r *RealReader) Read() (logic.Level, error) {
	return logic.Low, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *RealReader) Close() error {
	return nil
}

// RPIOReader is not available on non-Linux platforms.
type RPIOReader struct{}

// NewRPIOReader returns an error on non-Linux platforms.
func NewRPIOReader(pin int, pull Pull) (*RPIOReader, error) {
	return nil, errUnsupported
}

// Read is not implemented on non-Linux platforms.
func (r *RPIOReader) Read() (logic.Level, error) {
	return logic.Low, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *RPIOReader) Close() error {
	return nil
}
