//go:build linux

package gpio

import (
	"github.com/pkg/errors"
	"github.com/stianeikeland/go-rpio"

	"github.com/sweeney/debounced-button/internal/logic"
)

// RPIOReader reads a pin through the memory-mapped BCM2835 registers.
// Use it where the character device is unavailable (older kernels).
type RPIOReader struct {
	pin rpio.Pin
}

// NewRPIOReader maps GPIO memory and configures pin as an input.
func NewRPIOReader(pin int, pull Pull) (*RPIOReader, error) {
	if err := rpio.Open(); err != nil {
		return nil, errors.Wrap(err, "open gpio memory")
	}

	p := rpio.Pin(pin)
	p.Input()
	switch pull {
	case PullUp:
		p.PullUp()
	case PullDown:
		p.PullDown()
	default:
		p.PullOff()
	}
	return &RPIOReader{pin: p}, nil
}

// Read returns the raw level of the pin.
func (r *RPIOReader) Read() (logic.Level, error) {
	if r.pin.Read() == rpio.High {
		return logic.High, nil
	}
	return logic.Low, nil
}

// Close restores the pin to input with pull-down and unmaps GPIO memory.
func (r *RPIOReader) Close() error {
	r.pin.Input()
	r.pin.PullDown()
	if err := rpio.Close(); err != nil {
		return errors.Wrap(err, "close gpio memory")
	}
	return nil
}
