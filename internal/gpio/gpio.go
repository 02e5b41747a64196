// Package gpio provides GPIO input reading with hardware abstraction.
// The real implementations use the Linux GPIO character device or the
// memory-mapped BCM2835 registers. The fake implementation allows testing
// without hardware.
package gpio

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/sweeney/debounced-button/internal/logic"
)

// Reader reads the raw level of one GPIO input.
type Reader interface {
	// Read returns the instantaneous electrical level of the pin.
	// No polarity is applied; that is the debouncer's concern.
	Read() (logic.Level, error)

	// Close releases GPIO resources.
	Close() error
}

// DefaultPin is the BCM pin read when none is configured.
const DefaultPin = 17

// DefaultChip is the GPIO character device used by the gpiocdev backend.
const DefaultChip = "gpiochip0"

// Pull selects the internal bias resistor of an input.
type Pull int

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

func (p Pull) String() string {
	switch p {
	case PullUp:
		return "up"
	case PullDown:
		return "down"
	default:
		return "none"
	}
}

// ParsePull parses "up", "down" or "none".
func ParsePull(s string) (Pull, error) {
	switch strings.ToLower(s) {
	case "up":
		return PullUp, nil
	case "down":
		return PullDown, nil
	case "none", "off", "":
		return PullNone, nil
	}
	return PullNone, errors.Errorf("unknown pull %q (up|down|none)", s)
}

// Backend names a Reader implementation.
type Backend string

const (
	BackendGPIOCDev Backend = "gpiocdev"
	BackendRPIO     Backend = "rpio"
)

// Open returns a Reader for pin using the given backend.
func Open(backend Backend, chip string, pin int, pull Pull) (Reader, error) {
	switch backend {
	case BackendGPIOCDev:
		r, err := NewRealReader(chip, pin, pull)
		if err != nil {
			return nil, err
		}
		return r, nil
	case BackendRPIO:
		r, err := NewRPIOReader(pin, pull)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, errors.Errorf("unknown gpio backend %q", backend)
}
