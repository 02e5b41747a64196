//go:build linux

package gpio

import (
	"github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/debounced-button/internal/logic"
)

// RealReader reads GPIO from actual hardware using Linux GPIO character device.
type RealReader struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func biasOption(pull Pull) gpiocdev.LineReqOption {
	switch pull {
	case PullUp:
		return gpiocdev.WithPullUp
	case PullDown:
		return gpiocdev.WithPullDown
	default:
		return gpiocdev.WithBiasDisabled
	}
}

// NewRealReader requests pin on the named chip as an input with the given bias.
func NewRealReader(chipName string, pin int, pull Pull) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, errors.Wrapf(err, "open gpio chip %s", chipName)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsInput, biasOption(pull))
	if err != nil {
		chip.Close()
		return nil, errors.Wrapf(err, "request pin %d", pin)
	}

	return &RealReader{
		chip: chip,
		line: line,
	}, nil
}

// Read returns the raw level of the pin.
func (r *RealReader) Read() (logic.Level, error) {
	v, err := r.line.Value()
	if err != nil {
		return logic.Low, errors.Wrap(err, "read pin")
	}
	if v != 0 {
		return logic.High, nil
	}
	return logic.Low, nil
}

// Close releases GPIO resources.
// Reconfigures the pin to input with pull-down (matching Pi boot defaults)
// before closing to ensure clean state for system shutdown/reboot.
func (r *RealReader) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, errors.Wrap(err, "reconfigure pin"))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "close pin"))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "close chip"))
		}
	}

	if len(errs) > 0 {
		return errors.Errorf("close errors: %v", errs)
	}
	return nil
}
