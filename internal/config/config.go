// Package config holds the daemon's command-line configuration.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/sweeney/debounced-button/internal/gpio"
	"github.com/sweeney/debounced-button/internal/logic"
)

var (
	// ValidationError is the cause of every error returned by Validate.
	ValidationError = errors.New("validation failed")
)

// Config contains all daemon options.
type Config struct {
	Pin        int
	Chip       string
	Backend    string
	Pull       string
	Polarity   string
	Debounce   time.Duration
	Poll       time.Duration
	Broker     string
	ClientID   string
	Heartbeat  time.Duration
	HTTPAddr   string
	LogLevel   string
	PrintState bool
}

// Default returns the configuration used when no flags are given.
// It matches an active-low push button on BCM 17 with the internal pull-up.
func Default() Config {
	return Config{
		Pin:       gpio.DefaultPin,
		Chip:      gpio.DefaultChip,
		Backend:   string(gpio.BackendGPIOCDev),
		Pull:      "up",
		Polarity:  "active-low",
		Debounce:  time.Duration(logic.DefaultDebounce) * time.Millisecond,
		Poll:      10 * time.Millisecond,
		Broker:    "tcp://192.168.1.200:1883",
		ClientID:  "button-monitor",
		Heartbeat: 15 * time.Minute,
		HTTPAddr:  ":8080",
		LogLevel:  "info",
	}
}

// Bind registers flags for every option on fs, using the current values as defaults.
func (c *Config) Bind(fs *pflag.FlagSet) {
	fs.IntVarP(&c.Pin, "pin", "p", c.Pin, "BCM pin number of the button")
	fs.StringVar(&c.Chip, "chip", c.Chip, "GPIO character device (gpiocdev backend)")
	fs.StringVarP(&c.Backend, "backend", "b", c.Backend, "GPIO backend (gpiocdev|rpio)")
	fs.StringVar(&c.Pull, "pull", c.Pull, "Internal bias resistor (up|down|none)")
	fs.StringVar(&c.Polarity, "polarity", c.Polarity, "Which level means pressed (active-high|active-low)")
	fs.DurationVarP(&c.Debounce, "debounce", "d", c.Debounce, "Debounce interval")
	fs.DurationVar(&c.Poll, "poll", c.Poll, "GPIO polling interval")
	fs.StringVar(&c.Broker, "broker", c.Broker, "MQTT broker address (empty to disable)")
	fs.StringVar(&c.ClientID, "client-id", c.ClientID, "MQTT client ID")
	fs.DurationVar(&c.Heartbeat, "heartbeat", c.Heartbeat, "Heartbeat interval (0 to disable)")
	fs.StringVar(&c.HTTPAddr, "http", c.HTTPAddr, "HTTP status address (empty to disable)")
	fs.StringVarP(&c.LogLevel, "level", "l", c.LogLevel, "Set log level")
	fs.BoolVar(&c.PrintState, "print-state", c.PrintState, "Print current state and exit")
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.Pin < 0 {
		return errors.Wrapf(ValidationError, "pin must be >= 0, got %d", c.Pin)
	}
	if _, err := c.ParsePolarity(); err != nil {
		return err
	}
	if _, err := gpio.ParsePull(c.Pull); err != nil {
		return errors.Wrap(ValidationError, err.Error())
	}
	switch gpio.Backend(c.Backend) {
	case gpio.BackendGPIOCDev, gpio.BackendRPIO:
	default:
		return errors.Wrapf(ValidationError, "unknown backend %q (gpiocdev|rpio)", c.Backend)
	}
	if c.Debounce < 0 {
		return errors.Wrapf(ValidationError, "debounce must be >= 0, got %v", c.Debounce)
	}
	if c.Poll <= 0 {
		return errors.Wrapf(ValidationError, "poll must be > 0, got %v", c.Poll)
	}
	if c.Heartbeat < 0 {
		return errors.Wrapf(ValidationError, "heartbeat must be >= 0, got %v", c.Heartbeat)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrapf(ValidationError, "unknown log level %q", c.LogLevel)
	}
	return nil
}

// ParsePolarity returns the configured polarity.
func (c Config) ParsePolarity() (logic.Polarity, error) {
	switch strings.ToLower(c.Polarity) {
	case "active-high", "high":
		return logic.ActiveHigh, nil
	case "active-low", "low":
		return logic.ActiveLow, nil
	}
	return logic.ActiveHigh, errors.Wrapf(ValidationError, "unknown polarity %q (active-high|active-low)", c.Polarity)
}

// DebounceMs returns the debounce interval in the button's millisecond time base.
func (c Config) DebounceMs() int64 {
	return c.Debounce.Milliseconds()
}

// PollSlowerThanDebounce reports whether polling is too coarse to resolve
// the debounce interval.
func (c Config) PollSlowerThanDebounce() bool {
	return c.Debounce > 0 && c.Poll >= c.Debounce
}
