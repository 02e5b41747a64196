package config

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/sweeney/debounced-button/internal/logic"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.DebounceMs() != logic.DefaultDebounce {
		t.Errorf("DebounceMs: got %d, want %d", cfg.DebounceMs(), logic.DefaultDebounce)
	}
	p, _ := cfg.ParsePolarity()
	if p != logic.ActiveLow {
		t.Errorf("default polarity: got %s, want active-low", p)
	}
}

func TestBindParsesFlags(t *testing.T) {
	cfg := Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.Bind(fs)

	err := fs.Parse([]string{
		"--pin", "26",
		"--polarity", "active-high",
		"-d", "250ms",
		"--poll", "5ms",
		"--backend", "rpio",
		"--pull", "down",
		"--http", "",
		"--print-state",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.Pin != 26 {
		t.Errorf("Pin: got %d, want 26", cfg.Pin)
	}
	if cfg.Debounce != 250*time.Millisecond {
		t.Errorf("Debounce: got %v, want 250ms", cfg.Debounce)
	}
	if cfg.DebounceMs() != 250 {
		t.Errorf("DebounceMs: got %d, want 250", cfg.DebounceMs())
	}
	if cfg.Poll != 5*time.Millisecond {
		t.Errorf("Poll: got %v, want 5ms", cfg.Poll)
	}
	if cfg.Backend != "rpio" {
		t.Errorf("Backend: got %q, want rpio", cfg.Backend)
	}
	if cfg.HTTPAddr != "" {
		t.Errorf("HTTPAddr: got %q, want empty", cfg.HTTPAddr)
	}
	if !cfg.PrintState {
		t.Error("expected PrintState=true")
	}
	p, err := cfg.ParsePolarity()
	if err != nil || p != logic.ActiveHigh {
		t.Errorf("polarity: got %s, %v", p, err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative pin", func(c *Config) { c.Pin = -1 }},
		{"negative debounce", func(c *Config) { c.Debounce = -time.Millisecond }},
		{"zero poll", func(c *Config) { c.Poll = 0 }},
		{"negative heartbeat", func(c *Config) { c.Heartbeat = -time.Second }},
		{"unknown polarity", func(c *Config) { c.Polarity = "sideways" }},
		{"unknown pull", func(c *Config) { c.Pull = "strong" }},
		{"unknown backend", func(c *Config) { c.Backend = "sysfs" }},
		{"unknown level", func(c *Config) { c.LogLevel = "chatty" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if errors.Cause(err) != ValidationError {
				t.Errorf("expected ValidationError cause, got %v", err)
			}
		})
	}
}

func TestZeroDebounceIsValid(t *testing.T) {
	cfg := Default()
	cfg.Debounce = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("zero debounce should be valid: %v", err)
	}
	if cfg.PollSlowerThanDebounce() {
		t.Error("zero debounce should never be flagged as too fine")
	}
}

func TestPollSlowerThanDebounce(t *testing.T) {
	cfg := Default()
	cfg.Poll = 100 * time.Millisecond
	cfg.Debounce = 100 * time.Millisecond
	if !cfg.PollSlowerThanDebounce() {
		t.Error("expected poll >= debounce to be flagged")
	}
	cfg.Poll = 10 * time.Millisecond
	if cfg.PollSlowerThanDebounce() {
		t.Error("expected poll < debounce to pass")
	}
}
