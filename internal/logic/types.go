// Package logic contains the pure debouncing state machine for a single button.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always supplied by the caller.
package logic

import "time"

// Level is a raw or accepted logic level of the input pin.
type Level uint8

const (
	Low  Level = 0
	High Level = 1
)

func (l Level) String() string {
	if l == High {
		return "1"
	}
	return "0"
}

// Polarity maps the electrical level to the logical "down" meaning.
type Polarity int

const (
	// ActiveHigh buttons read High while pressed (pull-down wiring).
	ActiveHigh Polarity = iota
	// ActiveLow buttons read Low while pressed (pull-up wiring).
	ActiveLow
)

// ActiveLevel returns the level that means "down" under this polarity.
func (p Polarity) ActiveLevel() Level {
	if p == ActiveLow {
		return Low
	}
	return High
}

// RestLevel returns the level that means "up" under this polarity.
func (p Polarity) RestLevel() Level {
	return p.ActiveLevel() ^ 1
}

func (p Polarity) String() string {
	if p == ActiveLow {
		return "active-low"
	}
	return "active-high"
}

// LevelSource supplies the instantaneous raw level of the monitored input.
type LevelSource interface {
	Level() Level
}

// LevelFunc adapts a plain function to a LevelSource.
type LevelFunc func() Level

// Level calls f.
func (f LevelFunc) Level() Level { return f() }

// Transition describes an accepted level change.
type Transition struct {
	Pin   int
	Level Level
	At    int64
}

// Sink is notified of every accepted transition. It is informational only.
type Sink interface {
	Transition(t Transition)
}

// SinkFunc adapts a plain function to a Sink.
type SinkFunc func(t Transition)

// Transition calls f.
func (f SinkFunc) Transition(t Transition) { f(t) }

// State is the logical state of the button.
type State string

const (
	StateDown State = "DOWN"
	StateUp   State = "UP"
)

// EventType represents an edge reported to consumers.
type EventType string

const (
	EventPressed  EventType = "PRESSED"
	EventReleased EventType = "RELEASED"
)

// Event represents an edge to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Pin       int
	State     State
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Presses  int
	Releases int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
