package logic

import "time"

// Monitor drives a Button from wall-clock samples and reports edges as events.
type Monitor struct {
	button        *Button
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewMonitor wraps button. The button's time base is milliseconds since
// startTime, which is also used for calculating uptime in heartbeat events.
func NewMonitor(button *Button, startTime time.Time) *Monitor {
	return &Monitor{
		button:        button,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process steps the button at now and returns any events that should be emitted.
// At most one event is returned per call.
func (m *Monitor) Process(now time.Time) []Event {
	m.button.Step(m.Tick(now))

	var event Event
	switch {
	case m.button.Pressed():
		event.Type = EventPressed
		m.eventCounts.Presses++
	case m.button.Released():
		event.Type = EventReleased
		m.eventCounts.Releases++
	default:
		return nil
	}
	event.Timestamp = now
	event.Pin = m.button.Pin()
	event.State = m.button.State()
	return []Event{event}
}

// Tick converts a wall-clock time to the button's time base.
func (m *Monitor) Tick(now time.Time) int64 {
	return now.Sub(m.startTime).Milliseconds()
}

// Reset returns the button to its rest state. Event counts are kept.
func (m *Monitor) Reset() {
	m.button.Reset()
}

// Button returns the wrapped button.
func (m *Monitor) Button() *Button {
	return m.button
}

// CurrentState returns the current debounced state.
func (m *Monitor) CurrentState() State {
	return m.button.State()
}

// LastChange returns the wall-clock time of the last accepted change,
// or the zero time if nothing has been accepted since the last reset.
func (m *Monitor) LastChange() time.Time {
	tick := m.button.LastChange()
	if tick == 0 {
		return time.Time{}
	}
	return m.startTime.Add(time.Duration(tick) * time.Millisecond)
}

// EventCountsSnapshot returns a copy of the event counters.
func (m *Monitor) EventCountsSnapshot() EventCounts {
	return m.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (m *Monitor) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(m.lastHeartbeat) < interval {
		return nil
	}

	m.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(m.startTime),
		Counts:    m.eventCounts,
	}
}
