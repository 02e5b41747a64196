package logic

// DefaultDebounce is the debounce interval used when none is configured,
// in the caller's time unit (milliseconds for the daemon).
const DefaultDebounce int64 = 100

// Button debounces a single polled input.
//
// Step must be called from one goroutine at a time; the queries report the
// state accepted by the most recent Step.
type Button struct {
	pin      int
	src      LevelSource
	sink     Sink
	polarity Polarity
	debounce int64

	lastChange int64
	current    Level
	previous   Level
}

// Option configures a Button.
type Option func(*Button)

// WithPolarity sets which raw level means "down". Default ActiveHigh.
func WithPolarity(p Polarity) Option {
	return func(b *Button) { b.polarity = p }
}

// WithDebounce sets the minimum time after an accepted change before the
// next raw reading is trusted. Negative values are treated as zero.
func WithDebounce(interval int64) Option {
	return func(b *Button) {
		if interval < 0 {
			interval = 0
		}
		b.debounce = interval
	}
}

// WithSink registers a sink notified on every accepted transition.
func WithSink(s Sink) Option {
	return func(b *Button) { b.sink = s }
}

// NewButton creates a debouncer for the given pin reading raw levels from src.
func NewButton(pin int, src LevelSource, opts ...Option) *Button {
	b := &Button{
		pin:      pin,
		src:      src,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.Reset()
	return b
}

// Reset returns the button to its rest state and forgets all history.
// The input is not read.
func (b *Button) Reset() {
	rest := b.polarity.RestLevel()
	b.current = rest
	b.previous = rest
	b.lastChange = 0
}

// Step advances the state machine to time now.
//
// The raw level is only read once more than the debounce interval has
// elapsed since the last accepted change; at most one transition is
// accepted per call. A now earlier than the last change re-anchors the
// window at now.
func (b *Button) Step(now int64) {
	b.previous = b.current

	if now < b.lastChange {
		b.lastChange = now
		return
	}
	if now-b.lastChange <= b.debounce {
		return
	}

	l := b.src.Level()
	if l == b.current {
		return
	}
	b.current = l
	b.lastChange = now
	if b.sink != nil {
		b.sink.Transition(Transition{Pin: b.pin, Level: l, At: now})
	}
}

// Pressed reports whether the button went down on the last Step.
func (b *Button) Pressed() bool {
	active := b.polarity.ActiveLevel()
	return b.current == active && b.previous != active
}

// Released reports whether the button went up on the last Step.
func (b *Button) Released() bool {
	active := b.polarity.ActiveLevel()
	return b.current != active && b.previous == active
}

// Down reports whether the button is held down.
func (b *Button) Down() bool {
	return b.current == b.polarity.ActiveLevel()
}

// Up reports whether the button is released.
func (b *Button) Up() bool {
	return !b.Down()
}

// State returns the logical state as of the last Step.
func (b *Button) State() State {
	if b.Down() {
		return StateDown
	}
	return StateUp
}

// Level returns the accepted raw level.
func (b *Button) Level() Level { return b.current }

// LastChange returns the time of the last accepted change (0 after Reset).
func (b *Button) LastChange() int64 { return b.lastChange }

// Debounce returns the configured debounce interval.
func (b *Button) Debounce() int64 { return b.debounce }

// Polarity returns the configured polarity.
func (b *Button) Polarity() Polarity { return b.polarity }

// Pin returns the pin identity reported to the sink.
func (b *Button) Pin() int { return b.pin }
