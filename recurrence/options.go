package recurrence

import "log/slog"

// Options controls how expansion behaves.
type Options struct {
	// MaxOccurrencesPerEvent caps how many instances a single rule may
	// contribute inside one window. The window end already bounds
	// enumeration; the cap guards against dense rules (e.g. minutely)
	// over a wide window. Zero means DefaultMaxOccurrencesPerEvent.
	MaxOccurrencesPerEvent int

	// Logger receives per-event skip and truncation diagnostics.
	// Nil means logging is discarded.
	Logger *slog.Logger
}

// DefaultMaxOccurrencesPerEvent bounds a single event's expansion.
const DefaultMaxOccurrencesPerEvent = 5000

// DefaultOptions provides sensible defaults for production use.
var DefaultOptions = Options{
	MaxOccurrencesPerEvent: DefaultMaxOccurrencesPerEvent,
}
