package preload

import (
	"log/slog"
)

// Option configures a Loader.
type Option func(*Loader)

// WithObserver sets the observer notified once per batch fetch. Use a
// *FetchStats to count and time fetches.
func WithObserver(o FetchObserver) Option {
	return func(l *Loader) {
		l.observer = o
	}
}

// WithLogger enables debug logging of load requests and batch fetches.
// Each load request is tagged with a generated load id.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithConcurrency allows up to n same-depth edge fetches to run
// concurrently. Attachment is still serialized per level, so the
// breadth-first ordering and the fetch count are unchanged. Values below 2
// keep the default sequential behavior.
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 1 {
			l.concurrency = n
		}
	}
}
