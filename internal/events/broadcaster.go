// Package events fans session events out to several sinks.
package events

import (
	"context"
	"log/slog"

	domainauth "github.com/target/idflow/internal/domain/auth"
	"github.com/target/idflow/internal/ports"
)

// SinkFunc adapts a function to the ports.EventSink interface (useful for tests).
type SinkFunc func(ctx context.Context, ev domainauth.Event) error

// Publish implements ports.EventSink.
func (f SinkFunc) Publish(ctx context.Context, ev domainauth.Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, ev)
}

// NamedSink pairs a sink with the name used when logging its failures.
type NamedSink struct {
	Name string
	Sink ports.EventSink
}

// Broadcaster delivers each event to every sink in registration order.
// A failing sink is logged and skipped; the remaining sinks still receive the
// event and Publish itself never fails.
type Broadcaster struct {
	sinks  []NamedSink
	logger *slog.Logger
}

var _ ports.EventSink = (*Broadcaster)(nil)

// NewBroadcaster creates a Broadcaster. Nil sinks are dropped.
func NewBroadcaster(logger *slog.Logger, sinks ...NamedSink) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broadcaster{logger: logger.With("component", "events")}
	for _, s := range sinks {
		if s.Sink != nil {
			b.sinks = append(b.sinks, s)
		}
	}
	return b
}

// Len returns the number of registered sinks.
func (b *Broadcaster) Len() int { return len(b.sinks) }

func (b *Broadcaster) Publish(ctx context.Context, ev domainauth.Event) error {
	for _, s := range b.sinks {
		if err := s.Sink.Publish(ctx, ev); err != nil {
			b.logger.WarnContext(ctx, "event sink failed",
				"sink", s.Name,
				"kind", ev.Kind,
				"seq", ev.Seq,
				"error", err)
		}
	}
	return nil
}
