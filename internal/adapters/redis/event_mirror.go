package redis

// Package redis mirrors session events into Redis so that other processes can follow a flow.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/target/idflow/internal/domain/auth"
	"github.com/target/idflow/internal/ports"
)

const defaultStreamMaxLen = 1000

// EventMirror is a ports.EventSink that appends every event to a Redis stream
// and keeps the latest step under its own key.
//
// Keys, relative to the prefix:
//
//	events  stream of events, trimmed to roughly StreamMaxLen entries
//	step    name of the current flow step
type EventMirror struct {
	client redis.UniversalClient
	prefix string
	maxLen int64
}

var _ ports.EventSink = (*EventMirror)(nil)

// EventMirrorOptions configures an EventMirror.
type EventMirrorOptions struct {
	Prefix       string
	StreamMaxLen int64 // default 1000 when zero
}

// NewEventMirror creates a Redis-backed event mirror.
func NewEventMirror(client redis.UniversalClient, opts EventMirrorOptions) *EventMirror {
	maxLen := opts.StreamMaxLen
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}
	return &EventMirror{
		client: client,
		prefix: opts.Prefix,
		maxLen: maxLen,
	}
}

// StreamKey returns the key of the event stream.
func (m *EventMirror) StreamKey() string { return m.prefix + "events" }

// StepKey returns the key holding the latest step name.
func (m *EventMirror) StepKey() string { return m.prefix + "step" }

func (m *EventMirror) Publish(ctx context.Context, ev domainauth.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = m.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: m.StreamKey(),
			MaxLen: m.maxLen,
			Approx: true,
			Values: map[string]any{
				"kind":  string(ev.Kind),
				"seq":   ev.Seq,
				"event": data,
			},
		})
		if ev.Kind == domainauth.EventStepChanged {
			pipe.Set(ctx, m.StepKey(), ev.Step.String(), 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("mirror %s event: %w", ev.Kind, err)
	}
	return nil
}

// LatestStep returns the most recently mirrored step name.
func (m *EventMirror) LatestStep(ctx context.Context) (string, error) {
	step, err := m.client.Get(ctx, m.StepKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return step, nil
}

// Recent returns up to n mirrored events, newest first.
func (m *EventMirror) Recent(ctx context.Context, n int64) ([]domainauth.Event, error) {
	msgs, err := m.client.XRevRangeN(ctx, m.StreamKey(), "+", "-", n).Result()
	if err != nil {
		return nil, fmt.Errorf("redis xrevrange: %w", err)
	}

	events := make([]domainauth.Event, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["event"].(string)
		if !ok {
			return nil, fmt.Errorf("stream entry %s has no event payload", msg.ID)
		}
		var ev domainauth.Event
		if unmarshalErr := json.Unmarshal([]byte(raw), &ev); unmarshalErr != nil {
			return nil, fmt.Errorf("unmarshal event %s: %w", msg.ID, unmarshalErr)
		}
		events = append(events, ev)
	}
	return events, nil
}

// ErrNotFound is returned when nothing has been mirrored yet.
type notFoundError struct{}

func (notFoundError) Error() string { return "mirror key not found" }

var ErrNotFound error = notFoundError{}
