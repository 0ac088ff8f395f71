// Package events delivers analysis notifications to registered consumers.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"ramstk/internal/analysis"
)

// Consumer handles events for the topics it subscribed to.
type Consumer interface {
	// Name identifies the consumer in logs.
	Name() string
	// ProcessEvent handles one event. Errors are logged and counted.
	ProcessEvent(ctx context.Context, ev analysis.Event) error
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc struct {
	ID string
	Fn func(ctx context.Context, ev analysis.Event) error
}

func (c ConsumerFunc) Name() string { return c.ID }

func (c ConsumerFunc) ProcessEvent(ctx context.Context, ev analysis.Event) error {
	return c.Fn(ctx, ev)
}

// Stats counts bus activity.
type Stats struct {
	EventsReceived  uint64
	EventsProcessed uint64
	EventsUnrouted  uint64
	ConsumerErrors  uint64
}

// Bus delivers each published event synchronously, in subscription order,
// to the consumers of its topic and to wildcard consumers.
type Bus struct {
	mu       sync.RWMutex
	byTopic  map[analysis.Topic][]Consumer
	wildcard []Consumer
	logger   *slog.Logger

	received  atomic.Uint64
	processed atomic.Uint64
	unrouted  atomic.Uint64
	failed    atomic.Uint64
}

var _ analysis.Publisher = (*Bus)(nil)

// NewBus returns an empty bus. A nil logger selects slog.Default.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		byTopic: make(map[analysis.Topic][]Consumer),
		logger:  logger.With("component", "events"),
	}
}

// Subscribe registers c for the given topics. No topics subscribes c to
// every event.
func (b *Bus) Subscribe(c Consumer, topics ...analysis.Topic) error {
	if c == nil {
		return fmt.Errorf("subscribe: nil consumer")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(topics) == 0 {
		b.wildcard = append(b.wildcard, c)
		return nil
	}
	for _, t := range topics {
		b.byTopic[t] = append(b.byTopic[t], c)
	}
	return nil
}

// Publish implements analysis.Publisher.
func (b *Bus) Publish(ctx context.Context, ev analysis.Event) {
	b.received.Add(1)
	b.mu.RLock()
	consumers := make([]Consumer, 0, len(b.byTopic[ev.Topic])+len(b.wildcard))
	consumers = append(consumers, b.byTopic[ev.Topic]...)
	consumers = append(consumers, b.wildcard...)
	b.mu.RUnlock()

	if len(consumers) == 0 {
		b.unrouted.Add(1)
		return
	}
	for _, c := range consumers {
		if err := c.ProcessEvent(ctx, ev); err != nil {
			b.failed.Add(1)
			b.logger.Warn("consumer failed",
				"consumer", c.Name(),
				"topic", string(ev.Topic),
				"event_id", ev.ID.String(),
				"error", err,
			)
		}
	}
	b.processed.Add(1)
}

// Stats returns a copy of the counters.
func (b *Bus) Stats() Stats {
	return Stats{
		EventsReceived:  b.received.Load(),
		EventsProcessed: b.processed.Load(),
		EventsUnrouted:  b.unrouted.Load(),
		ConsumerErrors:  b.failed.Load(),
	}
}

// Recorder is a consumer that keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []analysis.Event
}

func (r *Recorder) Name() string { return "recorder" }

func (r *Recorder) ProcessEvent(_ context.Context, ev analysis.Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

// Events returns the recorded events in arrival order.
func (r *Recorder) Events() []analysis.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]analysis.Event(nil), r.events...)
}

// Topics returns the recorded topics in arrival order.
func (r *Recorder) Topics() []analysis.Topic {
	events := r.Events()
	out := make([]analysis.Topic, len(events))
	for i, ev := range events {
		out[i] = ev.Topic
	}
	return out
}

// LogConsumer writes every event to a logger: failures at warn, the rest at
// debug.
type LogConsumer struct {
	Logger *slog.Logger
}

func (LogConsumer) Name() string { return "log" }

func (c LogConsumer) ProcessEvent(ctx context.Context, ev analysis.Event) error {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{
		"topic", string(ev.Topic),
		"event_id", ev.ID.String(),
		"hierarchy", ev.Hierarchy.String(),
		"scope", ev.Scope.String(),
	}
	if ev.NodeID != "" {
		attrs = append(attrs, "node", ev.NodeID)
	}
	if ev.Attribute != "" {
		attrs = append(attrs, "attribute", ev.Attribute, "value", ev.Value)
	}
	if ev.Err != nil || strings.HasPrefix(string(ev.Topic), "fail_") {
		logger.WarnContext(ctx, "analysis event", append(attrs, "error", ev.Err)...)
		return nil
	}
	logger.DebugContext(ctx, "analysis event", attrs...)
	return nil
}
