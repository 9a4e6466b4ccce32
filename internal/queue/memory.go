// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/trunkcast/internal/logging"
)

// DefaultMemoryBacklog bounds the units held for a topic while no router is
// subscribed to it.
const DefaultMemoryBacklog = 10000

// ErrBacklogFull is returned by the memory transport when a buffered topic
// has no subscriber and its backlog is at capacity.
var ErrBacklogFull = errors.New("memory transport backlog full")

// memoryPubSub wraps a gochannel so that units published to a buffered topic
// while no router is subscribed are held and handed to the next subscriber.
// Messages on other topics without a subscriber are logged and dropped.
type memoryPubSub struct {
	ch       *gochannel.GoChannel
	buffered map[string]bool
	limit    int

	mu      sync.Mutex
	subs    map[string][]context.Context
	backlog map[string][]*message.Message
}

func newMemoryPubSub(ch *gochannel.GoChannel, limit int, bufferedTopics []string) *memoryPubSub {
	m := &memoryPubSub{
		ch:       ch,
		buffered: make(map[string]bool, len(bufferedTopics)),
		limit:    limit,
		subs:     make(map[string][]context.Context),
		backlog:  make(map[string][]*message.Message),
	}
	for _, t := range bufferedTopics {
		m.buffered[t] = true
	}
	return m
}

// activeLocked reports whether topic has a live subscription, dropping
// subscriptions whose context ended.
func (m *memoryPubSub) activeLocked(topic string) bool {
	live := m.subs[topic][:0]
	for _, ctx := range m.subs[topic] {
		if ctx.Err() == nil {
			live = append(live, ctx)
		}
	}
	m.subs[topic] = live
	return len(live) > 0
}

// Publish implements message.Publisher.
func (m *memoryPubSub) Publish(topic string, msgs ...*message.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeLocked(topic) {
		return m.ch.Publish(topic, msgs...)
	}

	if !m.buffered[topic] {
		for _, msg := range msgs {
			logging.Warn().
				Str("topic", topic).
				Str("message_uuid", msg.UUID).
				Str("idempotency_key", msg.Metadata.Get(MetadataIdempotencyKey)).
				Str("unit_kind", msg.Metadata.Get(MetadataUnitKind)).
				Msg("no subscriber on topic, message discarded")
		}
		return nil
	}

	if len(m.backlog[topic])+len(msgs) > m.limit {
		return fmt.Errorf("%w: topic %s holds %d units", ErrBacklogFull, topic, len(m.backlog[topic]))
	}
	for _, msg := range msgs {
		m.backlog[topic] = append(m.backlog[topic], msg.Copy())
	}
	return nil
}

// Subscribe implements message.Subscriber. Any backlog for topic is
// published to the new subscription.
func (m *memoryPubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out, err := m.ch.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}
	m.subs[topic] = append(m.subs[topic], ctx)

	if pending := m.backlog[topic]; len(pending) > 0 {
		delete(m.backlog, topic)
		if err := m.ch.Publish(topic, pending...); err != nil {
			m.backlog[topic] = pending
			return nil, fmt.Errorf("flush backlog of %s: %w", topic, err)
		}
		logging.Info().Str("topic", topic).Int("units", len(pending)).Msg("flushed memory transport backlog")
	}
	return out, nil
}

// Backlog returns the number of units waiting for a subscriber on topic.
func (m *memoryPubSub) Backlog(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.backlog[topic])
}

// Close leaves the gochannel open; it belongs to the Transport, and a
// Watermill router closes its subscriber when it stops.
func (m *memoryPubSub) Close() error { return nil }

// NewMemoryTransport returns an in-process gochannel transport. Units
// published to bufferedTopics (DefaultTopic when none are given) before a
// router subscribes are held, up to DefaultMemoryBacklog, and delivered once
// one does. Units do not survive a process restart.
func NewMemoryTransport(logger watermill.LoggerAdapter, bufferedTopics ...string) *Transport {
	topics := make([]string, 0, len(bufferedTopics))
	for _, t := range bufferedTopics {
		if t != "" {
			topics = append(topics, t)
		}
	}
	if len(topics) == 0 {
		topics = []string{DefaultTopic}
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, logger)
	ps := newMemoryPubSub(ch, DefaultMemoryBacklog, topics)
	return &Transport{
		Publisher:     ps,
		Subscriber:    ps,
		name:          "memory",
		newSubscriber: func() (message.Subscriber, error) { return ps, nil },
		closers:       []io.Closer{ch},
	}
}
