// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package queue

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/trunkcast/internal/logging"
	"github.com/tomtom215/trunkcast/internal/metrics"
)

// DefaultTopic carries every delivery unit.
const DefaultTopic = "delivery.units"

// Queue enqueues delivery units onto a Watermill publisher.
type Queue struct {
	publisher message.Publisher
	topic     string
}

// New returns a Queue publishing to topic.
func New(publisher message.Publisher, topic string) *Queue {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Queue{publisher: publisher, topic: topic}
}

// Topic returns the topic units are published to.
func (q *Queue) Topic() string {
	return q.topic
}

// Enqueue publishes one unit. It returns once the transport accepted it.
func (q *Queue) Enqueue(ctx context.Context, u Unit) error {
	msg, err := Encode(u)
	if err != nil {
		return err
	}
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(MetadataCorrelationID, id)
	}
	msg.SetContext(ctx)

	if err := q.publisher.Publish(q.topic, msg); err != nil {
		return fmt.Errorf("enqueue %s: %w", u.IdempotencyKey(), err)
	}
	metrics.RecordEnqueue(string(u.Kind()))
	return nil
}
