// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package queue

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
)

// Transport is the publisher/subscriber pair carrying delivery units.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	name       string

	newSubscriber func() (message.Subscriber, error)

	mu      sync.Mutex
	closers []io.Closer
}

// NewSubscriber returns a subscriber for a new router. A Watermill router
// closes its subscribers when it stops, so a restarted router needs one that
// is still open.
func (t *Transport) NewSubscriber() (message.Subscriber, error) {
	sub, err := t.newSubscriber()
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.closers = append(t.closers, sub)
	t.mu.Unlock()
	return sub, nil
}

// Name returns "memory" or "nats".
func (t *Transport) Name() string {
	return t.name
}

// Close closes both sides.
func (t *Transport) Close() error {
	t.mu.Lock()
	closers := t.closers
	t.closers = nil
	t.mu.Unlock()

	var errs []error
	// Subscribers were appended after the publisher, close them first.
	for i := len(closers) - 1; i >= 0; i-- {
		c := closers[i]
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close %s transport: %w", t.name, err)
	}
	return nil
}

// NATSConfig configures the JetStream transport.
type NATSConfig struct {
	URL              string
	QueueGroup       string
	DurableName      string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	CloseTimeout     time.Duration
	MaxDeliver       int
}

// NewNATSTransport returns a durable JetStream transport. Streams are
// provisioned from the topic name on first use.
func NewNATSTransport(cfg NATSConfig, logger watermill.LoggerAdapter) (*Transport, error) {
	if cfg.SubscribersCount <= 0 {
		cfg.SubscribersCount = 1
	}
	if cfg.AckWaitTimeout <= 0 {
		cfg.AckWaitTimeout = 30 * time.Second
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 30 * time.Second
	}
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = 20
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("Delivery transport disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("Delivery transport reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create delivery publisher: %w", err)
	}

	subCfg := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.MaxDeliver(cfg.MaxDeliver),
				natsgo.AckWait(cfg.AckWaitTimeout),
				// Units enqueued while no worker was running are still delivered.
				natsgo.DeliverAll(),
			},
			DurablePrefix: cfg.DurableName,
		},
	}
	newSub := func() (message.Subscriber, error) {
		sub, err := wmNats.NewSubscriber(subCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("create delivery subscriber: %w", err)
		}
		return sub, nil
	}

	sub, err := newSub()
	if err != nil {
		_ = pub.Close()
		return nil, err
	}

	return &Transport{
		Publisher:     pub,
		Subscriber:    sub,
		name:          "nats",
		newSubscriber: newSub,
		closers:       []io.Closer{pub, sub},
	}, nil
}
