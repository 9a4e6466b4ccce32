// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package publisher

import (
	"errors"
	"sync"

	"github.com/tomtom215/trunkcast/internal/models"
)

// Pool keeps one Publisher per MQTT target. A target whose connection
// details change gets a new Publisher.
type Pool struct {
	base Config

	mu     sync.Mutex
	pubs   map[int64]*pooled
	closed bool
}

type pooled struct {
	pub *Publisher
	cfg Config
}

// NewPool returns an empty pool. base supplies timeouts and stream limits.
func NewPool(base Config) *Pool {
	return &Pool{base: base, pubs: make(map[int64]*pooled)}
}

// Get returns the Publisher for target, creating it on first use.
func (p *Pool) Get(target *models.MQTTTarget) *Publisher {
	cfg := ForTarget(p.base, target)

	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.pubs[target.ID]; ok {
		if e.cfg == cfg {
			return e.pub
		}
		_ = e.pub.Close()
	}
	pub := New(cfg)
	if p.closed {
		_ = pub.Close()
	}
	p.pubs[target.ID] = &pooled{pub: pub, cfg: cfg}
	return pub
}

// Discard closes and forgets the Publisher for a target, so the next Get
// opens a new connection.
func (p *Pool) Discard(targetID int64) error {
	p.mu.Lock()
	e, ok := p.pubs[targetID]
	delete(p.pubs, targetID)
	p.mu.Unlock()

	if !ok {
		return nil
	}
	return e.pub.Close()
}

// Len returns the number of pooled publishers.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pubs)
}

// Close closes every Publisher. Later Gets return closed Publishers.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	var errs []error
	for id, e := range p.pubs {
		if err := e.pub.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(p.pubs, id)
	}
	return errors.Join(errs...)
}
