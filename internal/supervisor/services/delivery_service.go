// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomtom215/trunkcast/internal/logging"
)

// DeliveryRouter is satisfied by *queue.Router.
type DeliveryRouter interface {
	Run(ctx context.Context) error
	IsRunning() bool
}

// DeliveryRouterFactory builds a router with its handlers registered. A
// Watermill router cannot run again once closed, so each restart builds a
// new one.
type DeliveryRouterFactory func() (DeliveryRouter, error)

// DeliveryRouterService runs the delivery queue consumer under the
// supervisor.
type DeliveryRouterService struct {
	build DeliveryRouterFactory
	name  string

	mu      sync.RWMutex
	current DeliveryRouter
}

// NewDeliveryRouterService creates the service.
func NewDeliveryRouterService(build DeliveryRouterFactory) *DeliveryRouterService {
	return &DeliveryRouterService{build: build, name: "delivery-router"}
}

// Serve implements suture.Service.
func (d *DeliveryRouterService) Serve(ctx context.Context) error {
	router, err := d.build()
	if err != nil {
		return fmt.Errorf("build delivery router: %w", err)
	}

	d.mu.Lock()
	d.current = router
	d.mu.Unlock()

	logging.Info().Msg("delivery router starting")
	err = router.Run(ctx)
	if err != nil {
		return fmt.Errorf("delivery router: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	// Run returned without cancellation, so the router was closed underneath us.
	return fmt.Errorf("delivery router stopped unexpectedly")
}

// IsRunning reports whether the current router is consuming units.
func (d *DeliveryRouterService) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current != nil && d.current.IsRunning()
}

func (d *DeliveryRouterService) String() string {
	return d.name
}
