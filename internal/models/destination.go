// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package models

import (
	"fmt"
	"net"
	"slices"
	"strconv"
)

// Forwarder is a registered peer instance that receives forwarded events over HTTP.
type Forwarder struct {
	ID               int64   `json:"id" koanf:"id" validate:"required,min=1"`
	Name             string  `json:"name" koanf:"name" validate:"required"`
	URL              string  `json:"url" koanf:"url" validate:"required,url"`
	Key              string  `json:"-" koanf:"key" validate:"required"`
	Enabled          bool    `json:"enabled" koanf:"enabled"`
	ForwardIncidents bool    `json:"forward_incidents" koanf:"forward_incidents"`
	Systems          []int64 `json:"systems" koanf:"systems"`
}

// Accepts reports whether an event of the given kind from systemID should be
// forwarded to this peer.
func (f *Forwarder) Accepts(kind EventKind, systemID int64) bool {
	if !f.Enabled || !slices.Contains(f.Systems, systemID) {
		return false
	}
	if kind == EventKindIncident {
		return f.ForwardIncidents
	}
	return true
}

// DefaultTopicPrefix is used when an MQTT target does not set one.
const DefaultTopicPrefix = "trunkcast"

// MQTTTarget is a broker endpoint that devices subscribe to.
type MQTTTarget struct {
	ID          int64   `json:"id" koanf:"id" validate:"required,min=1"`
	Name        string  `json:"name" koanf:"name" validate:"required"`
	Host        string  `json:"host" koanf:"host" validate:"required,hostname_rfc1123|ip"`
	Port        int     `json:"port" koanf:"port" validate:"required,min=1,max=65535"`
	Username    string  `json:"username,omitempty" koanf:"username"`
	Password    string  `json:"-" koanf:"password"`
	Enabled     bool    `json:"enabled" koanf:"enabled"`
	Systems     []int64 `json:"systems" koanf:"systems"`
	Agencies    []int64 `json:"agencies" koanf:"agencies"`
	TopicPrefix string  `json:"topic_prefix,omitempty" koanf:"topic_prefix"`
}

// InScope reports whether an event owned by systemID (optionally tagged with
// an agency) falls within this target's routing scope. Disabled targets are
// never in scope.
func (m *MQTTTarget) InScope(systemID int64, agency int64, hasAgency bool) bool {
	if !m.Enabled {
		return false
	}
	if slices.Contains(m.Systems, systemID) {
		return true
	}
	return hasAgency && slices.Contains(m.Agencies, agency)
}

// QueueName is the durable queue events of the given kind are published to.
func (m *MQTTTarget) QueueName(kind EventKind) string {
	prefix := m.TopicPrefix
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return fmt.Sprintf("%s.%s", prefix, kind)
}

// URL returns the broker client URL for this target.
func (m *MQTTTarget) URL() string {
	return "nats://" + net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
}
