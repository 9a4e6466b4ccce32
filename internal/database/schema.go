// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

/*
schema.go - Database Schema Management

Tables:
  - systems: radio systems and their retention policy
  - recorders: peer keys mapped to the local system they feed
  - forwarders: peer instances that receive forwarded events
  - mqtt_targets: brokers that receive durable queue publishes
  - transmissions: one row per call, with the original payload as JSON
  - transmission_units / transmission_frequencies: call children, deleted
    before their transmission
  - incidents: incident events

Destination system and agency lists are stored as JSON arrays.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range getTableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range getIndexQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}
	return nil
}

func getTableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS systems (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			prune_enabled BOOLEAN NOT NULL DEFAULT false,
			prune_after_seconds BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS recorders (
			key TEXT PRIMARY KEY,
			system_id BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS forwarders (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			url TEXT NOT NULL,
			auth_key TEXT NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT true,
			forward_incidents BOOLEAN NOT NULL DEFAULT false,
			systems TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE TABLE IF NOT EXISTS mqtt_targets (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			host TEXT NOT NULL,
			port INTEGER NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			password TEXT NOT NULL DEFAULT '',
			enabled BOOLEAN NOT NULL DEFAULT true,
			systems TEXT NOT NULL DEFAULT '[]',
			agencies TEXT NOT NULL DEFAULT '[]',
			topic_prefix TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS transmissions (
			id TEXT PRIMARY KEY,
			system_id BIGINT NOT NULL,
			start_time TIMESTAMP NOT NULL,
			talkgroup BIGINT NOT NULL DEFAULT 0,
			payload TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
		)`,
		`CREATE TABLE IF NOT EXISTS transmission_units (
			transmission_id TEXT NOT NULL,
			unit_id BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transmission_frequencies (
			transmission_id TEXT NOT NULL,
			freq BIGINT NOT NULL,
			pos DOUBLE NOT NULL DEFAULT 0,
			len DOUBLE NOT NULL DEFAULT 0,
			error_count INTEGER NOT NULL DEFAULT 0,
			spike_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS incidents (
			id TEXT PRIMARY KEY,
			system_id BIGINT NOT NULL,
			payload TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
		)`,
	}
}

func getIndexQueries() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_transmissions_system_start ON transmissions(system_id, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_transmission_units_tx ON transmission_units(transmission_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transmission_frequencies_tx ON transmission_frequencies(transmission_id)`,
		`CREATE INDEX IF NOT EXISTS idx_incidents_system ON incidents(system_id)`,
	}
}
