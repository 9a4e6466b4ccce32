// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/trunkcast/internal/config"
	"github.com/tomtom215/trunkcast/internal/logging"
	"github.com/tomtom215/trunkcast/internal/metrics"
	"github.com/tomtom215/trunkcast/internal/models"
)

// UpsertSystem inserts or replaces a system.
func (db *DB) UpsertSystem(ctx context.Context, s *models.System) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO systems (id, name, prune_enabled, prune_after_seconds) VALUES (?, ?, ?, ?)`,
		s.ID, s.Name, s.PruneEnabled, int64(s.PruneAfter/time.Second))
	metrics.RecordDBQuery("upsert", "systems", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("upsert system %d: %w", s.ID, err)
	}
	return nil
}

// ListSystems returns every system ordered by id.
func (db *DB) ListSystems(ctx context.Context) ([]models.System, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, prune_enabled, prune_after_seconds FROM systems ORDER BY id`)
	if err != nil {
		metrics.RecordDBQuery("select", "systems", time.Since(start), err)
		return nil, fmt.Errorf("list systems: %w", err)
	}
	defer rows.Close()

	var systems []models.System
	for rows.Next() {
		var s models.System
		var seconds int64
		if err := rows.Scan(&s.ID, &s.Name, &s.PruneEnabled, &seconds); err != nil {
			return nil, fmt.Errorf("scan system: %w", err)
		}
		s.PruneAfter = time.Duration(seconds) * time.Second
		systems = append(systems, s)
	}
	err = rows.Err()
	metrics.RecordDBQuery("select", "systems", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list systems: %w", err)
	}
	return systems, nil
}

// UpsertRecorder inserts or replaces a recorder key.
func (db *DB) UpsertRecorder(ctx context.Context, r *models.Recorder) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO recorders (key, system_id) VALUES (?, ?)`, r.Key, r.SystemID)
	metrics.RecordDBQuery("upsert", "recorders", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("upsert recorder for system %d: %w", r.SystemID, err)
	}
	return nil
}

// RecorderSystem resolves a recorder key to its local system. Unknown keys
// return an error wrapping models.ErrNotFound.
func (db *DB) RecorderSystem(ctx context.Context, key string) (int64, error) {
	start := time.Now()
	var systemID int64
	err := db.conn.QueryRowContext(ctx, `SELECT system_id FROM recorders WHERE key = ?`, key).Scan(&systemID)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("select", "recorders", time.Since(start), nil)
		return 0, fmt.Errorf("recorder: %w", models.ErrNotFound)
	}
	metrics.RecordDBQuery("select", "recorders", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("lookup recorder: %w", err)
	}
	return systemID, nil
}

// UpsertForwarder inserts or replaces a forwarder.
func (db *DB) UpsertForwarder(ctx context.Context, f *models.Forwarder) error {
	systems, err := encodeIDs(f.Systems)
	if err != nil {
		return err
	}
	start := time.Now()
	_, err = db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO forwarders (id, name, url, auth_key, enabled, forward_incidents, systems)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, f.URL, f.Key, f.Enabled, f.ForwardIncidents, systems)
	metrics.RecordDBQuery("upsert", "forwarders", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("upsert forwarder %d: %w", f.ID, err)
	}
	return nil
}

// ListForwarders returns every forwarder, enabled or not, ordered by id.
func (db *DB) ListForwarders(ctx context.Context) ([]models.Forwarder, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, url, auth_key, enabled, forward_incidents, systems FROM forwarders ORDER BY id`)
	if err != nil {
		metrics.RecordDBQuery("select", "forwarders", time.Since(start), err)
		return nil, fmt.Errorf("list forwarders: %w", err)
	}
	defer rows.Close()

	var out []models.Forwarder
	for rows.Next() {
		var f models.Forwarder
		var systems string
		if err := rows.Scan(&f.ID, &f.Name, &f.URL, &f.Key, &f.Enabled, &f.ForwardIncidents, &systems); err != nil {
			return nil, fmt.Errorf("scan forwarder: %w", err)
		}
		if f.Systems, err = decodeIDs(systems); err != nil {
			return nil, fmt.Errorf("forwarder %d systems: %w", f.ID, err)
		}
		out = append(out, f)
	}
	err = rows.Err()
	metrics.RecordDBQuery("select", "forwarders", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list forwarders: %w", err)
	}
	return out, nil
}

const mqttTargetColumns = `id, name, host, port, username, password, enabled, systems, agencies, topic_prefix`

// UpsertMQTTTarget inserts or replaces an MQTT target.
func (db *DB) UpsertMQTTTarget(ctx context.Context, m *models.MQTTTarget) error {
	systems, err := encodeIDs(m.Systems)
	if err != nil {
		return err
	}
	agencies, err := encodeIDs(m.Agencies)
	if err != nil {
		return err
	}
	start := time.Now()
	_, err = db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO mqtt_targets (`+mqttTargetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Host, m.Port, m.Username, m.Password, m.Enabled, systems, agencies, m.TopicPrefix)
	metrics.RecordDBQuery("upsert", "mqtt_targets", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("upsert mqtt target %d: %w", m.ID, err)
	}
	return nil
}

// ListMQTTTargets returns every MQTT target ordered by id.
func (db *DB) ListMQTTTargets(ctx context.Context) ([]models.MQTTTarget, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `SELECT `+mqttTargetColumns+` FROM mqtt_targets ORDER BY id`)
	if err != nil {
		metrics.RecordDBQuery("select", "mqtt_targets", time.Since(start), err)
		return nil, fmt.Errorf("list mqtt targets: %w", err)
	}
	defer rows.Close()

	var out []models.MQTTTarget
	for rows.Next() {
		m, err := scanMQTTTarget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	err = rows.Err()
	metrics.RecordDBQuery("select", "mqtt_targets", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list mqtt targets: %w", err)
	}
	return out, nil
}

// GetMQTTTarget returns one target. Unknown ids return an error wrapping
// models.ErrNotFound.
func (db *DB) GetMQTTTarget(ctx context.Context, id int64) (*models.MQTTTarget, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, `SELECT `+mqttTargetColumns+` FROM mqtt_targets WHERE id = ?`, id)
	m, err := scanMQTTTarget(row)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("select", "mqtt_targets", time.Since(start), nil)
		return nil, fmt.Errorf("mqtt target %d: %w", id, models.ErrNotFound)
	}
	metrics.RecordDBQuery("select", "mqtt_targets", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return m, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMQTTTarget(s scanner) (*models.MQTTTarget, error) {
	var m models.MQTTTarget
	var systems, agencies string
	if err := s.Scan(&m.ID, &m.Name, &m.Host, &m.Port, &m.Username, &m.Password, &m.Enabled, &systems, &agencies, &m.TopicPrefix); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan mqtt target: %w", err)
	}
	var err error
	if m.Systems, err = decodeIDs(systems); err != nil {
		return nil, fmt.Errorf("mqtt target %d systems: %w", m.ID, err)
	}
	if m.Agencies, err = decodeIDs(agencies); err != nil {
		return nil, fmt.Errorf("mqtt target %d agencies: %w", m.ID, err)
	}
	return &m, nil
}

// SeedRegistry upserts the registry entries from configuration.
func (db *DB) SeedRegistry(ctx context.Context, reg *config.RegistryConfig) error {
	for i := range reg.Systems {
		if err := db.UpsertSystem(ctx, &reg.Systems[i]); err != nil {
			return err
		}
	}
	for i := range reg.Recorders {
		if err := db.UpsertRecorder(ctx, &reg.Recorders[i]); err != nil {
			return err
		}
	}
	for i := range reg.Forwarders {
		if err := db.UpsertForwarder(ctx, &reg.Forwarders[i]); err != nil {
			return err
		}
	}
	for i := range reg.MQTTTargets {
		if err := db.UpsertMQTTTarget(ctx, &reg.MQTTTargets[i]); err != nil {
			return err
		}
	}

	logging.Info().
		Int("systems", len(reg.Systems)).
		Int("recorders", len(reg.Recorders)).
		Int("forwarders", len(reg.Forwarders)).
		Int("mqtt_targets", len(reg.MQTTTargets)).
		Msg("registry seeded")
	return nil
}

func encodeIDs(ids []int64) (string, error) {
	if ids == nil {
		ids = []int64{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("encode id list: %w", err)
	}
	return string(data), nil
}

func decodeIDs(s string) ([]int64, error) {
	var ids []int64
	if s == "" {
		return ids, nil
	}
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
