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

	"github.com/tomtom215/trunkcast/internal/metrics"
	"github.com/tomtom215/trunkcast/internal/models"
)

// InsertTransmission stores a transmission with its units and frequencies in
// one transaction. It reports false when a transmission with the same id is
// already stored, in which case nothing is written.
func (db *DB) InsertTransmission(ctx context.Context, t *models.Transmission) (bool, error) {
	payload, err := t.Payload.Marshal()
	if err != nil {
		return false, fmt.Errorf("transmission %s: %w", t.ID, err)
	}

	start := time.Now()
	inserted, err := db.insertTransmission(ctx, t, string(payload))
	metrics.RecordDBQuery("insert", "transmissions", time.Since(start), err)
	if err != nil {
		return false, fmt.Errorf("insert transmission %s: %w", t.ID, err)
	}
	return inserted, nil
}

func (db *DB) insertTransmission(ctx context.Context, t *models.Transmission, payload string) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer rollback(tx)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO transmissions (id, system_id, start_time, talkgroup, payload)
		 VALUES (?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`,
		t.ID, t.SystemID, t.StartTime.UTC(), t.Talkgroup, payload)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	for _, unit := range t.Units {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transmission_units (transmission_id, unit_id) VALUES (?, ?)`, t.ID, unit); err != nil {
			return false, fmt.Errorf("unit %d: %w", unit, err)
		}
	}
	for _, f := range t.Frequencies {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transmission_frequencies (transmission_id, freq, pos, len, error_count, spike_count)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			t.ID, f.Freq, f.Position, f.Length, f.ErrorCount, f.SpikeCount); err != nil {
			return false, fmt.Errorf("frequency %d: %w", f.Freq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// InsertIncident stores an incident. It reports false for a duplicate id.
func (db *DB) InsertIncident(ctx context.Context, inc *models.Incident) (bool, error) {
	payload, err := inc.Payload.Marshal()
	if err != nil {
		return false, fmt.Errorf("incident %s: %w", inc.ID, err)
	}

	start := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO incidents (id, system_id, payload) VALUES (?, ?, ?) ON CONFLICT (id) DO NOTHING`,
		inc.ID, inc.SystemID, string(payload))
	metrics.RecordDBQuery("insert", "incidents", time.Since(start), err)
	if err != nil {
		return false, fmt.Errorf("insert incident %s: %w", inc.ID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// TransmissionExists reports whether a transmission is stored.
func (db *DB) TransmissionExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx, `SELECT 1 FROM transmissions WHERE id = ?`, id).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("lookup transmission %s: %w", id, err)
	}
	return true, nil
}

// ListExpiredTransmissions returns the ids of transmissions of systemID that
// started at or before cutoff, oldest first.
func (db *DB) ListExpiredTransmissions(ctx context.Context, systemID int64, cutoff time.Time) ([]string, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id FROM transmissions WHERE system_id = ? AND start_time <= ? ORDER BY start_time`,
		systemID, cutoff.UTC())
	if err != nil {
		metrics.RecordDBQuery("select", "transmissions", time.Since(start), err)
		return nil, fmt.Errorf("list expired transmissions of system %d: %w", systemID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan transmission id: %w", err)
		}
		ids = append(ids, id)
	}
	err = rows.Err()
	metrics.RecordDBQuery("select", "transmissions", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list expired transmissions of system %d: %w", systemID, err)
	}
	return ids, nil
}

// DeleteTransmission removes a transmission and its children in one
// transaction: units, then frequencies, then the transmission itself.
func (db *DB) DeleteTransmission(ctx context.Context, id string) error {
	start := time.Now()
	err := db.deleteTransmission(ctx, id)
	metrics.RecordDBQuery("delete", "transmissions", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("delete transmission %s: %w", id, err)
	}
	return nil
}

func (db *DB) deleteTransmission(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer rollback(tx)

	for _, stmt := range []string{
		`DELETE FROM transmission_units WHERE transmission_id = ?`,
		`DELETE FROM transmission_frequencies WHERE transmission_id = ?`,
		`DELETE FROM transmissions WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}
