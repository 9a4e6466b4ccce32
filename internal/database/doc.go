// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

/*
Package database provides DuckDB persistence for Trunkcast.

It stores the destination registries (systems, recorders, forwarders and MQTT
targets) read by the coordinator on every dispatch, and the transmissions and
incidents accepted by the ingestion API.

Transmissions own unit and frequency rows. DuckDB foreign keys do not cascade,
so DeleteTransmission removes the children explicitly and in order inside a
single transaction; either everything is removed or nothing is.

Usage:

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := db.SeedRegistry(ctx, &cfg.Registry); err != nil {
		...
	}
*/
package database
