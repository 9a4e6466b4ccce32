// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

/*
Package config loads and validates the Trunkcast configuration.

Configuration is assembled by koanf in layers, each overriding the previous:

 1. Built-in defaults (see defaultConfig)
 2. A YAML file from CONFIG_PATH or one of DefaultConfigPaths
 3. Environment variables listed in envMappings

Example config.yaml:

	server:
	  port: 3860
	  allowed_origins: ["https://scanner.example.org"]
	delivery:
	  transport: nats
	  dedup:
	    enabled: true
	registry:
	  systems:
	    - id: 1
	      name: county
	      prune_enabled: true
	      prune_after: 720h
	  forwarders:
	    - id: 1
	      name: upstream
	      url: https://peer.example.org
	      key: recorder-key
	      enabled: true
	      systems: [1]

Common environment variables:
  - HTTP_PORT, ALLOWED_ORIGINS (comma-separated)
  - LOG_LEVEL, LOG_FORMAT
  - DATABASE_PATH
  - NATS_EMBEDDED, NATS_URL, NATS_STORE_DIR, MQTT_ENABLED, MQTT_PORT
  - DELIVERY_TRANSPORT, DELIVERY_RETRIES, DEDUP_ENABLED
  - FORWARD_TIMEOUT, PRUNE_SCHEDULE, INGEST_API_KEY

Registry entries (systems, forwarders, mqtt_targets, recorders) can only be
seeded from the file. They are upserted into the database at startup.
*/
package config
