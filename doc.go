// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Safely Elect API server.

Safely Elect is an election lifecycle service with dual-control change
review, roster-driven voter/candidate materialization, one-time-code voter
authentication, and encrypted running tallies.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=postgres://... go run main.go

Or with flags:

	go run main.go -p 3419 -d "postgres://..."

# Configuration

Required settings:

  - DATABASE_URL (-d): PostgreSQL connection string
  - TALLY_SECRET (--tally-secret): Secret for the tally cipher key
  - REVIEWER_KEY (--reviewer-key): Reviewer capability key
  - SUBMITTER_KEY (--submitter-key): Submitter capability key

Optional settings:

  - PORT (-p): Server port (default: 3419)
  - REDIS_ADDR (--redis): Redis address for codes and sessions
  - KAFKA_BROKERS (--brokers): Comma-separated Kafka brokers
  - KAFKA_TOPIC (--topic): Notification topic (default: election-notifications)
  - TICK_INTERVAL (--tick): Roster materializer interval (default: 1m)
  - CODE_TTL (--code-ttl): One-time code expiry (default: 10m)
  - SESSION_TTL (--session-ttl): Voting session expiry (default: 15m)

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (registry, rosters, voting, results)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - models: Request/response types
  - auth: Capability resolution, secret hashing, token generation
  - tally: Encrypted vote counters
  - session: One-time codes and voting sessions
  - notify: Lifecycle event publication
  - scheduler: Roster materializer background loop
  - db: Schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
