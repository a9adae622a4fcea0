// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3419)
  - DatabaseURL: PostgreSQL connection string (required)
  - TallySecret: Secret for the tally cipher key (required)
  - ReviewerKey: Reviewer capability key (required)
  - SubmitterKey: Submitter capability key (required)
  - RedisAddr: Redis address for codes and sessions (optional)
  - KafkaBrokers: Kafka broker list for notifications (optional)
  - KafkaTopic: Notification topic (default: election-notifications)
  - TickInterval: Roster materializer interval (default: 1m)
  - CodeTTL: One-time code expiry (default: 10m)
  - SessionTTL: Voting session expiry (default: 15m)

# CLI Flags

	-p, --port         Server port
	-d, --database-url Database URL
	--redis            Redis address
	--brokers          Kafka brokers (comma-separated)
	--topic            Kafka notification topic
	--tally-secret     Tally cipher secret (prefer env)
	--reviewer-key     Reviewer capability key (prefer env)
	--submitter-key    Submitter capability key (prefer env)
	--tick             Roster materializer interval
	--code-ttl         One-time code expiry
	--session-ttl      Voting session expiry

# Environment Variables

Flags fall back to environment variables:

	PORT           → -p
	DATABASE_URL   → -d
	REDIS_ADDR     → --redis
	KAFKA_BROKERS  → --brokers
	KAFKA_TOPIC    → --topic
	TALLY_SECRET   → --tally-secret
	REVIEWER_KEY   → --reviewer-key
	SUBMITTER_KEY  → --submitter-key
	TICK_INTERVAL  → --tick
	CODE_TTL       → --code-ttl
	SESSION_TTL    → --session-ttl

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if required values are missing:

  - DATABASE_URL must be provided
  - TALLY_SECRET must be provided
  - REVIEWER_KEY and SUBMITTER_KEY must be provided and must differ

# Example

	// In main.go
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	// ...
	mux := router.NewRouter(db, cfg, cipher, sessions, notifier)
*/
package cliparse
