// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Live elections. A row exists only for approved elections; name uniqueness
-- against pending and archived names is enforced by the registry.
CREATE TABLE IF NOT EXISTS election (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    created_by TEXT NOT NULL,
    approved_by TEXT,
    voter_lists JSONB NOT NULL,
    candidate_lists JSONB NOT NULL,
    start_time TIMESTAMPTZ NOT NULL,
    end_time TIMESTAMPTZ NOT NULL,
    populated BOOLEAN NOT NULL DEFAULT FALSE,
    result_published BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (end_time > start_time)
);

CREATE INDEX IF NOT EXISTS idx_election_name ON election(name);
CREATE INDEX IF NOT EXISTS idx_election_populated ON election(populated, start_time);

-- Registry review queue. One table for creation, modification, and deletion
-- requests; payload holds the draft, patch, or reason depending on kind.
-- The partial unique index keeps at most one open modification or deletion
-- request per election (a second proposal replaces the first).
CREATE TABLE IF NOT EXISTS pending_request (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL CHECK (kind IN ('creation', 'modification', 'deletion')),
    election_id TEXT,
    name TEXT,
    payload JSONB NOT NULL,
    requested_by TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_pending_request_target
    ON pending_request(kind, election_id) WHERE election_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_pending_request_name
    ON pending_request(name) WHERE kind = 'creation';

-- Terminal archive of rejected requests. Never mutated.
CREATE TABLE IF NOT EXISTS rejected_request (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    payload JSONB NOT NULL,
    requested_by TEXT NOT NULL,
    rejected_by TEXT NOT NULL,
    reason TEXT NOT NULL,
    rejected_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Reusable named rosters.
CREATE TABLE IF NOT EXISTS voter_list (
    name TEXT PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS voter (
    list_name TEXT NOT NULL REFERENCES voter_list(name) ON DELETE CASCADE,
    voter_id TEXT NOT NULL,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    address TEXT,
    age INT,
    secret_hash TEXT NOT NULL,
    PRIMARY KEY (list_name, voter_id)
);

CREATE TABLE IF NOT EXISTS candidate_list (
    name TEXT PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS candidate (
    list_name TEXT NOT NULL REFERENCES candidate_list(name) ON DELETE CASCADE,
    candidate_id TEXT NOT NULL,
    name TEXT NOT NULL,
    party TEXT,
    description TEXT,
    PRIMARY KEY (list_name, candidate_id)
);

-- Frozen per-election voter snapshot. Written once by the materializer;
-- has_voted flips false -> true exactly once via the ballot box.
CREATE TABLE IF NOT EXISTS election_voter (
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    voter_id TEXT NOT NULL,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    secret_hash TEXT NOT NULL,
    has_voted BOOLEAN NOT NULL DEFAULT FALSE,
    PRIMARY KEY (election_id, voter_id)
);

-- Frozen per-election candidate snapshot. tally is the encrypted count.
CREATE TABLE IF NOT EXISTS election_candidate (
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    candidate_id TEXT NOT NULL,
    name TEXT NOT NULL,
    party TEXT,
    tally BYTEA NOT NULL,
    PRIMARY KEY (election_id, candidate_id)
);

-- Ballot audit entries. The UNIQUE (election_id, voter_id) constraint is the
-- authoritative double-vote guard; the has_voted snapshot flag is advisory.
CREATE TABLE IF NOT EXISTS ballot_audit (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    voter_id TEXT NOT NULL,
    integrity_hash TEXT NOT NULL,
    cast_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (election_id, voter_id)
);

CREATE INDEX IF NOT EXISTS idx_ballot_audit_election ON ballot_audit(election_id);

-- Immutable archive written by the result engine when an election is torn
-- down. election_id is unique so a finished election archives exactly once.
CREATE TABLE IF NOT EXISTS archived_election (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL UNIQUE,
    archived_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    payload JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_archived_election_name ON archived_election(name);
`
