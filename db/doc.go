// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database schema creation.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

The schema includes:

  - election: Registered elections and lifecycle state
  - pending_request: Queued creation/modification/deletion requests
  - rejected_request: Archive of rejected requests (terminal state)
  - voter_list / voter: Named voter rosters with hashed secrets
  - candidate_list / candidate: Named candidate rosters
  - election_voter: Materialized voter snapshot per election
  - election_candidate: Materialized candidate snapshot with encrypted tally
  - ballot_audit: One audit row per cast ballot
  - archived_election: Sealed post-election records

# Relationships

	voter_list 1──* voter
	candidate_list 1──* candidate
	election 1──* election_voter
	election 1──* election_candidate
	election 1──* ballot_audit

Election-scoped foreign keys use ON DELETE CASCADE, so deleting an
election tears down its snapshots and audit entries in one statement.

# Constraints

The UNIQUE (election_id, voter_id) constraint on ballot_audit is the
double-vote guard: a second INSERT for the same voter fails with a
unique violation regardless of request interleaving.

election.name and archived_election.name are both UNIQUE, which keeps
an election name reserved even after the election is archived.

# Indexes

Performance indexes on:

  - election.name
  - election.(populated, start_time)
  - pending_request.(kind, election_id) (unique, open modifications)
  - pending_request.name (unique, pending creations)
  - ballot_audit.election_id
  - archived_election.name
*/
package db
