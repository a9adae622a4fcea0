// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Safely Elect API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - RegistryHandler: Election change review (propose, approve, reject)
  - RosterHandler: Voter and candidate list management
  - VotingHandler: Voter login, code verification, ballot casting
  - ResultsHandler: Result computation and archival

Handlers are created via constructor functions:

	registryHandler := handlers.NewRegistryHandler(db, cfg, notifier)
	votingHandler := handlers.NewVotingHandler(db, cipher, sessions, notifier)

# Change Review

Every change to the election registry is a request that a reviewer must
approve before it takes effect:

	POST /registry/creations               → ProposeCreation
	PUT  /registry/creations/{id}/approve  → ApproveCreation
	POST /registry/creations/{id}/reject   → RejectCreation

Modifications and deletions follow the same trio. Requests from a
reviewer skip the queue and apply immediately. All registry operations
require X-Admin-Key and X-Actor headers.

# Voting Flow

Voters authenticate per election with a one-time code:

	POST /elections/{id}/login       → Login (code sent by notification)
	POST /elections/{id}/verify-code → VerifyCode (returns session token)
	POST /elections/{id}/vote        → CastVote (X-Session-Token header)

CastVote inserts the ballot audit row first; a unique violation on
(election_id, voter_id) maps to 409 Conflict. The response carries an
integrity hash receipt, never the stored choice.

# Tallies and Results

Per-candidate counts live only as encrypted tokens in the election
snapshot. CastVote increments a tally with a compare-and-swap loop;
GetResults decrypts every tally, reconciles the sum against the audit
count, and picks a winner with a deterministic per-election tie draw
(winner.go). Ended elections can be published and sealed:

	GET  /elections/{id}/results → GetResults
	POST /elections/{id}/publish → PublishResults
	POST /elections/{id}/archive → Archive
	GET  /archives/{name}        → GetArchive
*/
package handlers
