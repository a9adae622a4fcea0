// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Safely Elect API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg, cipher, sessions, notifier)

# Endpoints

Health:

	GET /health

Change review (requires X-Admin-Key and X-Actor):

	POST /registry/creations                   - Propose an election
	PUT  /registry/creations/{id}/approve      - Approve a creation
	POST /registry/creations/{id}/reject       - Reject a creation
	POST /registry/modifications               - Propose a modification
	PUT  /registry/modifications/{id}/approve  - Approve a modification
	POST /registry/modifications/{id}/reject   - Reject a modification
	POST /registry/deletions                   - Propose a deletion
	PUT  /registry/deletions/{id}/approve      - Approve a deletion
	POST /registry/deletions/{id}/reject       - Reject a deletion

Elections:

	GET    /elections/{id}       - Election details (admin)
	DELETE /elections/{id}       - Direct delete (reviewer only)
	POST   /elections/verify-name - Name availability check

Rosters (requires X-Admin-Key and X-Actor):

	PUT /rosters/voters/{name}     - Replace a voter list
	GET /rosters/voters            - List voter list names
	PUT /rosters/candidates/{name} - Replace a candidate list
	GET /rosters/candidates        - List candidate list names

Voting (voter-facing):

	POST /elections/{id}/login       - Request a one-time code
	POST /elections/{id}/verify-code - Exchange code for session token
	POST /elections/{id}/vote        - Cast a ballot (X-Session-Token)
	GET  /elections/{id}/candidates  - Public candidate list

Results and archival:

	GET  /elections/{id}/results - Computed results (ended elections)
	POST /elections/{id}/publish - Mark results published (reviewer only)
	POST /elections/{id}/archive - Seal an ended election (reviewer only)
	GET  /archives/{name}        - Archived election summary

# Handler Initialization

The router creates handler instances with dependency injection:

	registryHandler := handlers.NewRegistryHandler(db, cfg, notifier)
	rosterHandler := handlers.NewRosterHandler(db, cfg)
	votingHandler := handlers.NewVotingHandler(db, cipher, sessions, notifier)
	resultsHandler := handlers.NewResultsHandler(db, cfg, cipher)

All routes are wrapped with request logging.
*/
package router
