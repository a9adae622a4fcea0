// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/safely-elect/cliparse"
	"github.com/danielhkuo/safely-elect/handlers"
	"github.com/danielhkuo/safely-elect/middleware"
	"github.com/danielhkuo/safely-elect/notify"
	"github.com/danielhkuo/safely-elect/session"
	"github.com/danielhkuo/safely-elect/tally"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, cipher *tally.Cipher, sessions session.Store, notifier notify.Notifier) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	registryHandler := handlers.NewRegistryHandler(db, cfg, notifier)
	rosterHandler := handlers.NewRosterHandler(db, cfg)
	votingHandler := handlers.NewVotingHandler(db, cipher, sessions, notifier)
	resultsHandler := handlers.NewResultsHandler(db, cfg, cipher)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Registry review queue (admin operations)
	mux.HandleFunc("POST /registry/creations", middleware.WithLogging(registryHandler.ProposeCreation))
	mux.HandleFunc("PUT /registry/creations/{id}/approve", middleware.WithLogging(registryHandler.ApproveCreation))
	mux.HandleFunc("POST /registry/creations/{id}/reject", middleware.WithLogging(registryHandler.RejectCreation))
	mux.HandleFunc("POST /registry/modifications", middleware.WithLogging(registryHandler.ProposeModification))
	mux.HandleFunc("PUT /registry/modifications/{id}/approve", middleware.WithLogging(registryHandler.ApproveModification))
	mux.HandleFunc("POST /registry/modifications/{id}/reject", middleware.WithLogging(registryHandler.RejectModification))
	mux.HandleFunc("POST /registry/deletions", middleware.WithLogging(registryHandler.ProposeDeletion))
	mux.HandleFunc("PUT /registry/deletions/{id}/approve", middleware.WithLogging(registryHandler.ApproveDeletion))
	mux.HandleFunc("POST /registry/deletions/{id}/reject", middleware.WithLogging(registryHandler.RejectDeletion))

	// Election records (admin operations)
	mux.HandleFunc("GET /elections/{id}", middleware.WithLogging(registryHandler.GetElection))
	mux.HandleFunc("DELETE /elections/{id}", middleware.WithLogging(registryHandler.DeleteElection))
	mux.HandleFunc("POST /elections/verify-name", middleware.WithLogging(registryHandler.VerifyName))

	// Rosters (admin operations)
	mux.HandleFunc("PUT /rosters/voters/{name}", middleware.WithLogging(rosterHandler.CreateVoterList))
	mux.HandleFunc("GET /rosters/voters", middleware.WithLogging(rosterHandler.ListVoterLists))
	mux.HandleFunc("PUT /rosters/candidates/{name}", middleware.WithLogging(rosterHandler.CreateCandidateList))
	mux.HandleFunc("GET /rosters/candidates", middleware.WithLogging(rosterHandler.ListCandidateLists))

	// Voting flow (voter-facing)
	mux.HandleFunc("POST /elections/{id}/login", middleware.WithLogging(votingHandler.Login))
	mux.HandleFunc("POST /elections/{id}/verify-code", middleware.WithLogging(votingHandler.VerifyCode))
	mux.HandleFunc("POST /elections/{id}/vote", middleware.WithLogging(votingHandler.CastVote))
	mux.HandleFunc("GET /elections/{id}/candidates", middleware.WithLogging(votingHandler.ListCandidates))

	// Results and archival
	mux.HandleFunc("GET /elections/{id}/results", middleware.WithLogging(resultsHandler.GetResults))
	mux.HandleFunc("POST /elections/{id}/publish", middleware.WithLogging(resultsHandler.PublishResults))
	mux.HandleFunc("POST /elections/{id}/archive", middleware.WithLogging(resultsHandler.Archive))
	mux.HandleFunc("GET /archives/{name}", middleware.WithLogging(resultsHandler.GetArchive))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("safely-elect API v1"))
	})

	return mux
}
