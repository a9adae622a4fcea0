// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/safely-elect/auth"
	"github.com/danielhkuo/safely-elect/cliparse"
	"github.com/danielhkuo/safely-elect/middleware"
	"github.com/danielhkuo/safely-elect/models"
)

// RosterHandler manages the named voter and candidate lists that elections
// reference. Voter secrets are hashed at intake; plaintext never touches
// the database.
type RosterHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewRosterHandler(db *sql.DB, cfg cliparse.Config) *RosterHandler {
	return &RosterHandler{db: db, cfg: cfg}
}

func (h *RosterHandler) authorize(w http.ResponseWriter, r *http.Request) bool {
	_, err := auth.ResolveCapability(r.Header.Get("X-Admin-Key"), h.cfg.ReviewerKey, h.cfg.SubmitterKey)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return false
	}
	return true
}

// CreateVoterList handles PUT /rosters/voters/{name}.
// A repeat PUT replaces the list's membership wholesale.
func (h *RosterHandler) CreateVoterList(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	listName := r.PathValue("name")
	if listName == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "list name is required")
		return
	}

	var req models.CreateVoterListRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Voters) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "at least one voter is required")
		return
	}

	seen := make(map[string]bool, len(req.Voters))
	for i := range req.Voters {
		v := &req.Voters[i]
		if v.VoterID == "" || v.Name == "" || v.Secret == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "voter_id, name, and secret are required for every voter")
			return
		}
		if seen[v.VoterID] {
			middleware.ErrorResponse(w, http.StatusBadRequest, "duplicate voter_id in list: "+v.VoterID)
			return
		}
		seen[v.VoterID] = true
	}

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(r.Context(), `
		INSERT INTO voter_list (name, created_at) VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
	`, listName, time.Now())
	if err != nil {
		slog.Error("failed to create voter list", "list", listName, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create voter list")
		return
	}

	if _, err := tx.ExecContext(r.Context(), `DELETE FROM voter WHERE list_name = $1`, listName); err != nil {
		slog.Error("failed to clear voter list", "list", listName, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to replace voter list")
		return
	}

	for i := range req.Voters {
		v := &req.Voters[i]
		secretHash, err := auth.HashSecret(v.Secret)
		if err != nil {
			slog.Error("failed to hash voter secret", "list", listName, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to store voter list")
			return
		}

		_, err = tx.ExecContext(r.Context(), `
			INSERT INTO voter (list_name, voter_id, name, email, address, age, secret_hash)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, listName, v.VoterID, v.Name, v.Email, v.Address, v.Age, secretHash)
		if err != nil {
			slog.Error("failed to insert voter", "list", listName, "voter_id", v.VoterID, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to store voter list")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit voter list", "list", listName, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to store voter list")
		return
	}

	slog.Info("voter list stored", "list", listName, "voters", len(req.Voters))
	middleware.JSONResponse(w, http.StatusOK, map[string]int{"voters": len(req.Voters)})
}

// CreateCandidateList handles PUT /rosters/candidates/{name}
func (h *RosterHandler) CreateCandidateList(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	listName := r.PathValue("name")
	if listName == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "list name is required")
		return
	}

	var req models.CreateCandidateListRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Candidates) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "at least one candidate is required")
		return
	}

	seen := make(map[string]bool, len(req.Candidates))
	for i := range req.Candidates {
		c := &req.Candidates[i]
		if c.CandidateID == "" || c.Name == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "candidate_id and name are required for every candidate")
			return
		}
		if c.CandidateID == models.AbstainCandidateID {
			middleware.ErrorResponse(w, http.StatusBadRequest, "candidate_id is reserved: "+models.AbstainCandidateID)
			return
		}
		if seen[c.CandidateID] {
			middleware.ErrorResponse(w, http.StatusBadRequest, "duplicate candidate_id in list: "+c.CandidateID)
			return
		}
		seen[c.CandidateID] = true
	}

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(r.Context(), `
		INSERT INTO candidate_list (name, created_at) VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
	`, listName, time.Now())
	if err != nil {
		slog.Error("failed to create candidate list", "list", listName, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create candidate list")
		return
	}

	if _, err := tx.ExecContext(r.Context(), `DELETE FROM candidate WHERE list_name = $1`, listName); err != nil {
		slog.Error("failed to clear candidate list", "list", listName, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to replace candidate list")
		return
	}

	for i := range req.Candidates {
		c := &req.Candidates[i]
		_, err = tx.ExecContext(r.Context(), `
			INSERT INTO candidate (list_name, candidate_id, name, party, description)
			VALUES ($1, $2, $3, $4, $5)
		`, listName, c.CandidateID, c.Name, c.Party, c.Description)
		if err != nil {
			slog.Error("failed to insert candidate", "list", listName, "candidate_id", c.CandidateID, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to store candidate list")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit candidate list", "list", listName, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to store candidate list")
		return
	}

	slog.Info("candidate list stored", "list", listName, "candidates", len(req.Candidates))
	middleware.JSONResponse(w, http.StatusOK, map[string]int{"candidates": len(req.Candidates)})
}

// ListVoterLists handles GET /rosters/voters
func (h *RosterHandler) ListVoterLists(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	h.listNames(w, r, "voter_list")
}

// ListCandidateLists handles GET /rosters/candidates
func (h *RosterHandler) ListCandidateLists(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	h.listNames(w, r, "candidate_list")
}

func (h *RosterHandler) listNames(w http.ResponseWriter, r *http.Request, table string) {
	// table is one of two compile-time constants, never caller input.
	rows, err := h.db.QueryContext(r.Context(), `SELECT name FROM `+table+` ORDER BY name`)
	if err != nil {
		slog.Error("failed to list rosters", "table", table, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			slog.Error("failed to scan roster name", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate rosters", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, map[string][]string{"lists": names})
}
