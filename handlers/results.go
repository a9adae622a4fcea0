// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/safely-elect/auth"
	"github.com/danielhkuo/safely-elect/cliparse"
	"github.com/danielhkuo/safely-elect/middleware"
	"github.com/danielhkuo/safely-elect/models"
	"github.com/danielhkuo/safely-elect/tally"
)

// ResultsHandler decrypts tallies after the voting window closes, reconciles
// them against the ballot audit, picks the winner, and archives finished
// elections.
type ResultsHandler struct {
	db     *sql.DB
	cfg    cliparse.Config
	cipher *tally.Cipher
}

func NewResultsHandler(db *sql.DB, cfg cliparse.Config, cipher *tally.Cipher) *ResultsHandler {
	return &ResultsHandler{db: db, cfg: cfg, cipher: cipher}
}

func (h *ResultsHandler) authorize(w http.ResponseWriter, r *http.Request) (auth.Capability, bool) {
	capability, err := auth.ResolveCapability(r.Header.Get("X-Admin-Key"), h.cfg.ReviewerKey, h.cfg.SubmitterKey)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return "", false
	}
	return capability, true
}

// winnerRand seeds the tie-break draw from the election id, so repeated
// result reads agree on the same winner without persisting the draw.
func winnerRand(electionID string) *rand.Rand {
	sum := sha256.Sum256([]byte("winner-draw:" + electionID))
	seed := int64(binary.BigEndian.Uint64(sum[:8]))
	return rand.New(rand.NewSource(seed))
}

// GetResults handles GET /elections/{id}/results
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r); !ok {
		return
	}

	electionID := r.PathValue("id")
	if !h.requireEnded(w, r, electionID) {
		return
	}

	results, err := h.computeResults(r.Context(), electionID)
	if err != nil {
		h.writeComputeError(w, electionID, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, results)
}

// PublishResults handles POST /elections/{id}/publish.
// The flag flips exactly once; a second publish is a conflict, not a no-op.
func (h *ResultsHandler) PublishResults(w http.ResponseWriter, r *http.Request) {
	capability, ok := h.authorize(w, r)
	if !ok {
		return
	}
	if capability != auth.CapabilityReviewer {
		middleware.ErrorResponse(w, http.StatusForbidden, "Reviewer capability required")
		return
	}

	electionID := r.PathValue("id")
	if !h.requireEnded(w, r, electionID) {
		return
	}

	res, err := h.db.ExecContext(r.Context(), `
		UPDATE election SET result_published = TRUE
		WHERE id = $1 AND result_published = FALSE
	`, electionID)
	if err != nil {
		slog.Error("failed to publish results", "election_id", electionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if affected, err := res.RowsAffected(); err != nil || affected == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "Results already published")
		return
	}

	slog.Info("results published", "election_id", electionID)
	middleware.JSONResponse(w, http.StatusOK, map[string]bool{"published": true})
}

// Archive handles POST /elections/{id}/archive.
//
// Archival is terminal: the summary document moves to the archive table and
// the live election (snapshots, audit entries) is removed in the same
// transaction. The name stays reserved forever.
func (h *ResultsHandler) Archive(w http.ResponseWriter, r *http.Request) {
	capability, ok := h.authorize(w, r)
	if !ok {
		return
	}
	if capability != auth.CapabilityReviewer {
		middleware.ErrorResponse(w, http.StatusForbidden, "Reviewer capability required")
		return
	}

	electionID := r.PathValue("id")
	if !h.requireEnded(w, r, electionID) {
		return
	}

	var name, createdBy string
	var startTime, endTime time.Time
	err := h.db.QueryRowContext(r.Context(), `
		SELECT name, created_by, start_time, end_time FROM election WHERE id = $1
	`, electionID).Scan(&name, &createdBy, &startTime, &endTime)
	if err != nil {
		slog.Error("failed to load election for archive", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	results, err := h.computeResults(r.Context(), electionID)
	if err != nil {
		h.writeComputeError(w, electionID, err)
		return
	}

	voted, notVoted, err := h.participation(r.Context(), electionID)
	if err != nil {
		slog.Error("failed to collect participation", "election_id", electionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	payload, err := json.Marshal(models.ArchivePayload{
		CreatedBy:  createdBy,
		StartTime:  startTime,
		EndTime:    endTime,
		Voted:      voted,
		NotVoted:   notVoted,
		Candidates: results.Candidates,
		Winner:     results.Winner,
		IsTie:      results.IsTie,
	})
	if err != nil {
		slog.Error("failed to encode archive payload", "election_id", electionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to archive election")
		return
	}

	rec := models.ArchivedElection{
		ID:         uuid.NewString(),
		ElectionID: electionID,
		Name:       name,
		ArchivedAt: time.Now(),
		Payload:    payload,
	}

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(r.Context(), `
		INSERT INTO archived_election (id, election_id, name, payload, archived_at)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.ID, rec.ElectionID, rec.Name, rec.Payload, rec.ArchivedAt)
	if err != nil {
		slog.Error("failed to insert archive", "election_id", electionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to archive election")
		return
	}

	// Snapshots, tallies, and audit entries go with the election row.
	res, err := tx.ExecContext(r.Context(), `DELETE FROM election WHERE id = $1`, electionID)
	if err != nil {
		slog.Error("failed to delete archived election", "election_id", electionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to archive election")
		return
	}
	if affected, err := res.RowsAffected(); err != nil || affected == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "Election already archived")
		return
	}

	if _, err := tx.ExecContext(r.Context(), `
		DELETE FROM pending_request WHERE election_id = $1
	`, electionID); err != nil {
		slog.Error("failed to clean up requests for archived election", "election_id", electionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to archive election")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit archive", "election_id", electionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to archive election")
		return
	}

	slog.Info("election archived", "election_id", electionID, "name", name, "archive_id", rec.ID)
	middleware.JSONResponse(w, http.StatusOK, models.ArchiveResponse{ArchiveID: rec.ID, ArchivedAt: rec.ArchivedAt})
}

// GetArchive handles GET /archives/{name}
func (h *ResultsHandler) GetArchive(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r); !ok {
		return
	}

	name := r.PathValue("name")

	rec := models.ArchivedElection{Name: name}
	err := h.db.QueryRowContext(r.Context(), `
		SELECT id, election_id, payload, archived_at FROM archived_election WHERE name = $1
	`, name).Scan(&rec.ID, &rec.ElectionID, &rec.Payload, &rec.ArchivedAt)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Archive not found")
		return
	}
	if err != nil {
		slog.Error("failed to query archive", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var doc models.ArchivePayload
	if err := json.Unmarshal(rec.Payload, &doc); err != nil {
		slog.Error("corrupt archive payload", "archive_id", rec.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Corrupt archive")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, map[string]interface{}{
		"archive_id":  rec.ID,
		"election_id": rec.ElectionID,
		"name":        rec.Name,
		"archived_at": rec.ArchivedAt,
		"summary":     doc,
	})
}

// requireEnded admits only populated elections whose window has closed. The
// 409 for an already-archived election is distinguished from a plain 404 so
// an archive retry fails cleanly.
func (h *ResultsHandler) requireEnded(w http.ResponseWriter, r *http.Request, electionID string) bool {
	var endTime time.Time
	var populated bool
	err := h.db.QueryRowContext(r.Context(), `
		SELECT end_time, populated FROM election WHERE id = $1
	`, electionID).Scan(&endTime, &populated)
	if err == sql.ErrNoRows {
		var archived bool
		if err := h.db.QueryRowContext(r.Context(), `
			SELECT EXISTS(SELECT 1 FROM archived_election WHERE election_id = $1)
		`, electionID).Scan(&archived); err != nil {
			slog.Error("failed to check archive", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return false
		}
		if archived {
			middleware.ErrorResponse(w, http.StatusConflict, "Election already archived")
			return false
		}
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return false
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return false
	}

	if !populated {
		middleware.ErrorResponse(w, http.StatusConflict, "Election was never opened for voting")
		return false
	}
	if time.Now().Before(endTime) {
		middleware.ErrorResponse(w, http.StatusForbidden, "Voting is still open")
		return false
	}

	return true
}

// errTallyMismatch reports a reconciliation failure between the ballot audit
// and the decrypted counts.
var errTallyMismatch = errors.New("ballot audit does not reconcile with tallies")

// computeResults decrypts every candidate tally, reconciles the total
// against the ballot audit, and applies the winner draw.
func (h *ResultsHandler) computeResults(ctx context.Context, electionID string) (*models.ElectionResults, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT candidate_id, name, party, tally FROM election_candidate
		WHERE election_id = $1
		ORDER BY candidate_id
	`, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []models.CandidateResult
	var total uint64
	for rows.Next() {
		sc := models.SnapshotCandidate{ElectionID: electionID}
		if err := rows.Scan(&sc.CandidateID, &sc.Name, &sc.Party, &sc.Tally); err != nil {
			return nil, err
		}
		count, err := h.cipher.Decrypt(sc.Tally)
		if err != nil {
			return nil, err
		}
		total += count
		candidates = append(candidates, models.CandidateResult{
			CandidateID: sc.CandidateID,
			Name:        sc.Name,
			Party:       sc.Party,
			Votes:       count,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var audited uint64
	if err := h.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ballot_audit WHERE election_id = $1
	`, electionID).Scan(&audited); err != nil {
		return nil, err
	}
	if audited != total {
		slog.Error("tally reconciliation failed",
			"election_id", electionID, "audit_entries", audited, "tally_sum", total)
		return nil, errTallyMismatch
	}

	winner, isTie := pickWinner(candidates, winnerRand(electionID))

	return &models.ElectionResults{
		ElectionID: electionID,
		Candidates: candidates,
		Winner:     winner,
		IsTie:      isTie,
	}, nil
}

func (h *ResultsHandler) writeComputeError(w http.ResponseWriter, electionID string, err error) {
	switch {
	case errors.Is(err, tally.ErrCorruptTally):
		slog.Error("corrupt tally detected", "election_id", electionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Tally integrity check failed")
	case errors.Is(err, errTallyMismatch):
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Ballot audit does not reconcile with tallies")
	default:
		slog.Error("failed to compute results", "election_id", electionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to compute results")
	}
}

// participation splits the frozen voter snapshot by has_voted.
func (h *ResultsHandler) participation(ctx context.Context, electionID string) (voted, notVoted []string, err error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT voter_id, has_voted FROM election_voter
		WHERE election_id = $1
		ORDER BY voter_id
	`, electionID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	voted, notVoted = []string{}, []string{}
	for rows.Next() {
		sv := models.SnapshotVoter{ElectionID: electionID}
		if err := rows.Scan(&sv.VoterID, &sv.HasVoted); err != nil {
			return nil, nil, err
		}
		if sv.HasVoted {
			voted = append(voted, sv.VoterID)
		} else {
			notVoted = append(notVoted, sv.VoterID)
		}
	}
	return voted, notVoted, rows.Err()
}
