// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/danielhkuo/safely-elect/auth"
	"github.com/danielhkuo/safely-elect/middleware"
	"github.com/danielhkuo/safely-elect/models"
	"github.com/danielhkuo/safely-elect/notify"
	"github.com/danielhkuo/safely-elect/session"
	"github.com/danielhkuo/safely-elect/tally"
)

// uniqueViolation is the Postgres error code raised when the ballot audit's
// one-row-per-voter constraint blocks a second insert.
const uniqueViolation = "23505"

// tallyRetryLimit bounds the compare-and-swap loop on an encrypted tally.
// Contention resolves in a round or two; hitting the limit means something
// is systematically wrong.
const tallyRetryLimit = 32

// VotingHandler runs the voter-facing flow: credential login, one-time code
// verification, and ballot casting against the frozen per-election snapshot.
type VotingHandler struct {
	db       *sql.DB
	cipher   *tally.Cipher
	sessions session.Store
	notifier notify.Notifier
}

func NewVotingHandler(db *sql.DB, cipher *tally.Cipher, sessions session.Store, notifier notify.Notifier) *VotingHandler {
	return &VotingHandler{db: db, cipher: cipher, sessions: sessions, notifier: notifier}
}

// openElection loads an election only if it is populated and inside its
// voting window. The two failure modes get distinct statuses so a voter can
// tell "come back later" from "it's over".
func (h *VotingHandler) openElection(w http.ResponseWriter, r *http.Request, electionID string) (string, bool) {
	var name string
	var startTime, endTime time.Time
	var populated bool
	err := h.db.QueryRowContext(r.Context(), `
		SELECT name, start_time, end_time, populated FROM election WHERE id = $1
	`, electionID).Scan(&name, &startTime, &endTime, &populated)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return "", false
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return "", false
	}

	now := time.Now()
	if !populated || now.Before(startTime) {
		middleware.ErrorResponse(w, http.StatusForbidden, "Voting has not opened yet")
		return "", false
	}
	if !now.Before(endTime) {
		middleware.ErrorResponse(w, http.StatusForbidden, "Voting has closed")
		return "", false
	}

	return name, true
}

// Login handles POST /elections/{id}/login.
// Unknown voter and wrong secret return the same 401 so the roster cannot
// be enumerated.
func (h *VotingHandler) Login(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")

	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.VoterID == "" || req.Secret == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "voter_id and secret are required")
		return
	}

	electionName, ok := h.openElection(w, r, electionID)
	if !ok {
		return
	}

	var name, email, secretHash string
	var hasVoted bool
	err := h.db.QueryRowContext(r.Context(), `
		SELECT name, email, secret_hash, has_voted
		FROM election_voter
		WHERE election_id = $1 AND voter_id = $2
	`, electionID, req.VoterID).Scan(&name, &email, &secretHash, &hasVoted)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		slog.Error("failed to query voter", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := auth.CompareSecret(secretHash, req.Secret); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if hasVoted {
		middleware.ErrorResponse(w, http.StatusConflict, "Ballot already cast in this election")
		return
	}

	code, err := auth.GenerateCode()
	if err != nil {
		slog.Error("failed to generate one-time code", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to issue code")
		return
	}

	if err := h.sessions.PutCode(r.Context(), electionID, req.VoterID, code); err != nil {
		slog.Error("failed to store one-time code", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to issue code")
		return
	}

	// The code reaches the voter out of band; it is never echoed in the
	// HTTP response.
	if err := h.notifier.Publish(r.Context(), notify.Event{
		Kind:         notify.KindLoginCode,
		ElectionID:   electionID,
		ElectionName: electionName,
		VoterID:      req.VoterID,
		Email:        email,
		Code:         code,
		OccurredAt:   time.Now(),
	}); err != nil {
		slog.Error("failed to publish login code", "election_id", electionID, "error", err)
	}

	slog.Info("login code issued", "election_id", electionID, "voter_id", req.VoterID, "ip", middleware.GetClientIP(r))
	middleware.JSONResponse(w, http.StatusOK, models.LoginResponse{Success: true, RequiresCode: true})
}

// VerifyCode handles POST /elections/{id}/verify-code.
// A correct code verifies exactly once; the session it mints is scoped to
// this election.
func (h *VotingHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")

	var req models.VerifyCodeRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.VoterID == "" || req.Code == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "voter_id and code are required")
		return
	}

	if _, ok := h.openElection(w, r, electionID); !ok {
		return
	}

	if err := h.sessions.ConsumeCode(r.Context(), electionID, req.VoterID, req.Code); err != nil {
		if errors.Is(err, session.ErrCodeInvalid) {
			middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired code")
			return
		}
		slog.Error("failed to consume one-time code", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to verify code")
		return
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		slog.Error("failed to generate session token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	if err := h.sessions.PutSession(r.Context(), token, session.Session{
		VoterID:    req.VoterID,
		ElectionID: electionID,
	}); err != nil {
		slog.Error("failed to store session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	slog.Info("voting session created", "election_id", electionID, "voter_id", req.VoterID)
	middleware.JSONResponse(w, http.StatusOK, models.VerifyCodeResponse{Success: true, Session: token})
}

// CastVote handles POST /elections/{id}/vote.
//
// The audit insert goes first: its unique constraint on (election, voter) is
// the single authority on double voting, so two racing requests cannot both
// reach the tally. The choice itself is folded into the integrity hash and
// never stored in clear.
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")

	token := r.Header.Get("X-Session-Token")
	if token == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Session token required")
		return
	}

	sess, err := h.sessions.GetSession(r.Context(), token)
	if err != nil {
		if errors.Is(err, session.ErrSessionInvalid) {
			middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}
		slog.Error("failed to load session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to verify session")
		return
	}
	if sess.ElectionID != electionID {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Session does not match this election")
		return
	}

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.CandidateID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "candidate_id is required")
		return
	}

	if _, ok := h.openElection(w, r, electionID); !ok {
		return
	}

	var inSnapshot bool
	err = h.db.QueryRowContext(r.Context(), `
		SELECT EXISTS(
			SELECT 1 FROM election_candidate
			WHERE election_id = $1 AND candidate_id = $2
		)
	`, electionID, req.CandidateID).Scan(&inSnapshot)
	if err != nil {
		slog.Error("failed to check candidate", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !inSnapshot {
		middleware.ErrorResponse(w, http.StatusNotFound, "Candidate is not on this ballot")
		return
	}

	castAt := time.Now().UTC()
	audit := models.BallotAudit{
		ID:            uuid.NewString(),
		ElectionID:    electionID,
		VoterID:       sess.VoterID,
		IntegrityHash: auth.IntegrityHash(electionID, req.CandidateID, sess.VoterID, castAt),
		CastAt:        castAt,
	}

	_, err = h.db.ExecContext(r.Context(), `
		INSERT INTO ballot_audit (id, election_id, voter_id, integrity_hash, cast_at)
		VALUES ($1, $2, $3, $4, $5)
	`, audit.ID, audit.ElectionID, audit.VoterID, audit.IntegrityHash, audit.CastAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			middleware.ErrorResponse(w, http.StatusConflict, "Ballot already cast in this election")
			return
		}
		slog.Error("failed to record ballot audit", "election_id", electionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to cast ballot")
		return
	}

	if err := h.incrementTally(r, electionID, req.CandidateID); err != nil {
		// The audit row stands, so the voter cannot retry into a double
		// count; the discrepancy surfaces at result time.
		slog.Error("failed to increment tally after audit", "election_id", electionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to cast ballot")
		return
	}

	if _, err := h.db.ExecContext(r.Context(), `
		UPDATE election_voter SET has_voted = TRUE
		WHERE election_id = $1 AND voter_id = $2
	`, electionID, sess.VoterID); err != nil {
		slog.Error("failed to mark voter as voted", "election_id", electionID, "error", err)
	}

	slog.Info("ballot cast", "election_id", electionID, "voter_id", sess.VoterID)
	middleware.JSONResponse(w, http.StatusOK, models.CastVoteResponse{Success: true, Receipt: audit.IntegrityHash})
}

// incrementTally bumps a candidate's encrypted count with optimistic
// concurrency: decrypt, add one, and swap only if the stored token is still
// the one we read.
func (h *VotingHandler) incrementTally(r *http.Request, electionID, candidateID string) error {
	for attempt := 0; attempt < tallyRetryLimit; attempt++ {
		var current []byte
		err := h.db.QueryRowContext(r.Context(), `
			SELECT tally FROM election_candidate
			WHERE election_id = $1 AND candidate_id = $2
		`, electionID, candidateID).Scan(&current)
		if err != nil {
			return err
		}

		next, err := h.cipher.Increment(current)
		if err != nil {
			return err
		}

		res, err := h.db.ExecContext(r.Context(), `
			UPDATE election_candidate SET tally = $1
			WHERE election_id = $2 AND candidate_id = $3 AND tally = $4
		`, next, electionID, candidateID, current)
		if err != nil {
			return err
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 1 {
			return nil
		}
	}
	return errors.New("tally update contention exceeded retry limit")
}

// ListCandidates handles GET /elections/{id}/candidates - the public ballot
// view. Encrypted tallies never leave the database here.
func (h *VotingHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")

	if _, ok := h.openElection(w, r, electionID); !ok {
		return
	}

	rows, err := h.db.QueryContext(r.Context(), `
		SELECT candidate_id, name, party FROM election_candidate
		WHERE election_id = $1
		ORDER BY candidate_id
	`, electionID)
	if err != nil {
		slog.Error("failed to query candidates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	candidates := []models.PublicCandidate{}
	for rows.Next() {
		var c models.PublicCandidate
		if err := rows.Scan(&c.CandidateID, &c.Name, &c.Party); err != nil {
			slog.Error("failed to scan candidate", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate candidates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, map[string][]models.PublicCandidate{"candidates": candidates})
}
