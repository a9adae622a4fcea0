// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/safely-elect/auth"
	"github.com/danielhkuo/safely-elect/cliparse"
	"github.com/danielhkuo/safely-elect/middleware"
	"github.com/danielhkuo/safely-elect/models"
	"github.com/danielhkuo/safely-elect/notify"
)

// RegistryHandler owns the approval state machine for election creation,
// modification, and deletion. Every operation dispatches on the caller's
// capability tag; the X-Actor header is attribution only.
type RegistryHandler struct {
	db       *sql.DB
	cfg      cliparse.Config
	notifier notify.Notifier
}

func NewRegistryHandler(db *sql.DB, cfg cliparse.Config, notifier notify.Notifier) *RegistryHandler {
	return &RegistryHandler{db: db, cfg: cfg, notifier: notifier}
}

// authorize resolves the caller's capability once, at the boundary.
func (h *RegistryHandler) authorize(w http.ResponseWriter, r *http.Request) (auth.Capability, string, bool) {
	capability, err := auth.ResolveCapability(r.Header.Get("X-Admin-Key"), h.cfg.ReviewerKey, h.cfg.SubmitterKey)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return "", "", false
	}

	actor := r.Header.Get("X-Actor")
	if actor == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "X-Actor header required")
		return "", "", false
	}

	return capability, actor, true
}

// nameExists reports whether a name is taken by a live election, a pending
// creation request, or an archived election. The three sets together form
// the global namespace.
func nameExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM election WHERE name = $1)
		    OR EXISTS(SELECT 1 FROM pending_request WHERE kind = 'creation' AND name = $1)
		    OR EXISTS(SELECT 1 FROM archived_election WHERE name = $1)
	`, name).Scan(&exists)
	return exists, err
}

func validateDraft(draft *models.ElectionDraft) string {
	if draft.Name == "" {
		return "name is required"
	}
	if len(draft.VoterLists) == 0 {
		return "at least one voter list is required"
	}
	if len(draft.CandidateLists) == 0 {
		return "at least one candidate list is required"
	}
	if !draft.EndTime.After(draft.StartTime) {
		return "end_time must be after start_time"
	}
	return ""
}

// VerifyName handles POST /elections/verify-name
func (h *RegistryHandler) VerifyName(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyNameRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	exists, err := nameExists(r.Context(), h.db, req.Name)
	if err != nil {
		slog.Error("failed to check election name", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VerifyNameResponse{Exists: exists})
}

// ProposeCreation handles POST /registry/creations.
// A reviewer's proposal skips review and creates the election directly.
func (h *RegistryHandler) ProposeCreation(w http.ResponseWriter, r *http.Request) {
	capability, actor, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var draft models.ElectionDraft
	if err := middleware.ParseJSONBody(r, &draft); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := validateDraft(&draft); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	exists, err := nameExists(r.Context(), h.db, draft.Name)
	if err != nil {
		slog.Error("failed to check election name", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if exists {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Election name is already taken")
		return
	}

	if capability == auth.CapabilityReviewer {
		electionID, err := h.createElection(r.Context(), &draft, actor, actor)
		if err != nil {
			slog.Error("failed to create election", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
			return
		}

		slog.Info("election created directly", "election_id", electionID, "creator", actor)
		middleware.JSONResponse(w, http.StatusCreated, models.ApproveCreationResponse{ElectionID: electionID})
		return
	}

	requestID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate request ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit request")
		return
	}

	payload, err := json.Marshal(draft)
	if err != nil {
		slog.Error("failed to encode draft", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit request")
		return
	}

	_, err = h.db.ExecContext(r.Context(), `
		INSERT INTO pending_request (id, kind, name, payload, requested_by, created_at)
		VALUES ($1, 'creation', $2, $3, $4, $5)
	`, requestID, draft.Name, payload, actor, time.Now())
	if err != nil {
		slog.Error("failed to insert creation request", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit request")
		return
	}

	slog.Info("creation proposed", "request_id", requestID, "name", draft.Name, "requested_by", actor)
	middleware.JSONResponse(w, http.StatusCreated, models.ProposeResponse{RequestID: requestID})
}

// ApproveCreation handles PUT /registry/creations/{id}/approve
func (h *RegistryHandler) ApproveCreation(w http.ResponseWriter, r *http.Request) {
	capability, actor, ok := h.authorize(w, r)
	if !ok {
		return
	}
	if capability != auth.CapabilityReviewer {
		middleware.ErrorResponse(w, http.StatusForbidden, "Reviewer capability required")
		return
	}

	requestID := r.PathValue("id")
	draft, requestedBy, ok := h.loadPending(w, r, requestID, models.RequestCreation)
	if !ok {
		return
	}

	var parsed models.ElectionDraft
	if err := json.Unmarshal(draft, &parsed); err != nil {
		slog.Error("failed to decode creation draft", "request_id", requestID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Corrupt request payload")
		return
	}

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	electionID, err := insertElection(r.Context(), tx, &parsed, requestedBy, actor)
	if err != nil {
		slog.Error("failed to insert election", "request_id", requestID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to approve request")
		return
	}

	if ok := h.deletePending(w, tx, r, requestID); !ok {
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit approval", "request_id", requestID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to approve request")
		return
	}

	slog.Info("creation approved", "request_id", requestID, "election_id", electionID, "approver", actor)

	h.publish(r.Context(), notify.Event{
		Kind:         notify.KindElectionApproved,
		ElectionID:   electionID,
		ElectionName: parsed.Name,
		OccurredAt:   time.Now(),
	})

	middleware.JSONResponse(w, http.StatusOK, models.ApproveCreationResponse{ElectionID: electionID})
}

// RejectCreation handles POST /registry/creations/{id}/reject
func (h *RegistryHandler) RejectCreation(w http.ResponseWriter, r *http.Request) {
	h.reject(w, r, models.RequestCreation)
}

// ProposeModification handles POST /registry/modifications.
// A second proposal for the same election replaces the first.
func (h *RegistryHandler) ProposeModification(w http.ResponseWriter, r *http.Request) {
	_, actor, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req models.ProposeModificationRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.ElectionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}

	if !h.electionExists(w, r, req.ElectionID) {
		return
	}

	h.upsertRequest(w, r, models.RequestModification, req.ElectionID, req.Patch, "", actor)
}

// ApproveModification handles PUT /registry/modifications/{id}/approve
func (h *RegistryHandler) ApproveModification(w http.ResponseWriter, r *http.Request) {
	capability, actor, ok := h.authorize(w, r)
	if !ok {
		return
	}
	if capability != auth.CapabilityReviewer {
		middleware.ErrorResponse(w, http.StatusForbidden, "Reviewer capability required")
		return
	}

	requestID := r.PathValue("id")

	var electionID string
	var payload []byte
	err := h.db.QueryRowContext(r.Context(), `
		SELECT election_id, payload FROM pending_request
		WHERE id = $1 AND kind = 'modification'
	`, requestID).Scan(&electionID, &payload)
	if err == sql.ErrNoRows {
		h.rejectTerminal(w, r, requestID)
		return
	}
	if err != nil {
		slog.Error("failed to query modification request", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var patch models.ElectionPatch
	if err := json.Unmarshal(payload, &patch); err != nil {
		slog.Error("failed to decode patch", "request_id", requestID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Corrupt request payload")
		return
	}

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	if ok := h.applyPatch(w, r, tx, electionID, &patch); !ok {
		return
	}

	if ok := h.deletePending(w, tx, r, requestID); !ok {
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit modification", "request_id", requestID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to approve request")
		return
	}

	slog.Info("modification approved", "request_id", requestID, "election_id", electionID, "approver", actor)
	middleware.JSONResponse(w, http.StatusOK, models.ApproveCreationResponse{ElectionID: electionID})
}

// RejectModification handles POST /registry/modifications/{id}/reject
func (h *RegistryHandler) RejectModification(w http.ResponseWriter, r *http.Request) {
	h.reject(w, r, models.RequestModification)
}

// ProposeDeletion handles POST /registry/deletions.
// Reviewers should use DELETE /elections/{id} directly; the request path is
// for submitters, who must give a reason.
func (h *RegistryHandler) ProposeDeletion(w http.ResponseWriter, r *http.Request) {
	_, actor, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req models.ProposeDeletionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.ElectionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}
	if req.Reason == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "reason is required")
		return
	}

	if !h.electionExists(w, r, req.ElectionID) {
		return
	}

	h.upsertRequest(w, r, models.RequestDeletion, req.ElectionID, nil, req.Reason, actor)
}

// ApproveDeletion handles PUT /registry/deletions/{id}/approve
func (h *RegistryHandler) ApproveDeletion(w http.ResponseWriter, r *http.Request) {
	capability, actor, ok := h.authorize(w, r)
	if !ok {
		return
	}
	if capability != auth.CapabilityReviewer {
		middleware.ErrorResponse(w, http.StatusForbidden, "Reviewer capability required")
		return
	}

	requestID := r.PathValue("id")

	var electionID string
	err := h.db.QueryRowContext(r.Context(), `
		SELECT election_id FROM pending_request
		WHERE id = $1 AND kind = 'deletion'
	`, requestID).Scan(&electionID)
	if err == sql.ErrNoRows {
		h.rejectTerminal(w, r, requestID)
		return
	}
	if err != nil {
		slog.Error("failed to query deletion request", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if ok := h.deleteElection(w, r, electionID, actor); !ok {
		return
	}

	// The request row referencing the election is cleaned up here; other
	// pending requests against the deleted election are orphaned and
	// removed too.
	_, err = h.db.ExecContext(r.Context(), `
		DELETE FROM pending_request WHERE election_id = $1
	`, electionID)
	if err != nil {
		slog.Error("failed to clean up requests for deleted election", "election_id", electionID, "error", err)
	}

	slog.Info("deletion approved", "request_id", requestID, "election_id", electionID, "approver", actor)
	middleware.JSONResponse(w, http.StatusOK, map[string]bool{"deleted": true})
}

// RejectDeletion handles POST /registry/deletions/{id}/reject
func (h *RegistryHandler) RejectDeletion(w http.ResponseWriter, r *http.Request) {
	h.reject(w, r, models.RequestDeletion)
}

// DeleteElection handles DELETE /elections/{id} - the reviewer's direct path.
func (h *RegistryHandler) DeleteElection(w http.ResponseWriter, r *http.Request) {
	capability, actor, ok := h.authorize(w, r)
	if !ok {
		return
	}
	if capability != auth.CapabilityReviewer {
		middleware.ErrorResponse(w, http.StatusForbidden, "Reviewer capability required; submit a deletion request instead")
		return
	}

	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}

	if ok := h.deleteElection(w, r, electionID, actor); !ok {
		return
	}

	middleware.JSONResponse(w, http.StatusOK, map[string]bool{"deleted": true})
}

// GetElection handles GET /elections/{id} (admin view of the canonical record)
func (h *RegistryHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := h.authorize(w, r); !ok {
		return
	}

	electionID := r.PathValue("id")

	var e models.Election
	var voterJSON, candidateJSON []byte
	err := h.db.QueryRowContext(r.Context(), `
		SELECT id, name, created_by, approved_by, voter_lists, candidate_lists,
		       start_time, end_time, populated, result_published, created_at
		FROM election
		WHERE id = $1
	`, electionID).Scan(
		&e.ID, &e.Name, &e.CreatedBy, &e.ApprovedBy, &voterJSON, &candidateJSON,
		&e.StartTime, &e.EndTime, &e.Populated, &e.ResultPublished, &e.CreatedAt,
	)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := json.Unmarshal(voterJSON, &e.VoterLists); err != nil {
		slog.Error("failed to decode voter lists", "election_id", electionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Corrupt election record")
		return
	}
	if err := json.Unmarshal(candidateJSON, &e.CandidateLists); err != nil {
		slog.Error("failed to decode candidate lists", "election_id", electionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Corrupt election record")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, e)
}

// --- shared plumbing ---

func (h *RegistryHandler) createElection(ctx context.Context, draft *models.ElectionDraft, creator, approver string) (string, error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	electionID, err := insertElection(ctx, tx, draft, creator, approver)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	h.publish(ctx, notify.Event{
		Kind:         notify.KindElectionApproved,
		ElectionID:   electionID,
		ElectionName: draft.Name,
		OccurredAt:   time.Now(),
	})

	return electionID, nil
}

func insertElection(ctx context.Context, tx *sql.Tx, draft *models.ElectionDraft, creator, approver string) (string, error) {
	electionID, err := auth.GenerateID(16)
	if err != nil {
		return "", err
	}

	voterJSON, err := json.Marshal(draft.VoterLists)
	if err != nil {
		return "", err
	}
	candidateJSON, err := json.Marshal(draft.CandidateLists)
	if err != nil {
		return "", err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO election (id, name, created_by, approved_by, voter_lists, candidate_lists,
		                      start_time, end_time, populated, result_published, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, FALSE, $9)
	`, electionID, draft.Name, creator, approver, voterJSON, candidateJSON,
		draft.StartTime, draft.EndTime, time.Now())
	if err != nil {
		return "", err
	}

	return electionID, nil
}

// loadPending fetches an open request's payload or writes the right failure:
// 409 when the id is found in the rejected archive, 404 otherwise.
func (h *RegistryHandler) loadPending(w http.ResponseWriter, r *http.Request, requestID, kind string) ([]byte, string, bool) {
	var payload []byte
	var requestedBy string
	err := h.db.QueryRowContext(r.Context(), `
		SELECT payload, requested_by FROM pending_request
		WHERE id = $1 AND kind = $2
	`, requestID, kind).Scan(&payload, &requestedBy)
	if err == sql.ErrNoRows {
		h.rejectTerminal(w, r, requestID)
		return nil, "", false
	}
	if err != nil {
		slog.Error("failed to query pending request", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return nil, "", false
	}
	return payload, requestedBy, true
}

// rejectTerminal distinguishes a request that reached a terminal state from
// one that never existed, so a client retry cannot double-apply a change.
func (h *RegistryHandler) rejectTerminal(w http.ResponseWriter, r *http.Request, requestID string) {
	var rejected bool
	err := h.db.QueryRowContext(r.Context(), `
		SELECT EXISTS(SELECT 1 FROM rejected_request WHERE id = $1)
	`, requestID).Scan(&rejected)
	if err != nil {
		slog.Error("failed to check rejected archive", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if rejected {
		middleware.ErrorResponse(w, http.StatusConflict, "Request already reviewed")
		return
	}
	middleware.ErrorResponse(w, http.StatusNotFound, "Request not found")
}

func (h *RegistryHandler) deletePending(w http.ResponseWriter, tx *sql.Tx, r *http.Request, requestID string) bool {
	res, err := tx.ExecContext(r.Context(), `DELETE FROM pending_request WHERE id = $1`, requestID)
	if err != nil {
		slog.Error("failed to delete pending request", "request_id", requestID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to finalize request")
		return false
	}

	affected, err := res.RowsAffected()
	if err != nil || affected == 0 {
		// Someone else finalized this request between our read and delete.
		middleware.ErrorResponse(w, http.StatusConflict, "Request already reviewed")
		return false
	}
	return true
}

// reject implements the shared reject path: the request payload plus reason
// and rejecter move to the terminal rejected archive, the pending row goes
// away.
func (h *RegistryHandler) reject(w http.ResponseWriter, r *http.Request, kind string) {
	capability, actor, ok := h.authorize(w, r)
	if !ok {
		return
	}
	if capability != auth.CapabilityReviewer {
		middleware.ErrorResponse(w, http.StatusForbidden, "Reviewer capability required")
		return
	}

	var req models.RejectRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Reason == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "reason is required")
		return
	}

	requestID := r.PathValue("id")
	payload, requestedBy, ok := h.loadPending(w, r, requestID, kind)
	if !ok {
		return
	}

	archived := models.RejectedRequest{
		ID:          requestID,
		Kind:        kind,
		Payload:     payload,
		RequestedBy: requestedBy,
		RejectedBy:  actor,
		Reason:      req.Reason,
		RejectedAt:  time.Now(),
	}

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(r.Context(), `
		INSERT INTO rejected_request (id, kind, payload, requested_by, rejected_by, reason, rejected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, archived.ID, archived.Kind, archived.Payload, archived.RequestedBy,
		archived.RejectedBy, archived.Reason, archived.RejectedAt)
	if err != nil {
		slog.Error("failed to archive rejected request", "request_id", requestID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to reject request")
		return
	}

	if ok := h.deletePending(w, tx, r, requestID); !ok {
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit rejection", "request_id", requestID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to reject request")
		return
	}

	slog.Info("request rejected", "request_id", requestID, "kind", kind, "rejecter", actor)
	middleware.JSONResponse(w, http.StatusOK, map[string]bool{"rejected": true})
}

// upsertRequest inserts or replaces the single open request for an election.
func (h *RegistryHandler) upsertRequest(w http.ResponseWriter, r *http.Request, kind, electionID string, patch interface{}, reason, actor string) {
	requestID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate request ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit request")
		return
	}

	var payload []byte
	if patch != nil {
		payload, err = json.Marshal(patch)
	} else {
		payload, err = json.Marshal(map[string]string{"reason": reason})
	}
	if err != nil {
		slog.Error("failed to encode request payload", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit request")
		return
	}

	// A second proposal replaces the first rather than stacking; the
	// replacement keeps the original row id so an in-flight review link
	// stays valid.
	var finalID string
	err = h.db.QueryRowContext(r.Context(), `
		INSERT INTO pending_request (id, kind, election_id, payload, requested_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (kind, election_id) WHERE election_id IS NOT NULL
		DO UPDATE SET payload = EXCLUDED.payload,
		              requested_by = EXCLUDED.requested_by,
		              created_at = EXCLUDED.created_at
		RETURNING id
	`, requestID, kind, electionID, payload, actor, time.Now()).Scan(&finalID)
	if err != nil {
		slog.Error("failed to upsert request", "kind", kind, "election_id", electionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit request")
		return
	}

	slog.Info("request proposed", "request_id", finalID, "kind", kind, "election_id", electionID, "requested_by", actor)
	middleware.JSONResponse(w, http.StatusCreated, models.ProposeResponse{RequestID: finalID})
}

// applyPatch merges non-nil patch fields onto the live election.
func (h *RegistryHandler) applyPatch(w http.ResponseWriter, r *http.Request, tx *sql.Tx, electionID string, patch *models.ElectionPatch) bool {
	var voterJSON, candidateJSON []byte
	var startTime, endTime time.Time
	err := tx.QueryRowContext(r.Context(), `
		SELECT voter_lists, candidate_lists, start_time, end_time
		FROM election WHERE id = $1
	`, electionID).Scan(&voterJSON, &candidateJSON, &startTime, &endTime)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return false
	}
	if err != nil {
		slog.Error("failed to load election for patch", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return false
	}

	if patch.VoterLists != nil {
		if voterJSON, err = json.Marshal(*patch.VoterLists); err != nil {
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to apply patch")
			return false
		}
	}
	if patch.CandidateLists != nil {
		if candidateJSON, err = json.Marshal(*patch.CandidateLists); err != nil {
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to apply patch")
			return false
		}
	}
	if patch.StartTime != nil {
		startTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		endTime = *patch.EndTime
	}

	if !endTime.After(startTime) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "end_time must be after start_time")
		return false
	}

	_, err = tx.ExecContext(r.Context(), `
		UPDATE election
		SET voter_lists = $1, candidate_lists = $2, start_time = $3, end_time = $4
		WHERE id = $5
	`, voterJSON, candidateJSON, startTime, endTime, electionID)
	if err != nil {
		slog.Error("failed to apply patch", "election_id", electionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to apply patch")
		return false
	}

	return true
}

// deleteElection removes a live election; snapshots and audit entries go
// with it via ON DELETE CASCADE.
func (h *RegistryHandler) deleteElection(w http.ResponseWriter, r *http.Request, electionID, actor string) bool {
	var name string
	err := h.db.QueryRowContext(r.Context(), `
		SELECT name FROM election WHERE id = $1
	`, electionID).Scan(&name)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return false
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return false
	}

	res, err := h.db.ExecContext(r.Context(), `DELETE FROM election WHERE id = $1`, electionID)
	if err != nil {
		slog.Error("failed to delete election", "election_id", electionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete election")
		return false
	}

	if affected, err := res.RowsAffected(); err != nil || affected == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return false
	}

	slog.Info("election deleted", "election_id", electionID, "name", name, "deleted_by", actor)

	h.publish(r.Context(), notify.Event{
		Kind:         notify.KindElectionDeleted,
		ElectionID:   electionID,
		ElectionName: name,
		OccurredAt:   time.Now(),
	})

	return true
}

func (h *RegistryHandler) electionExists(w http.ResponseWriter, r *http.Request, electionID string) bool {
	var exists bool
	err := h.db.QueryRowContext(r.Context(), `
		SELECT EXISTS(SELECT 1 FROM election WHERE id = $1)
	`, electionID).Scan(&exists)
	if err != nil {
		slog.Error("failed to check election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return false
	}
	if !exists {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return false
	}
	return true
}

func (h *RegistryHandler) publish(ctx context.Context, event notify.Event) {
	if err := h.notifier.Publish(ctx, event); err != nil {
		slog.Error("notification publish failed", "kind", event.Kind, "election_id", event.ElectionID, "error", err)
	}
}
