// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/safely-elect/models"
	"github.com/danielhkuo/safely-elect/notify"
	"github.com/danielhkuo/safely-elect/session"
	"github.com/danielhkuo/safely-elect/testutil"
)

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	cipher := getTestCipher(t)
	sessions := session.NewMemoryStore(10*time.Minute, 15*time.Minute)
	recorder := notify.NewRecorder()
	handler := NewVotingHandler(db, cipher, sessions, recorder)

	openID := testutil.CreateTestElection(t, db, "open-vote",
		[]string{"staff"}, []string{"board"}, -time.Hour, time.Hour)
	testutil.MarkPopulated(t, db, openID)
	testutil.SnapshotVoter(t, db, openID, "v1")

	notYetID := testutil.CreateTestElection(t, db, "future-vote",
		[]string{"staff"}, []string{"board"}, time.Hour, 2*time.Hour)

	closedID := testutil.CreateTestElection(t, db, "closed-vote",
		[]string{"staff"}, []string{"board"}, -2*time.Hour, -time.Hour)
	testutil.MarkPopulated(t, db, closedID)
	testutil.SnapshotVoter(t, db, closedID, "v1")

	tests := []struct {
		name           string
		electionID     string
		requestBody    models.LoginRequest
		expectedStatus int
	}{
		{
			name:           "valid login issues a code",
			electionID:     openID,
			requestBody:    models.LoginRequest{VoterID: "v1", Secret: "secret-v1"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "wrong secret",
			electionID:     openID,
			requestBody:    models.LoginRequest{VoterID: "v1", Secret: "wrong"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "voter not on the roll",
			electionID:     openID,
			requestBody:    models.LoginRequest{VoterID: "ghost", Secret: "secret-ghost"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "election not yet open",
			electionID:     notYetID,
			requestBody:    models.LoginRequest{VoterID: "v1", Secret: "secret-v1"},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "election closed",
			electionID:     closedID,
			requestBody:    models.LoginRequest{VoterID: "v1", Secret: "secret-v1"},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "unknown election",
			electionID:     "missing",
			requestBody:    models.LoginRequest{VoterID: "v1", Secret: "secret-v1"},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "missing secret",
			electionID:     openID,
			requestBody:    models.LoginRequest{VoterID: "v1"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/elections/"+tt.electionID+"/login", tt.requestBody, nil)
			req.SetPathValue("id", tt.electionID)
			w := httptest.NewRecorder()

			handler.Login(w, req)
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	t.Run("code travels by notification, not by response", func(t *testing.T) {
		events := recorder.EventsOfKind(notify.KindLoginCode)
		if len(events) != 1 {
			t.Fatalf("Expected exactly one login-code event, got %d", len(events))
		}
		if events[0].Code == "" {
			t.Error("Expected a code in the notification")
		}
		if events[0].Email != "v1@test" {
			t.Errorf("Expected the snapshot email, got '%s'", events[0].Email)
		}
	})
}

func TestVerifyCode(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	cipher := getTestCipher(t)
	sessions := session.NewMemoryStore(10*time.Minute, 15*time.Minute)
	recorder := notify.NewRecorder()
	handler := NewVotingHandler(db, cipher, sessions, recorder)

	electionID := testutil.CreateTestElection(t, db, "code-vote",
		[]string{"staff"}, []string{"board"}, -time.Hour, time.Hour)
	testutil.MarkPopulated(t, db, electionID)
	testutil.SnapshotVoter(t, db, electionID, "v1")

	login := func(t *testing.T) string {
		req := testutil.MakeRequest("POST", "/elections/"+electionID+"/login",
			models.LoginRequest{VoterID: "v1", Secret: "secret-v1"}, nil)
		req.SetPathValue("id", electionID)
		w := httptest.NewRecorder()
		handler.Login(w, req)
		testutil.AssertStatus(t, w, http.StatusOK)

		events := recorder.EventsOfKind(notify.KindLoginCode)
		return events[len(events)-1].Code
	}

	verify := func(code string) *httptest.ResponseRecorder {
		req := testutil.MakeRequest("POST", "/elections/"+electionID+"/verify-code",
			models.VerifyCodeRequest{VoterID: "v1", Code: code}, nil)
		req.SetPathValue("id", electionID)
		w := httptest.NewRecorder()
		handler.VerifyCode(w, req)
		return w
	}

	t.Run("wrong guess does not burn the code", func(t *testing.T) {
		code := login(t)

		testutil.AssertStatus(t, verify("000000x"), http.StatusUnauthorized)

		w := verify(code)
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.VerifyCodeResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.Session == "" {
			t.Error("Expected a session token")
		}
	})

	t.Run("a code verifies at most once", func(t *testing.T) {
		code := login(t)

		testutil.AssertStatus(t, verify(code), http.StatusOK)
		testutil.AssertStatus(t, verify(code), http.StatusUnauthorized)
	})

	t.Run("a fresh login supersedes the outstanding code", func(t *testing.T) {
		stale := login(t)
		fresh := login(t)
		if stale == fresh {
			t.Skip("codes collided; cannot distinguish supersession")
		}

		testutil.AssertStatus(t, verify(stale), http.StatusUnauthorized)
		testutil.AssertStatus(t, verify(fresh), http.StatusOK)
	})
}

func TestCastVote(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	cipher := getTestCipher(t)
	sessions := session.NewMemoryStore(10*time.Minute, 15*time.Minute)
	handler := NewVotingHandler(db, cipher, sessions, notify.NewRecorder())

	electionID := testutil.CreateTestElection(t, db, "ballot-vote",
		[]string{"staff"}, []string{"board"}, -time.Hour, time.Hour)
	testutil.MarkPopulated(t, db, electionID)
	testutil.SnapshotVoter(t, db, electionID, "v1")
	testutil.SnapshotVoter(t, db, electionID, "v2")
	testutil.SnapshotCandidate(t, db, cipher, electionID, "alpha")
	testutil.SnapshotCandidate(t, db, cipher, electionID, "beta")
	testutil.SnapshotCandidate(t, db, cipher, electionID, models.AbstainCandidateID)

	mintSession := func(t *testing.T, voterID string) string {
		token := "tok-" + voterID
		if err := sessions.PutSession(req().Context(), token, session.Session{
			VoterID:    voterID,
			ElectionID: electionID,
		}); err != nil {
			t.Fatalf("Failed to mint session: %v", err)
		}
		return token
	}

	cast := func(token, candidateID string) *httptest.ResponseRecorder {
		headers := map[string]string{}
		if token != "" {
			headers["X-Session-Token"] = token
		}
		req := testutil.MakeRequest("POST", "/elections/"+electionID+"/vote",
			models.CastVoteRequest{CandidateID: candidateID}, headers)
		req.SetPathValue("id", electionID)
		w := httptest.NewRecorder()
		handler.CastVote(w, req)
		return w
	}

	decryptTally := func(t *testing.T, candidateID string) uint64 {
		var token []byte
		err := db.QueryRow(`
			SELECT tally FROM election_candidate WHERE election_id = $1 AND candidate_id = $2
		`, electionID, candidateID).Scan(&token)
		if err != nil {
			t.Fatalf("Failed to read tally: %v", err)
		}
		count, err := cipher.Decrypt(token)
		if err != nil {
			t.Fatalf("Failed to decrypt tally: %v", err)
		}
		return count
	}

	t.Run("valid ballot", func(t *testing.T) {
		token := mintSession(t, "v1")
		w := cast(token, "alpha")
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.CastVoteResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.Receipt == "" {
			t.Error("Expected a receipt")
		}

		if got := decryptTally(t, "alpha"); got != 1 {
			t.Errorf("Expected tally 1, got %d", got)
		}

		var hash string
		var hasVoted bool
		err := db.QueryRow(`
			SELECT a.integrity_hash, v.has_voted
			FROM ballot_audit a
			JOIN election_voter v ON v.election_id = a.election_id AND v.voter_id = a.voter_id
			WHERE a.election_id = $1 AND a.voter_id = 'v1'
		`, electionID).Scan(&hash, &hasVoted)
		if err != nil {
			t.Fatalf("Failed to query audit entry: %v", err)
		}
		if hash != resp.Receipt {
			t.Error("Receipt should equal the stored integrity hash")
		}
		if !hasVoted {
			t.Error("has_voted should be set")
		}
	})

	t.Run("second ballot conflicts", func(t *testing.T) {
		token := mintSession(t, "v1")
		w := cast(token, "beta")
		testutil.AssertStatus(t, w, http.StatusConflict)

		if got := decryptTally(t, "beta"); got != 0 {
			t.Errorf("Rejected ballot must not count, got %d", got)
		}

		var entries int
		if err := db.QueryRow(`
			SELECT COUNT(*) FROM ballot_audit WHERE election_id = $1 AND voter_id = 'v1'
		`, electionID).Scan(&entries); err != nil {
			t.Fatalf("Failed to count audit entries: %v", err)
		}
		if entries != 1 {
			t.Errorf("Expected one audit entry, got %d", entries)
		}
	})

	t.Run("abstention counts like any other choice", func(t *testing.T) {
		token := mintSession(t, "v2")
		testutil.AssertStatus(t, cast(token, models.AbstainCandidateID), http.StatusOK)

		if got := decryptTally(t, models.AbstainCandidateID); got != 1 {
			t.Errorf("Expected abstain tally 1, got %d", got)
		}
	})

	t.Run("candidate off the ballot", func(t *testing.T) {
		token := mintSession(t, "v2")
		testutil.AssertStatus(t, cast(token, "write-in"), http.StatusNotFound)
	})

	t.Run("missing session", func(t *testing.T) {
		testutil.AssertStatus(t, cast("", "alpha"), http.StatusUnauthorized)
	})

	t.Run("bogus session", func(t *testing.T) {
		testutil.AssertStatus(t, cast("forged-token", "alpha"), http.StatusUnauthorized)
	})

	t.Run("session scoped to another election", func(t *testing.T) {
		otherID := testutil.CreateTestElection(t, db, "other-vote",
			[]string{"staff"}, []string{"board"}, -time.Hour, time.Hour)
		testutil.MarkPopulated(t, db, otherID)

		token := "cross-token"
		if err := sessions.PutSession(req().Context(), token, session.Session{
			VoterID:    "v2",
			ElectionID: otherID,
		}); err != nil {
			t.Fatalf("Failed to mint session: %v", err)
		}

		testutil.AssertStatus(t, cast(token, "alpha"), http.StatusUnauthorized)
	})
}

// req builds a throwaway request for contexts in test helpers.
func req() *http.Request {
	return httptest.NewRequest("GET", "/", nil)
}

func TestListCandidates(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	cipher := getTestCipher(t)
	sessions := session.NewMemoryStore(10*time.Minute, 15*time.Minute)
	handler := NewVotingHandler(db, cipher, sessions, notify.NewRecorder())

	electionID := testutil.CreateTestElection(t, db, "listing-vote",
		[]string{"staff"}, []string{"board"}, -time.Hour, time.Hour)
	testutil.MarkPopulated(t, db, electionID)
	testutil.SnapshotCandidate(t, db, cipher, electionID, "alpha")
	testutil.SnapshotCandidate(t, db, cipher, electionID, models.AbstainCandidateID)

	req := testutil.MakeRequest("GET", "/elections/"+electionID+"/candidates", nil, nil)
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()
	handler.ListCandidates(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp map[string][]models.PublicCandidate
	testutil.AssertJSON(t, w, &resp)

	candidates := resp["candidates"]
	if len(candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(candidates))
	}
	for _, c := range candidates {
		if c.CandidateID == "" || c.Name == "" {
			t.Error("Candidates need an id and a name")
		}
	}

	// The serialized view must not leak tally material.
	if strings.Contains(strings.ToLower(w.Body.String()), "tally") {
		t.Error("Response leaks tally material")
	}
}
