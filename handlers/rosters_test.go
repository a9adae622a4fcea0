// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/safely-elect/auth"
	"github.com/danielhkuo/safely-elect/models"
	"github.com/danielhkuo/safely-elect/testutil"
)

func voterEntry(id string) models.VoterEntry {
	return models.VoterEntry{
		VoterID: id,
		Name:    "Voter " + id,
		Email:   id + "@test",
		Secret:  "secret-" + id,
	}
}

func TestCreateVoterList(t *testing.T) {
	testCases := []struct {
		name           string
		listName       string
		request        models.CreateVoterListRequest
		headers        map[string]string
		expectedStatus int
	}{
		{
			name:     "valid list via reviewer",
			listName: "board",
			request: models.CreateVoterListRequest{Voters: []models.VoterEntry{
				voterEntry("v1"), voterEntry("v2"),
			}},
			headers:        testutil.ReviewerHeaders("admin"),
			expectedStatus: http.StatusOK,
		},
		{
			name:     "valid list via submitter",
			listName: "staff",
			request: models.CreateVoterListRequest{Voters: []models.VoterEntry{
				voterEntry("v1"),
			}},
			headers:        testutil.SubmitterHeaders("clerk"),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "empty list rejected",
			listName:       "empty",
			request:        models.CreateVoterListRequest{},
			headers:        testutil.ReviewerHeaders("admin"),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:     "missing secret rejected",
			listName: "bad",
			request: models.CreateVoterListRequest{Voters: []models.VoterEntry{
				{VoterID: "v1", Name: "No Secret", Email: "v1@test"},
			}},
			headers:        testutil.ReviewerHeaders("admin"),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:     "missing voter_id rejected",
			listName: "bad",
			request: models.CreateVoterListRequest{Voters: []models.VoterEntry{
				{Name: "No ID", Email: "x@test", Secret: "s"},
			}},
			headers:        testutil.ReviewerHeaders("admin"),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:     "duplicate voter_id rejected",
			listName: "dupes",
			request: models.CreateVoterListRequest{Voters: []models.VoterEntry{
				voterEntry("v1"), voterEntry("v1"),
			}},
			headers:        testutil.ReviewerHeaders("admin"),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:     "invalid admin key rejected",
			listName: "board",
			request: models.CreateVoterListRequest{Voters: []models.VoterEntry{
				voterEntry("v1"),
			}},
			headers:        map[string]string{"X-Admin-Key": "wrong-key"},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conn := setupTestDB(t)
			defer conn.Close()

			handler := NewRosterHandler(conn, getTestConfig())

			req := testutil.MakeRequest("PUT", "/rosters/voters/"+tc.listName, tc.request, tc.headers)
			req.SetPathValue("name", tc.listName)
			w := httptest.NewRecorder()
			handler.CreateVoterList(w, req)

			testutil.AssertStatus(t, w, tc.expectedStatus)

			if tc.expectedStatus != http.StatusOK {
				return
			}

			var count int
			conn.QueryRow(`SELECT COUNT(*) FROM voter WHERE list_name = $1`, tc.listName).Scan(&count)
			if count != len(tc.request.Voters) {
				t.Errorf("Expected %d stored voters, got %d", len(tc.request.Voters), count)
			}
		})
	}
}

func TestVoterSecretsHashedAtIntake(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	handler := NewRosterHandler(conn, getTestConfig())

	request := models.CreateVoterListRequest{Voters: []models.VoterEntry{voterEntry("v1")}}
	req := testutil.MakeRequest("PUT", "/rosters/voters/board", request, testutil.ReviewerHeaders("admin"))
	req.SetPathValue("name", "board")
	w := httptest.NewRecorder()
	handler.CreateVoterList(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var stored string
	conn.QueryRow(`SELECT secret_hash FROM voter WHERE list_name = 'board' AND voter_id = 'v1'`).Scan(&stored)

	if stored == "secret-v1" {
		t.Fatal("Secret stored in plaintext")
	}
	if err := auth.CompareSecret(stored, "secret-v1"); err != nil {
		t.Errorf("Stored hash does not verify the original secret: %v", err)
	}
}

func TestCreateVoterListReplacesWholesale(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	handler := NewRosterHandler(conn, getTestConfig())

	put := func(voters ...models.VoterEntry) {
		t.Helper()
		req := testutil.MakeRequest("PUT", "/rosters/voters/board",
			models.CreateVoterListRequest{Voters: voters}, testutil.ReviewerHeaders("admin"))
		req.SetPathValue("name", "board")
		w := httptest.NewRecorder()
		handler.CreateVoterList(w, req)
		testutil.AssertStatus(t, w, http.StatusOK)
	}

	put(voterEntry("v1"), voterEntry("v2"), voterEntry("v3"))
	put(voterEntry("v2"), voterEntry("v4"))

	rows, err := conn.Query(`SELECT voter_id FROM voter WHERE list_name = 'board' ORDER BY voter_id`)
	if err != nil {
		t.Fatalf("Failed to query voters: %v", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		rows.Scan(&id)
		ids = append(ids, id)
	}

	if len(ids) != 2 || ids[0] != "v2" || ids[1] != "v4" {
		t.Errorf("Expected membership [v2 v4], got %v", ids)
	}
}

func TestCreateCandidateList(t *testing.T) {
	testCases := []struct {
		name           string
		request        models.CreateCandidateListRequest
		expectedStatus int
	}{
		{
			name: "valid list",
			request: models.CreateCandidateListRequest{Candidates: []models.CandidateEntry{
				{CandidateID: "c1", Name: "Candidate One", Party: "Alpha"},
				{CandidateID: "c2", Name: "Candidate Two"},
			}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "empty list rejected",
			request:        models.CreateCandidateListRequest{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "missing name rejected",
			request: models.CreateCandidateListRequest{Candidates: []models.CandidateEntry{
				{CandidateID: "c1"},
			}},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "reserved abstention id rejected",
			request: models.CreateCandidateListRequest{Candidates: []models.CandidateEntry{
				{CandidateID: models.AbstainCandidateID, Name: "Sneaky"},
			}},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "duplicate candidate_id rejected",
			request: models.CreateCandidateListRequest{Candidates: []models.CandidateEntry{
				{CandidateID: "c1", Name: "One"},
				{CandidateID: "c1", Name: "One Again"},
			}},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conn := setupTestDB(t)
			defer conn.Close()

			handler := NewRosterHandler(conn, getTestConfig())

			req := testutil.MakeRequest("PUT", "/rosters/candidates/slate", tc.request, testutil.ReviewerHeaders("admin"))
			req.SetPathValue("name", "slate")
			w := httptest.NewRecorder()
			handler.CreateCandidateList(w, req)

			testutil.AssertStatus(t, w, tc.expectedStatus)

			if tc.expectedStatus != http.StatusOK {
				return
			}

			var count int
			conn.QueryRow(`SELECT COUNT(*) FROM candidate WHERE list_name = 'slate'`).Scan(&count)
			if count != len(tc.request.Candidates) {
				t.Errorf("Expected %d stored candidates, got %d", len(tc.request.Candidates), count)
			}
		})
	}
}

func TestListRosters(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	handler := NewRosterHandler(conn, getTestConfig())

	testutil.CreateTestVoterList(t, conn, "board", "v1")
	testutil.CreateTestVoterList(t, conn, "staff", "v2")
	testutil.CreateTestCandidateList(t, conn, "slate", "c1")

	t.Run("voter lists sorted by name", func(t *testing.T) {
		req := testutil.MakeRequest("GET", "/rosters/voters", nil, testutil.ReviewerHeaders("admin"))
		w := httptest.NewRecorder()
		handler.ListVoterLists(w, req)

		testutil.AssertStatus(t, w, http.StatusOK)

		var resp map[string][]string
		json.NewDecoder(w.Body).Decode(&resp)
		lists := resp["lists"]
		if len(lists) != 2 || lists[0] != "board" || lists[1] != "staff" {
			t.Errorf("Expected [board staff], got %v", lists)
		}
	})

	t.Run("candidate lists", func(t *testing.T) {
		req := testutil.MakeRequest("GET", "/rosters/candidates", nil, testutil.SubmitterHeaders("clerk"))
		w := httptest.NewRecorder()
		handler.ListCandidateLists(w, req)

		testutil.AssertStatus(t, w, http.StatusOK)

		var resp map[string][]string
		json.NewDecoder(w.Body).Decode(&resp)
		if len(resp["lists"]) != 1 || resp["lists"][0] != "slate" {
			t.Errorf("Expected [slate], got %v", resp["lists"])
		}
	})

	t.Run("no capability rejected", func(t *testing.T) {
		req := testutil.MakeRequest("GET", "/rosters/voters", nil, nil)
		w := httptest.NewRecorder()
		handler.ListVoterLists(w, req)

		testutil.AssertStatus(t, w, http.StatusUnauthorized)
	})
}
