package models

import "time"

// Registry request kinds
const (
	RequestCreation     = "creation"
	RequestModification = "modification"
	RequestDeletion     = "deletion"
)

// AbstainCandidateID is injected into every candidate snapshot so a voter can
// always cast a none-of-the-above ballot.
const AbstainCandidateID = "ABSTAIN"

// AbstainCandidateName is the display name for the injected abstention entry.
const AbstainCandidateName = "None of the above"

// Request types

type ElectionDraft struct {
	Name           string    `json:"name"`
	VoterLists     []string  `json:"voter_lists"`
	CandidateLists []string  `json:"candidate_lists"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
}

// ElectionPatch carries a partial modification. Nil fields are left untouched
// when the patch is applied.
type ElectionPatch struct {
	VoterLists     *[]string  `json:"voter_lists,omitempty"`
	CandidateLists *[]string  `json:"candidate_lists,omitempty"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	EndTime        *time.Time `json:"end_time,omitempty"`
}

type ProposeModificationRequest struct {
	ElectionID string        `json:"election_id"`
	Patch      ElectionPatch `json:"patch"`
}

type ProposeDeletionRequest struct {
	ElectionID string `json:"election_id"`
	Reason     string `json:"reason"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

type VerifyNameRequest struct {
	Name string `json:"name"`
}

type VerifyNameResponse struct {
	Exists bool `json:"exists"`
}

type CreateVoterListRequest struct {
	Voters []VoterEntry `json:"voters"`
}

type CreateCandidateListRequest struct {
	Candidates []CandidateEntry `json:"candidates"`
}

type LoginRequest struct {
	VoterID string `json:"voter_id"`
	Secret  string `json:"secret"`
}

type VerifyCodeRequest struct {
	VoterID string `json:"voter_id"`
	Code    string `json:"code"`
}

type CastVoteRequest struct {
	CandidateID string `json:"candidate_id"`
}

// Response types

type ProposeResponse struct {
	RequestID string `json:"request_id"`
}

type ApproveCreationResponse struct {
	ElectionID string `json:"election_id"`
}

type LoginResponse struct {
	Success      bool `json:"success"`
	RequiresCode bool `json:"requires_code"`
}

type VerifyCodeResponse struct {
	Success bool   `json:"success"`
	Session string `json:"session"`
}

type CastVoteResponse struct {
	Success bool   `json:"success"`
	Receipt string `json:"receipt"`
}

// Domain types

type Election struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	CreatedBy       string    `json:"created_by"`
	ApprovedBy      *string   `json:"approved_by,omitempty"`
	VoterLists      []string  `json:"voter_lists"`
	CandidateLists  []string  `json:"candidate_lists"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	Populated       bool      `json:"populated"`
	ResultPublished bool      `json:"result_published"`
	CreatedAt       time.Time `json:"created_at"`
}

// RejectedRequest is the terminal archive row for a reviewed-and-rejected
// registry request. Payload is the original request document, kept verbatim.
type RejectedRequest struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Payload     []byte    `json:"-"`
	RequestedBy string    `json:"requested_by"`
	RejectedBy  string    `json:"rejected_by"`
	Reason      string    `json:"reason"`
	RejectedAt  time.Time `json:"rejected_at"`
}

type VoterEntry struct {
	VoterID string `json:"voter_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address,omitempty"`
	Age     int    `json:"age,omitempty"`
	Secret  string `json:"secret,omitempty"` // plaintext only on intake; stored as a bcrypt hash
}

type CandidateEntry struct {
	CandidateID string `json:"candidate_id"`
	Name        string `json:"name"`
	Party       string `json:"party,omitempty"`
	Description string `json:"description,omitempty"`
}

// SnapshotVoter is one row of a frozen per-election voter snapshot.
type SnapshotVoter struct {
	ElectionID string `json:"election_id"`
	VoterID    string `json:"voter_id"`
	HasVoted   bool   `json:"has_voted"`
}

// SnapshotCandidate is one row of a frozen per-election candidate snapshot.
// Tally is the encrypted count and is never exposed over the API.
type SnapshotCandidate struct {
	ElectionID  string `json:"election_id"`
	CandidateID string `json:"candidate_id"`
	Name        string `json:"name"`
	Party       string `json:"party,omitempty"`
	Tally       []byte `json:"-"`
}

// PublicCandidate is the public-safe view of a snapshot candidate.
type PublicCandidate struct {
	CandidateID string `json:"candidate_id"`
	Name        string `json:"name"`
	Party       string `json:"party,omitempty"`
}

// BallotAudit proves one voter cast one vote without recording the choice in
// clear. The candidate id enters IntegrityHash but is not stored.
type BallotAudit struct {
	ID            string    `json:"id"`
	ElectionID    string    `json:"election_id"`
	VoterID       string    `json:"voter_id"`
	IntegrityHash string    `json:"integrity_hash"`
	CastAt        time.Time `json:"cast_at"`
}

// Result types

type CandidateResult struct {
	CandidateID string `json:"candidate_id"`
	Name        string `json:"name"`
	Party       string `json:"party,omitempty"`
	Votes       uint64 `json:"votes"`
}

type ElectionResults struct {
	ElectionID string            `json:"election_id"`
	Candidates []CandidateResult `json:"candidates"`
	Winner     *CandidateResult  `json:"winner,omitempty"`
	IsTie      bool              `json:"is_tie"`
}

// ArchivedElection is the terminal record of a finished election. Payload is
// the JSONB document holding an ArchivePayload.
type ArchivedElection struct {
	ID         string    `json:"id"`
	ElectionID string    `json:"election_id"`
	Name       string    `json:"name"`
	ArchivedAt time.Time `json:"archived_at"`
	Payload    []byte    `json:"-"`
}

type ArchivePayload struct {
	CreatedBy  string            `json:"created_by"`
	StartTime  time.Time         `json:"start_time"`
	EndTime    time.Time         `json:"end_time"`
	Voted      []string          `json:"voted"`
	NotVoted   []string          `json:"not_voted"`
	Candidates []CandidateResult `json:"candidates"`
	Winner     *CandidateResult  `json:"winner,omitempty"`
	IsTie      bool              `json:"is_tie"`
}

type ArchiveResponse struct {
	ArchiveID  string    `json:"archive_id"`
	ArchivedAt time.Time `json:"archived_at"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
