// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - ElectionDraft: name, voter_lists, candidate_lists, start/end times
  - ElectionPatch: partial draft for modification requests
  - ProposeModificationRequest, ProposeDeletionRequest, RejectRequest
  - VerifyNameRequest: candidate election name
  - CreateVoterListRequest, CreateCandidateListRequest: roster contents
  - LoginRequest: voter_id, secret
  - VerifyCodeRequest: voter_id, code
  - CastVoteRequest: candidate_id

# Response Types

Types for JSON responses:

  - ProposeResponse: request_id
  - ApproveCreationResponse: election_id
  - VerifyNameResponse: available
  - LoginResponse: code delivery acknowledgement
  - VerifyCodeResponse: session_token
  - CastVoteResponse: receipt (integrity hash), cast_at
  - ElectionResults: per-candidate counts, winner, participation
  - ArchiveResponse: archive_id
  - ErrorResponse: error, message

# Domain Types

Internal data structures:

  - Election: registry row and lifecycle state
  - RejectedRequest: terminal archive of a rejected change request
  - VoterEntry, CandidateEntry: roster rows
  - SnapshotVoter, SnapshotCandidate: materialized per-election rows
  - PublicCandidate: candidate view without tally fields
  - BallotAudit: one row per cast ballot
  - CandidateResult, ArchivedElection, ArchivePayload

# Constants

Registry request kinds:

	RequestCreation     = "creation"
	RequestModification = "modification"
	RequestDeletion     = "deletion"

The abstention entry injected into every candidate snapshot:

	AbstainCandidateID   = "ABSTAIN"
	AbstainCandidateName = "None of the above"
*/
package models
