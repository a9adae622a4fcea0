// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package session stores one-time login codes and short-lived voting sessions.

# Store Interface

Both backends implement the same interface:

	type Store interface {
		PutCode(ctx, electionID, voterID, code string) error
		ConsumeCode(ctx, electionID, voterID, code string) error
		PutSession(ctx, token string, s Session) error
		GetSession(ctx, token string) (Session, error)
	}

# Backends

RedisStore keeps codes and sessions in Redis with native TTL expiry.
ConsumeCode runs a Lua compare-and-delete script so a code verifies at
most once and a wrong guess never burns a valid code:

	store := session.NewRedisStore(client, codeTTL, sessionTTL)

MemoryStore is the in-process fallback for development and tests, with
the same single-use and expiry semantics:

	store := session.NewMemoryStore(codeTTL, sessionTTL)

# Errors

ConsumeCode returns ErrCodeInvalid for absent, expired, and mismatched
codes alike; GetSession returns ErrSessionInvalid for absent and expired
sessions. One error per check so callers cannot leak which case failed.

Re-issuing a code for the same voter and election supersedes the old
one. A Session binds a verified voter to exactly one election.
*/
package session
