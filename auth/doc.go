// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides capability resolution, secret hashing, and token
generation utilities.

# Capabilities

Administrative requests present a key in the X-Admin-Key header. The key
is compared against both configured keys in constant time:

	capability, err := auth.ResolveCapability(presented, reviewerKey, submitterKey)

Reviewers can approve, reject, and delete directly; submitters can only
propose. An unrecognized key yields ErrInvalidKey.

# Voter Secrets

Voter secrets are stored as bcrypt hashes:

	hash, err := auth.HashSecret(secret)
	err = auth.CompareSecret(hash, secret)

CompareSecret collapses all failure modes (wrong secret, malformed hash)
into ErrInvalidCredentials so callers cannot distinguish them.

# Tokens and Codes

Random identifiers for database records:

	id, err := auth.GenerateID(16)  // 32 hex characters

One-time login codes are six decimal digits:

	code, err := auth.GenerateCode()

Voting session tokens are random 24-byte (192-bit) secrets, URL-safe
base64 encoded without padding:

	token, err := auth.GenerateSessionToken()

# Ballot Receipts

IntegrityHash computes the receipt returned for a cast ballot:

	receipt := auth.IntegrityHash(electionID, candidateID, voterID, castAt)

It is the hex SHA-256 of the zero-byte-joined fields with the timestamp
in RFC 3339 nanosecond UTC form. The chosen candidate is never stored in
the clear; the receipt is the only record that binds voter to choice.
*/
package auth
