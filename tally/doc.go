// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package tally provides encrypted vote counters.

Per-candidate counts never appear in the database in the clear. Each
count is an AES-256-GCM token; the key is the Keccak-256 digest of the
configured secret.

# Usage

	cipher, err := tally.NewCipher(secret)

	token, err := cipher.Encrypt(0)       // fresh counter
	next, err := cipher.Increment(token)  // decrypt, +1, re-encrypt
	count, err := cipher.Decrypt(token)

Every Encrypt uses a fresh random nonce, so two tokens for the same
count are never byte-equal and the stored tallies reveal nothing about
relative vote counts.

# Integrity

Decrypt returns ErrCorruptTally for any token that fails GCM
authentication (truncation, bit flips, a token encrypted under a
different secret). Callers treat it as fatal for the affected election:
a tampered counter cannot be silently re-zeroed.
*/
package tally
