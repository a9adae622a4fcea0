// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidAdminKey    = errors.New("invalid admin key")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Capability is one of the two effective privilege levels of the registry.
// Reviewers may approve, reject, and act directly; submitters may only
// propose. Identity strings are attribution only and never drive dispatch.
type Capability string

const (
	CapabilityReviewer  Capability = "reviewer"
	CapabilitySubmitter Capability = "submitter"
)

// ResolveCapability maps a presented admin key onto a capability tag.
// Comparison is constant-time for both keys so a mismatch reveals nothing
// about which key was close.
func ResolveCapability(presented, reviewerKey, submitterKey string) (Capability, error) {
	isReviewer := hmac.Equal([]byte(presented), []byte(reviewerKey))
	isSubmitter := hmac.Equal([]byte(presented), []byte(submitterKey))

	switch {
	case isReviewer:
		return CapabilityReviewer, nil
	case isSubmitter:
		return CapabilitySubmitter, nil
	default:
		return "", ErrInvalidAdminKey
	}
}

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateSessionToken creates a random secure token for a voting session
func GenerateSessionToken() (string, error) {
	b := make([]byte, 24) // 24 bytes = 192 bits of entropy
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	// URL-safe base64 without padding
	return strings.TrimRight(base64.URLEncoding.EncodeToString(b), "="), nil
}

// GenerateCode creates a 6-digit one-time code from a uniform draw.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate one-time code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// HashSecret hashes a voter's secret credential for storage.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

// CompareSecret checks a presented secret against a stored hash.
// bcrypt's comparison is constant-time; any failure collapses to
// ErrInvalidCredentials so callers cannot distinguish failure causes.
func CompareSecret(hash, secret string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// IntegrityHash digests a ballot's fields into the one-way proof stored on
// the audit entry. The candidate id goes in here and nowhere else, so the
// entry proves the ballot existed unaltered without recording the choice.
func IntegrityHash(electionID, candidateID, voterID string, castAt time.Time) string {
	h := sha256.New()
	h.Write([]byte(electionID))
	h.Write([]byte{0})
	h.Write([]byte(candidateID))
	h.Write([]byte{0})
	h.Write([]byte(voterID))
	h.Write([]byte{0})
	h.Write([]byte(castAt.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(h.Sum(nil))
}
