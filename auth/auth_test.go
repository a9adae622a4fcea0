// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"regexp"
	"testing"
	"time"
)

func TestResolveCapability(t *testing.T) {
	tests := []struct {
		name      string
		presented string
		expected  Capability
		wantErr   bool
	}{
		{"reviewer key", "rev-key", CapabilityReviewer, false},
		{"submitter key", "sub-key", CapabilitySubmitter, false},
		{"unknown key", "other", "", true},
		{"empty key", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capability, err := ResolveCapability(tt.presented, "rev-key", "sub-key")
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAdminKey) {
					t.Errorf("Expected ErrInvalidAdminKey, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if capability != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, capability)
			}
		})
	}
}

func TestGenerateID(t *testing.T) {
	id1, err := GenerateID(16)
	if err != nil {
		t.Fatalf("GenerateID failed: %v", err)
	}
	if len(id1) != 32 {
		t.Errorf("Expected 32 hex chars, got %d", len(id1))
	}

	id2, _ := GenerateID(16)
	if id1 == id2 {
		t.Error("IDs should be unique")
	}
}

func TestGenerateCode(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 20; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode failed: %v", err)
		}
		if !pattern.MatchString(code) {
			t.Errorf("Expected six digits, got '%s'", code)
		}
	}
}

func TestGenerateSessionToken(t *testing.T) {
	token, err := GenerateSessionToken()
	if err != nil {
		t.Fatalf("GenerateSessionToken failed: %v", err)
	}
	if len(token) != 32 {
		t.Errorf("Expected 32 chars for 24 bytes of base64, got %d", len(token))
	}
	for _, r := range token {
		if r == '+' || r == '/' || r == '=' {
			t.Errorf("Token is not URL-safe: contains %q", r)
		}
	}
}

func TestSecretHashing(t *testing.T) {
	hash, err := HashSecret("hunter2")
	if err != nil {
		t.Fatalf("HashSecret failed: %v", err)
	}
	if hash == "hunter2" {
		t.Fatal("Secret stored in cleartext")
	}

	if err := CompareSecret(hash, "hunter2"); err != nil {
		t.Errorf("Correct secret rejected: %v", err)
	}
	if err := CompareSecret(hash, "hunter3"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
	if err := CompareSecret("not-a-hash", "hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Malformed hash should collapse to ErrInvalidCredentials, got %v", err)
	}
}

func TestIntegrityHash(t *testing.T) {
	castAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	base := IntegrityHash("e1", "c1", "v1", castAt)
	if len(base) != 64 {
		t.Errorf("Expected a hex SHA-256 digest, got %d chars", len(base))
	}

	if IntegrityHash("e1", "c1", "v1", castAt) != base {
		t.Error("Hash must be deterministic")
	}

	variants := []string{
		IntegrityHash("e2", "c1", "v1", castAt),
		IntegrityHash("e1", "c2", "v1", castAt),
		IntegrityHash("e1", "c1", "v2", castAt),
		IntegrityHash("e1", "c1", "v1", castAt.Add(time.Nanosecond)),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("Variant %d should change the hash", i)
		}
	}

	// Field boundaries: moving a character across the separator must not
	// produce the same digest.
	if IntegrityHash("e1x", "c1", "v1", castAt) == IntegrityHash("e1", "xc1", "v1", castAt) {
		t.Error("Field boundaries are ambiguous")
	}
}
