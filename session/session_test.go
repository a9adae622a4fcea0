// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreCodes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10*time.Minute, 15*time.Minute)

	if err := store.PutCode(ctx, "e1", "v1", "123456"); err != nil {
		t.Fatalf("PutCode failed: %v", err)
	}

	t.Run("wrong guess leaves the code intact", func(t *testing.T) {
		if err := store.ConsumeCode(ctx, "e1", "v1", "654321"); !errors.Is(err, ErrCodeInvalid) {
			t.Errorf("Expected ErrCodeInvalid, got %v", err)
		}
		if err := store.ConsumeCode(ctx, "e1", "v1", "123456"); err != nil {
			t.Errorf("Correct code rejected after a wrong guess: %v", err)
		}
	})

	t.Run("a code consumes at most once", func(t *testing.T) {
		if err := store.ConsumeCode(ctx, "e1", "v1", "123456"); !errors.Is(err, ErrCodeInvalid) {
			t.Errorf("Expected ErrCodeInvalid on reuse, got %v", err)
		}
	})

	t.Run("codes are scoped to election and voter", func(t *testing.T) {
		if err := store.PutCode(ctx, "e1", "v1", "111111"); err != nil {
			t.Fatal(err)
		}
		if err := store.ConsumeCode(ctx, "e2", "v1", "111111"); !errors.Is(err, ErrCodeInvalid) {
			t.Error("Code leaked across elections")
		}
		if err := store.ConsumeCode(ctx, "e1", "v2", "111111"); !errors.Is(err, ErrCodeInvalid) {
			t.Error("Code leaked across voters")
		}
	})

	t.Run("re-issue supersedes", func(t *testing.T) {
		store.PutCode(ctx, "e1", "v9", "222222")
		store.PutCode(ctx, "e1", "v9", "333333")

		if err := store.ConsumeCode(ctx, "e1", "v9", "222222"); !errors.Is(err, ErrCodeInvalid) {
			t.Error("Superseded code should be dead")
		}
		if err := store.ConsumeCode(ctx, "e1", "v9", "333333"); err != nil {
			t.Errorf("Fresh code rejected: %v", err)
		}
	})
}

func TestMemoryStoreCodeExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10*time.Minute, 15*time.Minute)

	now := time.Now()
	store.SetClock(func() time.Time { return now })

	if err := store.PutCode(ctx, "e1", "v1", "123456"); err != nil {
		t.Fatal(err)
	}

	now = now.Add(10*time.Minute + time.Second)
	if err := store.ConsumeCode(ctx, "e1", "v1", "123456"); !errors.Is(err, ErrCodeInvalid) {
		t.Errorf("Expected expiry, got %v", err)
	}
}

func TestMemoryStoreSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10*time.Minute, 15*time.Minute)

	sess := Session{VoterID: "v1", ElectionID: "e1"}
	if err := store.PutSession(ctx, "token-1", sess); err != nil {
		t.Fatalf("PutSession failed: %v", err)
	}

	got, err := store.GetSession(ctx, "token-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got != sess {
		t.Errorf("Expected %+v, got %+v", sess, got)
	}

	if _, err := store.GetSession(ctx, "forged"); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("Expected ErrSessionInvalid, got %v", err)
	}

	t.Run("sessions expire", func(t *testing.T) {
		now := time.Now()
		store.SetClock(func() time.Time { return now })

		store.PutSession(ctx, "token-2", sess)
		now = now.Add(15*time.Minute + time.Second)

		if _, err := store.GetSession(ctx, "token-2"); !errors.Is(err, ErrSessionInvalid) {
			t.Errorf("Expected expiry, got %v", err)
		}
	})
}
