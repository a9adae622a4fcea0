// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

var (
	// ErrCodeInvalid covers absent, expired, and mismatched one-time codes.
	// One error for all three so the caller cannot leak which check failed.
	ErrCodeInvalid = errors.New("invalid or expired code")

	// ErrSessionInvalid covers absent and expired voting sessions.
	ErrSessionInvalid = errors.New("invalid or expired session")
)

// Session binds a verified voter to one election for the short window
// between code verification and ballot casting.
type Session struct {
	VoterID    string `json:"voter_id"`
	ElectionID string `json:"election_id"`
}

// Store holds one-time codes and voting sessions. Codes are single-use and
// superseded on re-issue; both codes and sessions expire passively.
type Store interface {
	PutCode(ctx context.Context, electionID, voterID, code string) error
	ConsumeCode(ctx context.Context, electionID, voterID, code string) error
	PutSession(ctx context.Context, token string, s Session) error
	GetSession(ctx context.Context, token string) (Session, error)
}

const (
	codeKeyPrefix    = "vote:code:"
	sessionKeyPrefix = "vote:session:"
)

// consumeCodeScript deletes the code only when it matches, so a wrong guess
// cannot burn a valid code and a correct code verifies at most once.
const consumeCodeScript = `
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		redis.call('DEL', KEYS[1])
		return 1
	end
	return 0
`

// RedisStore keeps codes and sessions in Redis with native TTL expiry.
type RedisStore struct {
	client     *redis.Client
	consume    *redis.Script
	codeTTL    time.Duration
	sessionTTL time.Duration
}

func NewRedisStore(client *redis.Client, codeTTL, sessionTTL time.Duration) *RedisStore {
	return &RedisStore{
		client:     client,
		consume:    redis.NewScript(consumeCodeScript),
		codeTTL:    codeTTL,
		sessionTTL: sessionTTL,
	}
}

func codeKey(electionID, voterID string) string {
	return codeKeyPrefix + electionID + ":" + voterID
}

// PutCode stores a fresh code, overwriting any outstanding one for the same
// voter and election.
func (s *RedisStore) PutCode(ctx context.Context, electionID, voterID, code string) error {
	if err := s.client.Set(ctx, codeKey(electionID, voterID), code, s.codeTTL).Err(); err != nil {
		return fmt.Errorf("failed to store one-time code: %w", err)
	}
	return nil
}

func (s *RedisStore) ConsumeCode(ctx context.Context, electionID, voterID, code string) error {
	res, err := s.consume.Run(ctx, s.client, []string{codeKey(electionID, voterID)}, code).Int()
	if err != nil {
		return fmt.Errorf("failed to consume one-time code: %w", err)
	}
	if res != 1 {
		return ErrCodeInvalid
	}
	return nil
}

func (s *RedisStore) PutSession(ctx context.Context, token string, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+token, data, s.sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *RedisStore) GetSession(ctx context.Context, token string) (Session, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		if err == redis.Nil {
			return Session{}, ErrSessionInvalid
		}
		return Session{}, fmt.Errorf("failed to load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return Session{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return sess, nil
}

// MemoryStore is a single-node Store for deployments without Redis and for
// tests. Expiry is passive: stale entries simply fail to match.
type MemoryStore struct {
	mu         sync.Mutex
	codes      map[string]memoryEntry
	sessions   map[string]memoryEntry
	codeTTL    time.Duration
	sessionTTL time.Duration

	// now is replaceable so tests can drive expiry without sleeping.
	now func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func NewMemoryStore(codeTTL, sessionTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		codes:      make(map[string]memoryEntry),
		sessions:   make(map[string]memoryEntry),
		codeTTL:    codeTTL,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// SetClock overrides the store's clock. Tests only.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) PutCode(ctx context.Context, electionID, voterID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[codeKey(electionID, voterID)] = memoryEntry{
		value:     code,
		expiresAt: s.now().Add(s.codeTTL),
	}
	return nil
}

func (s *MemoryStore) ConsumeCode(ctx context.Context, electionID, voterID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := codeKey(electionID, voterID)
	entry, ok := s.codes[key]
	if !ok || s.now().After(entry.expiresAt) {
		return ErrCodeInvalid
	}
	if !hmac.Equal([]byte(entry.value), []byte(code)) {
		return ErrCodeInvalid
	}

	delete(s.codes, key)
	return nil
}

func (s *MemoryStore) PutSession(ctx context.Context, token string, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = memoryEntry{
		value:     string(data),
		expiresAt: s.now().Add(s.sessionTTL),
	}
	return nil
}

func (s *MemoryStore) GetSession(ctx context.Context, token string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[token]
	if !ok || s.now().After(entry.expiresAt) {
		return Session{}, ErrSessionInvalid
	}

	var sess Session
	if err := json.Unmarshal([]byte(entry.value), &sess); err != nil {
		return Session{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return sess, nil
}
