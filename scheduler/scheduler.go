// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scheduler

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/danielhkuo/safely-elect/models"
	"github.com/danielhkuo/safely-elect/notify"
	"github.com/danielhkuo/safely-elect/tally"
)

// Materializer freezes voter and candidate rosters into per-election
// snapshots once an election's voting window opens, and flips the election
// to populated exactly once. It owns the only clock in the system; ticks run
// synchronously in the loop goroutine, so they can never overlap - a tick
// that overruns simply absorbs the missed fires.
type Materializer struct {
	db       *sql.DB
	cipher   *tally.Cipher
	notifier notify.Notifier
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

func NewMaterializer(db *sql.DB, cipher *tally.Cipher, notifier notify.Notifier, interval time.Duration) *Materializer {
	return &Materializer{
		db:       db,
		cipher:   cipher,
		notifier: notifier,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start launches the tick loop.
func (m *Materializer) Start() {
	ticker := time.NewTicker(m.interval)

	go func() {
		defer close(m.doneChan)
		defer ticker.Stop()

		for {
			select {
			case now := <-ticker.C:
				if err := m.Tick(context.Background(), now); err != nil {
					slog.Error("materializer tick failed", "error", err)
				}
			case <-m.stopChan:
				return
			}
		}
	}()
}

// Stop halts the tick loop and waits for an in-flight tick to finish.
func (m *Materializer) Stop() {
	close(m.stopChan)
	<-m.doneChan
}

// Tick runs one materializer pass at the given instant. Exported so tests
// drive it directly without timers. A failure on one election is logged and
// does not abort the others.
func (m *Materializer) Tick(ctx context.Context, now time.Time) error {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, voter_lists, candidate_lists
		FROM election
		WHERE start_time <= $1 AND populated = FALSE
	`, now)
	if err != nil {
		return fmt.Errorf("failed to query unpopulated elections: %w", err)
	}
	defer rows.Close()

	type pending struct {
		id, name       string
		voterLists     []string
		candidateLists []string
	}

	var due []pending
	for rows.Next() {
		var p pending
		var voterJSON, candidateJSON []byte
		if err := rows.Scan(&p.id, &p.name, &voterJSON, &candidateJSON); err != nil {
			slog.Error("failed to scan election", "error", err)
			continue
		}
		if err := json.Unmarshal(voterJSON, &p.voterLists); err != nil {
			slog.Error("failed to decode voter lists", "election_id", p.id, "error", err)
			continue
		}
		if err := json.Unmarshal(candidateJSON, &p.candidateLists); err != nil {
			slog.Error("failed to decode candidate lists", "election_id", p.id, "error", err)
			continue
		}
		due = append(due, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate elections: %w", err)
	}
	rows.Close()

	for _, p := range due {
		if err := m.populate(ctx, p.id, p.name, p.voterLists, p.candidateLists, now); err != nil {
			slog.Error("failed to populate election", "election_id", p.id, "error", err)
		}
	}

	if err := m.notifyClosed(ctx, now); err != nil {
		slog.Error("failed to send closing notifications", "error", err)
	}

	return nil
}

// populate materializes both snapshots for one election. Both snapshot
// passes are idempotent, so a restart after a partial write finishes the
// snapshot without duplicating rows or events.
func (m *Materializer) populate(ctx context.Context, electionID, electionName string, voterLists, candidateLists []string, now time.Time) error {
	voterCount, err := m.snapshotVoters(ctx, electionID, electionName, voterLists, now)
	if err != nil {
		return err
	}

	candidateCount, err := m.snapshotCandidates(ctx, electionID, candidateLists)
	if err != nil {
		return err
	}

	if voterCount == 0 {
		// An election whose roster union is empty can never be voted on;
		// leave it unpopulated and let the operator fix the rosters.
		slog.Warn("election has no voters, skipping population", "election_id", electionID)
		return nil
	}
	if candidateCount == 0 {
		return fmt.Errorf("candidate snapshot empty for election %s", electionID)
	}

	// Flip populated exactly once; a concurrent or repeated tick sees zero
	// affected rows and emits nothing.
	res, err := m.db.ExecContext(ctx, `
		UPDATE election SET populated = TRUE
		WHERE id = $1 AND populated = FALSE
	`, electionID)
	if err != nil {
		return fmt.Errorf("failed to mark election populated: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read populate result: %w", err)
	}
	if affected == 0 {
		return nil
	}

	slog.Info("election populated", "election_id", electionID, "voters", voterCount, "candidates", candidateCount)
	m.notifyVoters(ctx, electionID, electionName, notify.KindVotingOpened, now)
	return nil
}

// snapshotVoters writes the frozen voter snapshot and returns the snapshot
// size. The per-row inserts are idempotent, so a crash partway through is
// completed by the next tick; the registered event fires only for rows this
// pass actually wrote.
func (m *Materializer) snapshotVoters(ctx context.Context, electionID, electionName string, lists []string, now time.Time) (int, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT DISTINCT ON (voter_id) voter_id, name, email, secret_hash
		FROM voter
		WHERE list_name = ANY($1)
		ORDER BY voter_id, list_name
	`, pq.Array(lists))
	if err != nil {
		return 0, fmt.Errorf("failed to union voter lists: %w", err)
	}
	defer rows.Close()

	var voters []models.VoterEntry
	var hashes []string
	for rows.Next() {
		var v models.VoterEntry
		var hash string
		if err := rows.Scan(&v.VoterID, &v.Name, &v.Email, &hash); err != nil {
			return 0, fmt.Errorf("failed to scan voter: %w", err)
		}
		voters = append(voters, v)
		hashes = append(hashes, hash)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to iterate voters: %w", err)
	}

	for i, v := range voters {
		res, err := m.db.ExecContext(ctx, `
			INSERT INTO election_voter (election_id, voter_id, name, email, secret_hash, has_voted)
			VALUES ($1, $2, $3, $4, $5, FALSE)
			ON CONFLICT (election_id, voter_id) DO NOTHING
		`, electionID, v.VoterID, v.Name, v.Email, hashes[i])
		if err != nil {
			return 0, fmt.Errorf("failed to write voter snapshot row: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read voter snapshot result: %w", err)
		}
		if affected == 0 {
			continue
		}

		m.publish(ctx, notify.Event{
			Kind:         notify.KindVoterRegistered,
			ElectionID:   electionID,
			ElectionName: electionName,
			VoterID:      v.VoterID,
			Email:        v.Email,
			OccurredAt:   now,
		})
	}

	return len(voters), nil
}

// snapshotCandidates writes the frozen candidate snapshot, injecting the
// mandatory abstention candidate, and returns the snapshot size. Like the
// voter snapshot, the inserts are idempotent and a partial write is
// completed on the next tick; rows already present keep their tally.
func (m *Materializer) snapshotCandidates(ctx context.Context, electionID string, lists []string) (int, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT DISTINCT ON (candidate_id) candidate_id, name, COALESCE(party, '')
		FROM candidate
		WHERE list_name = ANY($1)
		ORDER BY candidate_id, list_name
	`, pq.Array(lists))
	if err != nil {
		return 0, fmt.Errorf("failed to union candidate lists: %w", err)
	}
	defer rows.Close()

	var candidates []models.CandidateEntry
	seenAbstain := false
	for rows.Next() {
		var c models.CandidateEntry
		if err := rows.Scan(&c.CandidateID, &c.Name, &c.Party); err != nil {
			return 0, fmt.Errorf("failed to scan candidate: %w", err)
		}
		if c.CandidateID == models.AbstainCandidateID {
			seenAbstain = true
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to iterate candidates: %w", err)
	}

	if !seenAbstain {
		candidates = append(candidates, models.CandidateEntry{
			CandidateID: models.AbstainCandidateID,
			Name:        models.AbstainCandidateName,
		})
	}

	for _, c := range candidates {
		zero, err := m.cipher.Encrypt(0)
		if err != nil {
			return 0, fmt.Errorf("failed to encrypt starting tally: %w", err)
		}

		_, err = m.db.ExecContext(ctx, `
			INSERT INTO election_candidate (election_id, candidate_id, name, party, tally)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (election_id, candidate_id) DO NOTHING
		`, electionID, c.CandidateID, c.Name, c.Party, zero)
		if err != nil {
			return 0, fmt.Errorf("failed to write candidate snapshot row: %w", err)
		}
	}

	return len(candidates), nil
}

// notifyClosed emits one voting-closed event per registered voter for every
// election whose end time fell inside the last tick interval. Best effort:
// an end time straddling a missed tick is caught by the widened window of
// the next tick only if it still falls inside it.
func (m *Materializer) notifyClosed(ctx context.Context, now time.Time) error {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name FROM election
		WHERE populated = TRUE AND end_time > $1 AND end_time <= $2
	`, now.Add(-m.interval), now)
	if err != nil {
		return fmt.Errorf("failed to query ended elections: %w", err)
	}
	defer rows.Close()

	type ended struct{ id, name string }
	var done []ended
	for rows.Next() {
		var e ended
		if err := rows.Scan(&e.id, &e.name); err != nil {
			return fmt.Errorf("failed to scan ended election: %w", err)
		}
		done = append(done, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate ended elections: %w", err)
	}
	rows.Close()

	for _, e := range done {
		m.notifyVoters(ctx, e.id, e.name, notify.KindVotingClosed, now)
	}
	return nil
}

// notifyVoters publishes one event of the given kind per snapshot voter.
// Publish failures are logged and never abort the caller.
func (m *Materializer) notifyVoters(ctx context.Context, electionID, electionName, kind string, now time.Time) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT voter_id, email FROM election_voter WHERE election_id = $1
	`, electionID)
	if err != nil {
		slog.Error("failed to query snapshot voters for notification", "election_id", electionID, "error", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var voterID, email string
		if err := rows.Scan(&voterID, &email); err != nil {
			slog.Error("failed to scan snapshot voter", "election_id", electionID, "error", err)
			return
		}

		m.publish(ctx, notify.Event{
			Kind:         kind,
			ElectionID:   electionID,
			ElectionName: electionName,
			VoterID:      voterID,
			Email:        email,
			OccurredAt:   now,
		})
	}
}

func (m *Materializer) publish(ctx context.Context, event notify.Event) {
	if err := m.notifier.Publish(ctx, event); err != nil {
		slog.Error("notification publish failed",
			"kind", event.Kind,
			"election_id", event.ElectionID,
			"error", err,
		)
	}
}
