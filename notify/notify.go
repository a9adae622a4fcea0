// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Event kinds emitted by the core. Delivery (mail, push, whatever) happens in
// whatever consumes the topic; the core only publishes.
const (
	KindElectionApproved = "election-approved"
	KindElectionDeleted  = "election-deleted"
	KindVoterRegistered  = "voter-registered"
	KindVotingOpened     = "voting-opened"
	KindVotingClosed     = "voting-closed"
	KindLoginCode        = "login-code"
)

type Event struct {
	Kind         string    `json:"kind"`
	ElectionID   string    `json:"election_id"`
	ElectionName string    `json:"election_name,omitempty"`
	VoterID      string    `json:"voter_id,omitempty"`
	Email        string    `json:"email,omitempty"`
	Code         string    `json:"code,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Notifier publishes core events to the external collaborator. Publish
// failures are non-fatal to the operation that triggered them: callers log
// and continue, never roll back.
type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

// LogNotifier writes events to the process log. Used when no broker is
// configured (local development).
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Publish(ctx context.Context, event Event) error {
	n.log.Info("notification",
		"kind", event.Kind,
		"election_id", event.ElectionID,
		"voter_id", event.VoterID,
	)
	return nil
}

// Recorder is an in-memory Notifier for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// EventsOfKind filters recorded events by kind.
func (r *Recorder) EventsOfKind(kind string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
