// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package notify publishes election lifecycle events.

The core never sends mail or push itself. It publishes events and
whatever consumes the topic handles delivery.

# Event Kinds

	KindElectionApproved - an election entered the registry
	KindElectionDeleted  - an election was removed
	KindVoterRegistered  - a voter was snapshotted into an election
	KindVotingOpened     - an election's voting window opened
	KindVotingClosed     - an election's voting window closed
	KindLoginCode        - a one-time code for a voter (carries email + code)

# Notifiers

KafkaNotifier writes events to a Kafka topic, keyed by election ID so
events for the same election stay ordered within a partition:

	notifier := notify.NewKafkaNotifier(brokers, topic)

LogNotifier writes events to the process log when no broker is
configured:

	notifier := notify.NewLogNotifier(slog.Default())

Recorder captures events in memory for tests:

	rec := notify.NewRecorder()
	codes := rec.EventsOfKind(notify.KindLoginCode)

Publish failures are non-fatal to the operation that triggered them:
callers log and continue, never roll back.
*/
package notify
