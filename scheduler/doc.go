// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package scheduler runs the roster materializer loop.

An approved election references voter and candidate lists by name; the
materializer turns those references into frozen per-election snapshots
when the voting window opens.

# Usage

	m := scheduler.NewMaterializer(db, cipher, notifier, interval)
	m.Start()
	defer m.Stop()

Start launches a ticker goroutine; each tick is also callable directly,
which is how the tests drive it:

	err := m.Tick(ctx, time.Now())

# What a Tick Does

For every unpopulated election whose start time has passed:

  - Unions the election's voter lists (deduplicated by voter ID) into
    election_voter rows and publishes a voter-registered event per voter.
  - Unions the candidate lists into election_candidate rows, each with a
    freshly encrypted zero tally, and injects the abstention entry.
  - Marks the election populated and publishes a voting-opened event
    per snapshot voter.

Elections whose roster union is empty are skipped and retried on the
next tick. Snapshot rows insert with ON CONFLICT DO NOTHING and the
populated flag flips with a conditional update, so a tick is
idempotent: a crash partway through a snapshot is completed by the
next tick, and re-running never duplicates snapshot rows or events.

A tick also publishes voting-closed events (one per snapshot voter) for
each election whose end time fell inside the last tick interval.
*/
package scheduler
