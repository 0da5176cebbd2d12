// Package stats reconstructs loss, duplication and jitter figures for one
// received UDP flow.
//
// A Flow is a small state machine fed one decoded packet at a time from a
// single receive loop. It moves from Empty (nothing seen yet) to Active on
// the first packet, and to Finalized when the session ends, at which point it
// yields an immutable Summary. Loss is inferred from gaps in the sequence
// numbers; any non-increasing sequence counts as a duplicate/reorder event.
// Jitter is the RFC 3550 style one-way delay variation: the difference
// between inter-packet arrival spacing and inter-packet send spacing, tracked
// with a running Welford mean/variance.
//
// A Flow is not safe for concurrent use; each receiving session owns exactly
// one Flow and mutates it from its read loop only.
package stats

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// State identifies the lifecycle stage of a Flow.
type State int

const (
	// StateEmpty means no packet has been processed yet.
	StateEmpty State = iota
	// StateActive means at least one packet has been processed.
	StateActive
	// StateFinalized is terminal; the summary is computed and no further
	// mutation is accepted.
	StateFinalized
)

// ErrFlowFinalized indicates a mutation was attempted after Finalize.
var ErrFlowFinalized = errors.New("flow already finalized")

// Flow tracks receive-side statistics for one sender/receiver session.
type Flow struct {
	session uuid.UUID
	state   State

	received uint64
	maxSeq   uint64
	lost     uint64
	dups     uint64
	errs     uint64
	bytes    uint64

	jitter welford

	prevSentAt   time.Time
	prevArrival  time.Time
	firstArrival time.Time
	lastArrival  time.Time

	summary *Summary
}

// Snapshot is a cheap copy of the running counters, used for periodic
// reporting while the flow is still live.
type Snapshot struct {
	Received   uint64
	Lost       uint64
	Duplicates uint64
	Errors     uint64
	Bytes      uint64
}

// Summary is the immutable result of a finalized flow.
type Summary struct {
	SessionID  uuid.UUID
	Received   uint64
	Lost       uint64
	Duplicates uint64
	Errors     uint64
	Bytes      uint64

	// MaxSequence is the highest sequence number observed.
	MaxSequence uint64

	// LossRate is Lost / (Received + Lost), or 0 when nothing was expected.
	LossRate float64

	// JitterMean and JitterStdDev summarize the one-way delay variation
	// samples.
	JitterMean   time.Duration
	JitterStdDev time.Duration

	// AchievedPPS is the average receive rate between the first and last
	// arrival, or 0 when the flow is too short to measure.
	AchievedPPS float64

	FirstArrival time.Time
	LastArrival  time.Time
	Elapsed      time.Duration
}

// NewFlow creates an empty flow with a fresh session ID.
func NewFlow() *Flow {
	return &Flow{session: uuid.New()}
}

// SessionID returns the identifier attached to this receiving session.
func (f *Flow) SessionID() uuid.UUID {
	return f.session
}

// State returns the current lifecycle stage.
func (f *Flow) State() State {
	return f.state
}

// Process feeds one decoded packet into the flow. sentAt is the sender's
// timestamp carried in the packet, arrivedAt the local receive time, and size
// the datagram length in bytes. It fails with ErrFlowFinalized once the flow
// has been finalized.
func (f *Flow) Process(seq uint64, sentAt, arrivedAt time.Time, size int) error {
	switch f.state {
	case StateFinalized:
		return ErrFlowFinalized

	case StateEmpty:
		f.maxSeq = seq
		f.received = 1
		f.firstArrival = arrivedAt
		f.state = StateActive

	case StateActive:
		if seq > f.maxSeq {
			f.lost += seq - f.maxSeq - 1
			f.maxSeq = seq
			f.received++
		} else {
			// Non-increasing sequence: duplicate or reordered. Counted but
			// never unwinds the loss figure.
			f.dups++
		}

		delta := arrivedAt.Sub(f.prevArrival) - sentAt.Sub(f.prevSentAt)
		f.jitter.add(float64(delta))
	}

	f.prevSentAt = sentAt
	f.prevArrival = arrivedAt
	f.lastArrival = arrivedAt
	f.bytes += uint64(size)
	return nil
}

// RecordError counts a malformed datagram. The datagram is otherwise
// discarded; sequence tracking is not touched. Fails with ErrFlowFinalized
// once the flow has been finalized.
func (f *Flow) RecordError() error {
	if f.state == StateFinalized {
		return ErrFlowFinalized
	}
	f.errs++
	return nil
}

// Snapshot returns the current counters. Valid in any state.
func (f *Flow) Snapshot() Snapshot {
	return Snapshot{
		Received:   f.received,
		Lost:       f.lost,
		Duplicates: f.dups,
		Errors:     f.errs,
		Bytes:      f.bytes,
	}
}

// Finalize transitions the flow to its terminal state and returns the
// summary. It is idempotent: repeated calls return the same cached summary.
// A flow finalized while still Empty yields an all-zero summary.
func (f *Flow) Finalize() Summary {
	if f.state == StateFinalized {
		return *f.summary
	}

	s := Summary{
		SessionID:    f.session,
		Received:     f.received,
		Lost:         f.lost,
		Duplicates:   f.dups,
		Errors:       f.errs,
		Bytes:        f.bytes,
		MaxSequence:  f.maxSeq,
		JitterMean:   time.Duration(f.jitter.mean),
		JitterStdDev: time.Duration(f.jitter.stddev()),
		FirstArrival: f.firstArrival,
		LastArrival:  f.lastArrival,
	}

	if expected := f.received + f.lost; expected > 0 {
		s.LossRate = float64(f.lost) / float64(expected)
	}
	if elapsed := f.lastArrival.Sub(f.firstArrival); elapsed > 0 {
		s.Elapsed = elapsed
		s.AchievedPPS = float64(f.received) / elapsed.Seconds()
	}

	f.summary = &s
	f.state = StateFinalized
	return s
}
