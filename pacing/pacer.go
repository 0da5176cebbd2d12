// Package pacing schedules fixed-rate packet emission for the udpflow sender.
//
// A Plan describes a finite send schedule: a positive packet rate and a
// bounded duration fixing the total packet count up front. A Pacer consumes a
// Plan against a wall clock, blocking between packets so that packet i fires
// at the absolute instant start + i/rate. Waits are always recomputed against
// the absolute per-packet target, never a relative delta from the previous
// tick, so slow wake-ups do not accumulate drift. A slot that has already
// passed fires immediately: the full packet count is always delivered, at the
// cost of instantaneous rate accuracy under overload.
package pacing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultSlipThreshold is the scheduling slip above which a drift warning is
// logged for a late send instant.
const DefaultSlipThreshold = 10 * time.Millisecond

// driftWarnInterval bounds how often drift warnings are emitted. Under
// sustained overload every slot is late and per-packet warnings would drown
// the log.
const driftWarnInterval = time.Second

var (
	// ErrInvalidRate indicates a non-positive packet rate.
	ErrInvalidRate = errors.New("packet rate must be positive")

	// ErrInvalidDuration indicates a non-positive send duration.
	ErrInvalidDuration = errors.New("send duration must be positive")
)

// Plan is an immutable fixed-rate send schedule.
type Plan struct {
	rate  int
	total int
}

// NewPlan creates a send schedule for the given rate in packets per second
// and duration in seconds. Both must be positive; validation failures are
// configuration errors reported before any scheduling begins.
func NewPlan(rate int, durationSeconds float64) (*Plan, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRate, rate)
	}
	if durationSeconds <= 0 || math.IsInf(durationSeconds, 0) || math.IsNaN(durationSeconds) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDuration, durationSeconds)
	}

	return &Plan{
		rate:  rate,
		total: int(math.Round(float64(rate) * durationSeconds)),
	}, nil
}

// Rate returns the target rate in packets per second.
func (p *Plan) Rate() int {
	return p.rate
}

// TotalPackets returns the number of packets the plan schedules,
// round(rate × duration).
func (p *Plan) TotalPackets() int {
	return p.total
}

// Offset returns the send instant of packet i relative to the start of the
// run, i/rate.
func (p *Plan) Offset(i int) time.Duration {
	return time.Duration(i) * time.Second / time.Duration(p.rate)
}

// EmitFunc is called once per scheduled packet with the packet's sequence
// number and its absolute target send instant. Returning an error aborts the
// run.
type EmitFunc func(seq uint64, target time.Time) error

// Pacer drives an EmitFunc through a Plan, one emission per scheduled
// instant. Each Run anchors the plan to a fresh start time.
type Pacer struct {
	plan          *Plan
	clock         TimeProvider
	slipThreshold time.Duration
	lastDriftWarn time.Time
}

// NewPacer creates a pacer for the given plan.
func NewPacer(plan *Plan) *Pacer {
	return &Pacer{
		plan:          plan,
		clock:         RealTimeProvider{},
		slipThreshold: DefaultSlipThreshold,
	}
}

// SetTimeProvider replaces the clock used for scheduling.
// This is primarily useful for testing to inject deterministic time.
func (p *Pacer) SetTimeProvider(tp TimeProvider) {
	if tp == nil {
		tp = RealTimeProvider{}
	}
	p.clock = tp
}

// SetSlipThreshold sets the scheduling slip above which a drift warning is
// logged. Non-positive values restore the default.
func (p *Pacer) SetSlipThreshold(d time.Duration) {
	if d <= 0 {
		d = DefaultSlipThreshold
	}
	p.slipThreshold = d
}

// Run emits every packet in the plan, blocking between emissions until each
// packet's target instant. It returns nil once all packets have fired, the
// context error if canceled mid-run, or the first error returned by emit.
func (p *Pacer) Run(ctx context.Context, emit EmitFunc) error {
	start := p.clock.Now()
	total := p.plan.TotalPackets()

	logrus.WithFields(logrus.Fields{
		"component":     "pacer",
		"rate_pps":      p.plan.Rate(),
		"total_packets": total,
	}).Debug("Starting pacing run")

	for i := 0; i < total; i++ {
		target := start.Add(p.plan.Offset(i))
		if err := p.waitUntil(ctx, target); err != nil {
			return err
		}

		if slip := p.clock.Now().Sub(target); slip > p.slipThreshold {
			p.warnDrift(uint64(i), slip)
		}

		if err := emit(uint64(i), target); err != nil {
			return err
		}
	}

	return nil
}

// waitUntil blocks until the clock reaches target or the context is
// canceled. The deadline is re-checked after every timer fire so an early
// wake-up never releases a packet ahead of its slot.
func (p *Pacer) waitUntil(ctx context.Context, target time.Time) error {
	for {
		d := target.Sub(p.clock.Now())
		if d <= 0 {
			return nil
		}

		timer := p.clock.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (p *Pacer) warnDrift(seq uint64, slip time.Duration) {
	now := p.clock.Now()
	if now.Sub(p.lastDriftWarn) < driftWarnInterval {
		return
	}
	p.lastDriftWarn = now

	logrus.WithFields(logrus.Fields{
		"component": "pacer",
		"sequence":  seq,
		"slip":      slip,
		"threshold": p.slipThreshold,
	}).Warn("Send instant missed beyond slip threshold")
}
