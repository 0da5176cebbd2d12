package udpflow

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/udpflow/limits"
	"github.com/opd-ai/udpflow/pacing"
	"github.com/opd-ai/udpflow/wire"
)

// SenderConfig configures one traffic generation run.
type SenderConfig struct {
	// Target is the destination host name or IP address.
	Target string

	// Port is the destination UDP port.
	Port int

	// Rate is the target send rate in packets per second.
	Rate int

	// Duration is the send duration in seconds. The total packet count is
	// fixed up front as round(Rate × Duration).
	Duration float64

	// Size is the datagram size in bytes, header included.
	// Defaults to limits.DefaultDatagram.
	Size int

	// RandomSize emits datagrams with sizes drawn uniformly from
	// [limits.MinRandomDatagram, Size] instead of a fixed Size.
	RandomSize bool

	// SendBuffer is the kernel socket send buffer to request.
	// Defaults to limits.DefaultSocketBuffer.
	SendBuffer int

	// SlipThreshold is the scheduling slip above which a drift warning is
	// logged. Defaults to pacing.DefaultSlipThreshold.
	SlipThreshold time.Duration

	// ReportInterval is the spacing of periodic rate reports.
	// Defaults to one second.
	ReportInterval time.Duration
}

// Sender emits one paced packet flow toward a single destination. A single
// pacing loop drives emission sequentially, so there is exactly one writer
// of sequence numbers per flow.
type Sender struct {
	cfg  SenderConfig
	plan *pacing.Plan
	addr *net.UDPAddr
}

// NewSender validates the configuration and resolves the target address.
// All configuration errors are rejected here, before any packet I/O.
func NewSender(cfg SenderConfig) (*Sender, error) {
	if cfg.Size == 0 {
		cfg.Size = limits.DefaultDatagram
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = limits.DefaultSocketBuffer
	}
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = time.Second
	}

	if err := limits.ValidatePort(cfg.Port); err != nil {
		return nil, err
	}
	if err := limits.ValidateDatagramSize(cfg.Size); err != nil {
		return nil, err
	}

	plan, err := pacing.NewPlan(cfg.Rate, cfg.Duration)
	if err != nil {
		return nil, err
	}

	target := fmt.Sprintf("%s:%d", cfg.Target, cfg.Port)
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, newNetError("resolve", target, err)
	}

	return &Sender{cfg: cfg, plan: plan, addr: addr}, nil
}

// TotalPackets returns the number of packets the run will emit.
func (s *Sender) TotalPackets() int {
	return s.plan.TotalPackets()
}

// Run emits the full packet schedule. It returns nil once every scheduled
// packet has been sent, the context error if canceled mid-run, or a NetError
// on a socket failure. The socket is released on every exit path.
func (s *Sender) Run(ctx context.Context) error {
	conn, err := net.DialUDP("udp", nil, s.addr)
	if err != nil {
		return newNetError("dial", s.addr.String(), err)
	}
	defer conn.Close()

	if err := conn.SetWriteBuffer(s.cfg.SendBuffer); err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "sender",
			"requested": s.cfg.SendBuffer,
		}).WithError(err).Debug("Could not set socket send buffer")
	}

	logrus.WithFields(logrus.Fields{
		"component":     "sender",
		"target":        s.addr.String(),
		"rate_pps":      s.cfg.Rate,
		"duration_s":    s.cfg.Duration,
		"datagram_size": s.cfg.Size,
		"random_size":   s.cfg.RandomSize,
		"total_packets": s.plan.TotalPackets(),
	}).Info("Starting traffic generation")

	pacer := pacing.NewPacer(s.plan)
	pacer.SetSlipThreshold(s.cfg.SlipThreshold)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var sent, sentBytes uint64
	start := time.Now()
	lastReport := start
	var lastSent, lastBytes uint64

	err = pacer.Run(ctx, func(seq uint64, _ time.Time) error {
		size := s.datagramSize(rng)
		pkt := wire.Packet{
			Sequence: seq,
			SentAt:   wire.Timestamp(time.Now()),
		}
		data, err := pkt.Serialize(size)
		if err != nil {
			return err
		}

		if _, err := conn.Write(data); err != nil {
			return newNetError("send", s.addr.String(), err)
		}
		sent++
		sentBytes += uint64(size)

		if now := time.Now(); now.Sub(lastReport) >= s.cfg.ReportInterval {
			elapsed := now.Sub(lastReport).Seconds()
			logrus.WithFields(logrus.Fields{
				"component": "sender",
				"rate_pps":  fmt.Sprintf("%.2f", float64(sent-lastSent)/elapsed),
				"mbps":      fmt.Sprintf("%.2f", float64(sentBytes-lastBytes)*8/elapsed/1e6),
				"total":     sent,
			}).Info("Send rate")
			lastReport = now
			lastSent = sent
			lastBytes = sentBytes
		}
		return nil
	})

	elapsed := time.Since(start)
	fields := logrus.Fields{
		"component":  "sender",
		"sent":       sent,
		"sent_bytes": sentBytes,
		"elapsed":    elapsed,
	}
	if secs := elapsed.Seconds(); secs > 0 {
		fields["avg_pps"] = fmt.Sprintf("%.2f", float64(sent)/secs)
		fields["avg_mbps"] = fmt.Sprintf("%.2f", float64(sentBytes)*8/secs/1e6)
	}
	if err != nil {
		logrus.WithFields(fields).WithError(err).Warn("Traffic generation aborted")
		return err
	}
	logrus.WithFields(fields).Info("Traffic generation complete")
	return nil
}

// datagramSize picks the size of the next datagram. Random sizes never go
// below the packet header or the configured minimum.
func (s *Sender) datagramSize(rng *rand.Rand) int {
	if !s.cfg.RandomSize {
		return s.cfg.Size
	}
	lo := limits.MinRandomDatagram
	if lo < wire.HeaderSize {
		lo = wire.HeaderSize
	}
	if s.cfg.Size <= lo {
		return s.cfg.Size
	}
	return lo + rng.Intn(s.cfg.Size-lo+1)
}
