package udpflow

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/udpflow/limits"
	"github.com/opd-ai/udpflow/stats"
	"github.com/opd-ai/udpflow/wire"
)

// readTimeout is the fixed deadline applied to every socket read so the loop
// can notice context cancellation and the idle timeout while no traffic is
// arriving.
const readTimeout = 100 * time.Millisecond

// DefaultIdleTimeout is the receive window after which a quiet flow is
// considered finished.
const DefaultIdleTimeout = 10 * time.Second

// ReceiverConfig configures one receiving session.
type ReceiverConfig struct {
	// Port is the UDP port to listen on. 0 selects an ephemeral port,
	// readable afterwards via LocalAddr.
	Port int

	// BufferSize is the size of the single-datagram read buffer. Datagrams
	// longer than this are truncated by the kernel, so it defaults to
	// limits.MaxDatagram.
	BufferSize int

	// RecvBuffer is the kernel socket receive buffer to request.
	// Defaults to limits.DefaultSocketBuffer.
	RecvBuffer int

	// IdleTimeout ends the session when no datagram arrives within the
	// window. Defaults to DefaultIdleTimeout.
	IdleTimeout time.Duration

	// ReportInterval is the spacing of periodic rate reports.
	// Defaults to one second.
	ReportInterval time.Duration
}

// Receiver ingests one packet flow and reconstructs its statistics. A single
// read loop pulls datagrams sequentially and is the only mutator of the
// flow, so no locking is needed within a session.
type Receiver struct {
	cfg  ReceiverConfig
	conn *net.UDPConn
	flow *stats.Flow
}

// NewReceiver validates the configuration and binds the listening socket, so
// a port conflict surfaces before the caller commits to a run.
func NewReceiver(cfg ReceiverConfig) (*Receiver, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = limits.MaxDatagram
	}
	if cfg.RecvBuffer <= 0 {
		cfg.RecvBuffer = limits.DefaultSocketBuffer
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = time.Second
	}

	if cfg.Port != 0 {
		if err := limits.ValidatePort(cfg.Port); err != nil {
			return nil, err
		}
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: cfg.Port})
	if err != nil {
		return nil, newNetError("listen", fmt.Sprintf(":%d", cfg.Port), err)
	}

	if err := conn.SetReadBuffer(cfg.RecvBuffer); err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "receiver",
			"requested": cfg.RecvBuffer,
		}).WithError(err).Debug("Could not set socket receive buffer")
	}

	return &Receiver{
		cfg:  cfg,
		conn: conn,
		flow: stats.NewFlow(),
	}, nil
}

// LocalAddr returns the bound listening address.
func (r *Receiver) LocalAddr() net.Addr {
	return r.conn.LocalAddr()
}

// Close releases the listening socket without running the session. Run
// closes the socket itself; Close exists for callers that abandon the
// receiver before running it.
func (r *Receiver) Close() error {
	return r.conn.Close()
}

// Run pulls datagrams until the context is canceled or no datagram has
// arrived within the idle timeout, then finalizes the flow and returns its
// summary. The flow is finalized exactly once and the socket is released on
// every exit path. Malformed datagrams are counted and dropped; only socket
// failures end the session with an error.
func (r *Receiver) Run(ctx context.Context) (stats.Summary, error) {
	defer r.conn.Close()

	logrus.WithFields(logrus.Fields{
		"component":    "receiver",
		"session_id":   r.flow.SessionID(),
		"listen_addr":  r.conn.LocalAddr().String(),
		"idle_timeout": r.cfg.IdleTimeout,
	}).Info("Listening for traffic")

	buf := make([]byte, r.cfg.BufferSize)
	lastActivity := time.Now()
	lastReport := time.Now()
	var lastSnap stats.Snapshot

	var runErr error

loop:
	for {
		if ctx.Err() != nil {
			break
		}

		if err := r.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			runErr = newNetError("receive", r.conn.LocalAddr().String(), err)
			break
		}

		n, _, err := r.conn.ReadFromUDP(buf)
		now := time.Now()

		switch {
		case err == nil:
			lastActivity = now
			r.ingest(buf[:n], now)

		default:
			netErr, ok := err.(net.Error)
			if !ok || !netErr.Timeout() {
				runErr = newNetError("receive", r.conn.LocalAddr().String(), err)
				break loop
			}
			if now.Sub(lastActivity) >= r.cfg.IdleTimeout {
				logrus.WithFields(logrus.Fields{
					"component":    "receiver",
					"session_id":   r.flow.SessionID(),
					"idle_timeout": r.cfg.IdleTimeout,
				}).Info("Idle timeout reached")
				break loop
			}
		}

		if now.Sub(lastReport) >= r.cfg.ReportInterval {
			lastSnap = r.report(now.Sub(lastReport), lastSnap)
			lastReport = now
		}
	}

	summary := r.flow.Finalize()

	fields := logrus.Fields{
		"component":  "receiver",
		"session_id": summary.SessionID,
		"received":   summary.Received,
		"lost":       summary.Lost,
		"duplicates": summary.Duplicates,
		"errors":     summary.Errors,
		"loss_rate":  fmt.Sprintf("%.4f", summary.LossRate),
	}
	if runErr != nil {
		logrus.WithFields(fields).WithError(runErr).Warn("Receive session aborted")
		return summary, runErr
	}
	logrus.WithFields(fields).Info("Receive session finalized")
	return summary, nil
}

// ingest decodes one datagram and feeds it to the flow. Decode failures are
// counted and never end the session.
func (r *Receiver) ingest(data []byte, arrivedAt time.Time) {
	pkt, err := wire.ParsePacket(data)
	if err != nil {
		_ = r.flow.RecordError()
		logrus.WithFields(logrus.Fields{
			"component": "receiver",
			"length":    len(data),
		}).WithError(err).Debug("Dropped malformed datagram")
		return
	}

	_ = r.flow.Process(pkt.Sequence, wire.At(pkt.SentAt), arrivedAt, len(data))
}

// report logs the receive rate over the elapsed reporting window and returns
// the snapshot the next window will be measured against.
func (r *Receiver) report(window time.Duration, prev stats.Snapshot) stats.Snapshot {
	snap := r.flow.Snapshot()
	secs := window.Seconds()
	if secs <= 0 {
		return snap
	}

	var lossRate float64
	if expected := snap.Received + snap.Lost; expected > 0 {
		lossRate = float64(snap.Lost) / float64(expected)
	}

	logrus.WithFields(logrus.Fields{
		"component": "receiver",
		"rate_pps":  fmt.Sprintf("%.2f", float64(snap.Received-prev.Received)/secs),
		"mbps":      fmt.Sprintf("%.2f", float64(snap.Bytes-prev.Bytes)*8/secs/1e6),
		"loss_rate": fmt.Sprintf("%.4f", lossRate),
		"received":  snap.Received,
	}).Info("Receive rate")
	return snap
}
