package udpflow

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opd-ai/udpflow/limits"
	"github.com/opd-ai/udpflow/pacing"
	"github.com/opd-ai/udpflow/stats"
)

// startReceiver binds a receiver on an ephemeral port and runs it in the
// background, returning its port and the channel the summary arrives on.
func startReceiver(t *testing.T, cfg ReceiverConfig) (int, <-chan stats.Summary) {
	t.Helper()

	receiver, err := NewReceiver(cfg)
	require.NoError(t, err)
	port := receiver.LocalAddr().(*net.UDPAddr).Port

	done := make(chan stats.Summary, 1)
	go func() {
		summary, err := receiver.Run(context.Background())
		require.NoError(t, err)
		done <- summary
	}()
	return port, done
}

// TestSenderReceiverLoopback pushes a complete flow across the loopback
// interface and checks the finalized statistics.
func TestSenderReceiverLoopback(t *testing.T) {
	port, done := startReceiver(t, ReceiverConfig{
		IdleTimeout:    500 * time.Millisecond,
		ReportInterval: time.Minute,
	})

	sender, err := NewSender(SenderConfig{
		Target:   "127.0.0.1",
		Port:     port,
		Rate:     2000,
		Duration: 0.05,
		Size:     64,
	})
	require.NoError(t, err)
	require.Equal(t, 100, sender.TotalPackets())
	require.NoError(t, sender.Run(context.Background()))

	select {
	case summary := <-done:
		require.Equal(t, uint64(100), summary.Received)
		require.Equal(t, uint64(0), summary.Lost)
		require.Equal(t, uint64(0), summary.Duplicates)
		require.Equal(t, uint64(0), summary.Errors)
		require.Equal(t, float64(0), summary.LossRate)
		require.Equal(t, uint64(99), summary.MaxSequence)
		require.Equal(t, uint64(100*64), summary.Bytes)
	case <-time.After(5 * time.Second):
		t.Fatal("Receiver did not finalize in time")
	}
}

// TestReceiverCountsMalformedDatagrams verifies truncated datagrams are
// counted as errors without perturbing sequence tracking.
func TestReceiverCountsMalformedDatagrams(t *testing.T) {
	port, done := startReceiver(t, ReceiverConfig{
		IdleTimeout:    400 * time.Millisecond,
		ReportInterval: time.Minute,
	})

	sender, err := NewSender(SenderConfig{
		Target:   "127.0.0.1",
		Port:     port,
		Rate:     1000,
		Duration: 0.01,
		Size:     limits.MinDatagram,
	})
	require.NoError(t, err)
	require.NoError(t, sender.Run(context.Background()))

	// Inject garbage shorter than the packet header.
	conn, err := net.Dial("udp", (&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}).String())
	require.NoError(t, err)
	defer conn.Close()
	for i := 0; i < 3; i++ {
		_, err = conn.Write([]byte{0xde, 0xad})
		require.NoError(t, err)
	}

	select {
	case summary := <-done:
		require.Equal(t, uint64(10), summary.Received)
		require.Equal(t, uint64(3), summary.Errors)
		require.Equal(t, uint64(0), summary.Lost)
	case <-time.After(5 * time.Second):
		t.Fatal("Receiver did not finalize in time")
	}
}

// TestReceiverIdleTimeoutEmpty verifies a receiver that never sees a packet
// still finalizes cleanly with an all-zero summary.
func TestReceiverIdleTimeoutEmpty(t *testing.T) {
	receiver, err := NewReceiver(ReceiverConfig{
		IdleTimeout:    300 * time.Millisecond,
		ReportInterval: time.Minute,
	})
	require.NoError(t, err)

	start := time.Now()
	summary, err := receiver.Run(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)

	require.Equal(t, uint64(0), summary.Received)
	require.Equal(t, uint64(0), summary.Lost)
	require.Equal(t, float64(0), summary.LossRate)
}

// TestReceiverStop verifies context cancellation ends the session promptly
// and still produces a finalized summary.
func TestReceiverStop(t *testing.T) {
	receiver, err := NewReceiver(ReceiverConfig{
		IdleTimeout:    time.Minute,
		ReportInterval: time.Minute,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	summary, err := receiver.Run(ctx)
	require.NoError(t, err)
	require.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, uint64(0), summary.Received)
}

func TestNewSenderValidation(t *testing.T) {
	valid := SenderConfig{
		Target:   "127.0.0.1",
		Port:     9999,
		Rate:     1000,
		Duration: 1.0,
		Size:     1400,
	}

	tests := []struct {
		name    string
		mutate  func(*SenderConfig)
		wantErr error
	}{
		{
			name:    "zero rate",
			mutate:  func(c *SenderConfig) { c.Rate = 0 },
			wantErr: pacing.ErrInvalidRate,
		},
		{
			name:    "negative duration",
			mutate:  func(c *SenderConfig) { c.Duration = -1 },
			wantErr: pacing.ErrInvalidDuration,
		},
		{
			name:    "datagram below header",
			mutate:  func(c *SenderConfig) { c.Size = limits.MinDatagram - 1 },
			wantErr: limits.ErrDatagramSize,
		},
		{
			name:    "invalid port",
			mutate:  func(c *SenderConfig) { c.Port = 70000 },
			wantErr: limits.ErrInvalidPort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			_, err := NewSender(cfg)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	// A target that cannot be resolved is rejected up front as a NetError.
	cfg := valid
	cfg.Target = "[::1"
	_, err := NewSender(cfg)
	require.Error(t, err)
	var netErr *NetError
	require.ErrorAs(t, err, &netErr)
	require.Equal(t, "resolve", netErr.Op)
}

func TestNewReceiverValidation(t *testing.T) {
	_, err := NewReceiver(ReceiverConfig{Port: -1})
	require.ErrorIs(t, err, limits.ErrInvalidPort)

	_, err = NewReceiver(ReceiverConfig{Port: 65536})
	require.ErrorIs(t, err, limits.ErrInvalidPort)
}
