// Package udpflow implements a minimal UDP traffic generation and
// measurement pair: a sender that emits sequence-numbered, timestamped
// datagrams at a fixed packets-per-second rate for a bounded duration, and a
// receiver that ingests them and reports loss, duplication and jitter
// statistics.
//
// The package wires three focused subsystems together: wire (datagram
// codec), pacing (fixed-rate send scheduling) and stats (receive-side flow
// reconstruction). This package owns the sockets and the two loops; the
// cmd/udpflow-send and cmd/udpflow-recv executables are thin CLI front ends.
//
// # Sending
//
//	sender, err := udpflow.NewSender(udpflow.SenderConfig{
//	    Target:   "192.0.2.10",
//	    Port:     9999,
//	    Rate:     1000,
//	    Duration: 10,
//	    Size:     1400,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := sender.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Receiving
//
//	receiver, err := udpflow.NewReceiver(udpflow.ReceiverConfig{Port: 9999})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	summary, err := receiver.Run(ctx)
//
// Run returns once the context is canceled or no datagram has arrived within
// the idle timeout, finalizing the flow exactly once on every exit path.
//
// Delivery is best effort: there is no handshake, acknowledgment,
// retransmission or encryption.
package udpflow
