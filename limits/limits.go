// Package limits provides centralized datagram size and port bounds for the
// udpflow traffic pair. This ensures consistent validation across the sender,
// the receiver, and the command-line front ends.
package limits

import (
	"errors"
	"fmt"

	"github.com/opd-ai/udpflow/wire"
)

const (
	// MinDatagram is the smallest datagram that can carry a packet header.
	MinDatagram = wire.HeaderSize

	// MaxDatagram is the largest UDP payload deliverable over IPv4
	// (65535 - 20 byte IP header - 8 byte UDP header).
	MaxDatagram = 65507

	// MinRandomDatagram is the lower bound used when random datagram sizes
	// are requested, matching the smallest size the generator will emit.
	MinRandomDatagram = 64

	// DefaultDatagram is the default datagram size for the sender.
	DefaultDatagram = 1400

	// DefaultSocketBuffer is the default kernel socket buffer requested for
	// both the send and receive sockets (8 MB). High packet rates overrun
	// the kernel defaults long before they stress the process.
	DefaultSocketBuffer = 8 * 1024 * 1024
)

var (
	// ErrDatagramSize indicates a datagram size outside
	// [MinDatagram, MaxDatagram].
	ErrDatagramSize = errors.New("datagram size out of range")

	// ErrInvalidPort indicates a port outside [1, 65535].
	ErrInvalidPort = errors.New("invalid port")
)

// ValidateDatagramSize validates a configured datagram size.
// Returns an error with context including the valid range.
func ValidateDatagramSize(size int) error {
	if size < MinDatagram || size > MaxDatagram {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrDatagramSize, size, MinDatagram, MaxDatagram)
	}
	return nil
}

// ValidatePort validates a UDP port number.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	return nil
}
