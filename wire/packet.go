// Package wire defines the datagram layout shared by the udpflow sender and
// receiver and converts packets to and from their on-the-wire form.
//
// Every datagram starts with a fixed 16-byte header followed by zero-filled
// padding up to the configured datagram size:
//
//	[sequence (8 bytes, big-endian)][send timestamp (8 bytes, big-endian)][padding]
//
// The padding carries no information and is never inspected on receive.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const (
	// SequenceSize is the width of the sequence number field in bytes.
	SequenceSize = 8

	// TimestampSize is the width of the send timestamp field in bytes.
	TimestampSize = 8

	// HeaderSize is the total packet header width. A datagram smaller than
	// this cannot carry a valid packet.
	HeaderSize = SequenceSize + TimestampSize
)

var (
	// ErrShortDatagram indicates a received datagram too short to contain
	// the packet header. Receivers count these and keep going.
	ErrShortDatagram = errors.New("datagram shorter than packet header")

	// ErrDatagramTooSmall indicates a configured datagram size smaller than
	// the packet header. This is a configuration error, not a wire error.
	ErrDatagramTooSmall = errors.New("datagram size smaller than packet header")
)

// Packet is the decoded form of one probe datagram.
type Packet struct {
	// Sequence is the per-flow packet counter, starting at 0 and increasing
	// by exactly 1 per packet produced by one pacer run.
	Sequence uint64

	// SentAt is the send timestamp in nanoseconds since the Unix epoch,
	// captured at the intended send instant.
	SentAt uint64
}

// Serialize converts the packet to a datagram of exactly datagramSize bytes,
// zero-padding past the header. It fails with ErrDatagramTooSmall when the
// requested size cannot hold the header.
func (p *Packet) Serialize(datagramSize int) ([]byte, error) {
	if datagramSize < HeaderSize {
		return nil, fmt.Errorf("%w: %d < %d", ErrDatagramTooSmall, datagramSize, HeaderSize)
	}

	buf := make([]byte, datagramSize)
	binary.BigEndian.PutUint64(buf[0:], p.Sequence)
	binary.BigEndian.PutUint64(buf[SequenceSize:], p.SentAt)
	return buf, nil
}

// ParsePacket decodes the header of a received datagram. Bytes past the
// header are padding and are ignored. It fails with ErrShortDatagram when
// the input cannot contain a full header; no other validation is performed.
func ParsePacket(data []byte) (*Packet, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrShortDatagram, len(data))
	}

	return &Packet{
		Sequence: binary.BigEndian.Uint64(data[0:]),
		SentAt:   binary.BigEndian.Uint64(data[SequenceSize:]),
	}, nil
}

// Timestamp converts a time to the wire timestamp representation.
func Timestamp(t time.Time) uint64 {
	return uint64(t.UnixNano())
}

// At converts a wire timestamp back to a time.
func At(ts uint64) time.Time {
	return time.Unix(0, int64(ts))
}
