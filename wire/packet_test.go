package wire

import (
	"errors"
	"testing"
	"time"
)

// TestPacketSerialize tests the Packet.Serialize method.
func TestPacketSerialize(t *testing.T) {
	tests := []struct {
		name    string
		packet  *Packet
		size    int
		wantErr bool
	}{
		{
			name:   "typical datagram",
			packet: &Packet{Sequence: 42, SentAt: 1234567890},
			size:   1400,
		},
		{
			name:   "header only",
			packet: &Packet{Sequence: 0, SentAt: 0},
			size:   HeaderSize,
		},
		{
			name:    "one byte short of header",
			packet:  &Packet{Sequence: 1, SentAt: 1},
			size:    HeaderSize - 1,
			wantErr: true,
		},
		{
			name:    "zero size",
			packet:  &Packet{},
			size:    0,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.packet.Serialize(tt.size)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error but got none")
				}
				if !errors.Is(err, ErrDatagramTooSmall) {
					t.Errorf("Expected ErrDatagramTooSmall, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(data) != tt.size {
				t.Errorf("Expected %d bytes, got %d", tt.size, len(data))
			}
			// Everything past the header is zero padding.
			for i := HeaderSize; i < len(data); i++ {
				if data[i] != 0 {
					t.Errorf("Expected zero padding at offset %d, got %d", i, data[i])
					break
				}
			}
		})
	}
}

// TestPacketRoundTrip verifies Serialize followed by ParsePacket recovers the
// original header fields for all valid datagram sizes.
func TestPacketRoundTrip(t *testing.T) {
	sizes := []int{HeaderSize, 64, 512, 1400}
	original := &Packet{
		Sequence: 9876543210,
		SentAt:   Timestamp(time.Now()),
	}

	for _, size := range sizes {
		data, err := original.Serialize(size)
		if err != nil {
			t.Fatalf("Serialize(%d) failed: %v", size, err)
		}

		decoded, err := ParsePacket(data)
		if err != nil {
			t.Fatalf("ParsePacket of %d-byte datagram failed: %v", size, err)
		}
		if decoded.Sequence != original.Sequence {
			t.Errorf("size %d: sequence %d, want %d", size, decoded.Sequence, original.Sequence)
		}
		if decoded.SentAt != original.SentAt {
			t.Errorf("size %d: timestamp %d, want %d", size, decoded.SentAt, original.SentAt)
		}
	}
}

// TestParsePacketShort verifies truncated datagrams fail with ErrShortDatagram.
func TestParsePacketShort(t *testing.T) {
	for _, n := range []int{0, 1, SequenceSize, HeaderSize - 1} {
		_, err := ParsePacket(make([]byte, n))
		if err == nil {
			t.Errorf("Expected error for %d-byte datagram", n)
			continue
		}
		if !errors.Is(err, ErrShortDatagram) {
			t.Errorf("Expected ErrShortDatagram for %d bytes, got %v", n, err)
		}
	}
}

// TestParsePacketGarbage verifies malformed-but-long-enough datagrams decode
// without error and without panicking; payload contents are not validated.
func TestParsePacketGarbage(t *testing.T) {
	data := make([]byte, 1400)
	for i := range data {
		data[i] = byte(i * 31)
	}

	pkt, err := ParsePacket(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if pkt == nil {
		t.Fatal("Expected a packet")
	}
}

// TestTimestampRoundTrip verifies the wire timestamp conversion helpers.
func TestTimestampRoundTrip(t *testing.T) {
	now := time.Now()
	got := At(Timestamp(now))
	if !got.Equal(time.Unix(0, now.UnixNano())) {
		t.Errorf("Timestamp round trip changed the instant: %v != %v", got, now)
	}
}
