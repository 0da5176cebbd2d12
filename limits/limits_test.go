package limits

import (
	"errors"
	"testing"

	"github.com/opd-ai/udpflow/wire"
)

// TestMinDatagramMatchesHeader verifies that MinDatagram stays in sync with
// the wire header width.
func TestMinDatagramMatchesHeader(t *testing.T) {
	if MinDatagram != wire.HeaderSize {
		t.Errorf("MinDatagram = %d, want %d (wire.HeaderSize)", MinDatagram, wire.HeaderSize)
	}
}

// TestValidateDatagramSize tests datagram size bounds.
func TestValidateDatagramSize(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"minimum size", MinDatagram, false},
		{"default size", DefaultDatagram, false},
		{"maximum size", MaxDatagram, false},
		{"below minimum", MinDatagram - 1, true},
		{"zero", 0, true},
		{"negative", -1, true},
		{"above maximum", MaxDatagram + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatagramSize(tt.size)
			if tt.wantErr {
				if !errors.Is(err, ErrDatagramSize) {
					t.Errorf("Expected ErrDatagramSize, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

// TestValidatePort tests port number bounds.
func TestValidatePort(t *testing.T) {
	tests := []struct {
		name    string
		port    int
		wantErr bool
	}{
		{"lowest port", 1, false},
		{"typical port", 9999, false},
		{"highest port", 65535, false},
		{"zero", 0, true},
		{"negative", -1, true},
		{"too high", 65536, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePort(tt.port)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPort) {
					t.Errorf("Expected ErrInvalidPort, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}
