package sheetrec_test

import (
	"testing"
	"time"

	"github.com/ideamans/go-sheetrec"
)

func TestToSerialDate(t *testing.T) {
	tests := []struct {
		in   time.Time
		want float64
	}{
		{time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC), 2},
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 45292},
		{time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC), 45352.75},
		{time.Date(2024, 3, 1, 6, 0, 0, 0, time.FixedZone("JST", 9*60*60)), 45352.25},
	}

	for _, tt := range tests {
		if got := sheetrec.ToSerialDate(tt.in); got != tt.want {
			t.Errorf("ToSerialDate(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFromSerialDate(t *testing.T) {
	tests := []struct {
		in   float64
		want time.Time
	}{
		{0, time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)},
		{45292, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{45352.75, time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)},
		{45352.000011574, time.Date(2024, 3, 1, 0, 0, 1, 0, time.UTC)},
	}

	for _, tt := range tests {
		if got := sheetrec.FromSerialDate(tt.in); !got.Equal(tt.want) {
			t.Errorf("FromSerialDate(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSerialDateRoundTrip(t *testing.T) {
	start := time.Date(2023, 6, 15, 13, 45, 30, 0, time.UTC)
	for i := 0; i < 100; i++ {
		in := start.Add(time.Duration(i) * 37 * time.Hour)
		if got := sheetrec.FromSerialDate(sheetrec.ToSerialDate(in)); !got.Equal(in) {
			t.Fatalf("round trip of %v gave %v", in, got)
		}
	}
}
