package utils

import "testing"

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{in: 0, want: 0},
		{in: 1.005, want: 1.01},
		{in: 110.0000000001, want: 110},
		{in: -46.666666, want: -46.67},
		{in: 2.675, want: 2.68},
	}

	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Fatalf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
