package audio

import (
	"math"
	"testing"
)

func TestRescaleQ(t *testing.T) {
	tests := []struct {
		name string
		a    int64
		bq   Rational
		cq   Rational
		want int64
	}{
		{"identity", 1234, Rational{1, 44100}, Rational{1, 44100}, 1234},
		{"samples to mp3 clock", 44100, Rational{1, 44100}, Rational{1, 14112000}, 14112000},
		{"seconds to micros", 3, Rational{1, 1}, Rational{1, TimeBase}, 3000000},
		{"round half up", 1, Rational{1, 2}, Rational{1, 1}, 1},
		{"round half away negative", -1, Rational{1, 2}, Rational{1, 1}, -1},
		{"round down", 1, Rational{1, 3}, Rational{1, 1}, 0},
		{"ms to 90k", 1500, Rational{1, 1000}, Rational{1, 90000}, 135000},
		{"nopts passthrough", NoPTS, Rational{1, 1000}, Rational{1, 90000}, NoPTS},
		{"large values", math.MaxInt64 / 4, Rational{1, 1000}, Rational{1, 1000}, math.MaxInt64 / 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RescaleQ(tt.a, tt.bq, tt.cq); got != tt.want {
				t.Errorf("RescaleQ(%d, %v, %v) = %d, want %d", tt.a, tt.bq, tt.cq, got, tt.want)
			}
		})
	}
}

func TestSeconds(t *testing.T) {
	if got := Seconds(441000, Rational{1, 44100}); math.Abs(got-10) > 1e-9 {
		t.Errorf("Seconds() = %v, want 10", got)
	}
	if got := Seconds(NoPTS, Rational{1, 44100}); !math.IsNaN(got) {
		t.Errorf("Seconds(NoPTS) = %v, want NaN", got)
	}
}

func TestSampleBudget(t *testing.T) {
	tests := []struct {
		start, end float64
		rate       int
		want       int64
	}{
		{10, 15, 44100, 220500},
		{0, 0.5, 48000, 24000},
		{1.00001, 1.00002, 44100, 0},
		{0, 1.0 / 3.0, 44100, 14700},
	}

	for _, tt := range tests {
		if got := SampleBudget(tt.start, tt.end, tt.rate); got != tt.want {
			t.Errorf("SampleBudget(%v, %v, %d) = %d, want %d", tt.start, tt.end, tt.rate, got, tt.want)
		}
	}
}
