package timeutil

import (
	"testing"
	"time"
)

func TestMillisRoundtrip(t *testing.T) {
	now := time.Date(2025, 3, 14, 15, 9, 26, 535_000_000, time.UTC)
	m := MillisFromTime(now)
	if got := m.Time(); !got.Equal(now) {
		t.Fatalf("roundtrip mismatch: expected = %v, got = %v", now, got)
	}
}

func TestMillisArithmetic(t *testing.T) {
	base := Millis(1_000_000)
	later := base.Add(90 * time.Second)
	if d := later.Sub(base); d != 90*time.Second {
		t.Fatalf("bad difference: %v", d)
	}
	if base.IsZero() {
		t.Fatal("non-zero value reported as zero")
	}
	if !Millis(0).IsZero() {
		t.Fatal("zero value not reported as zero")
	}
}
