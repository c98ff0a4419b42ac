package timeutil

import (
	"testing"
	"time"
)

func TestSetClockRestores(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	restore := SetClock(Fixed(at))
	if got := Now(); !got.Equal(at) {
		t.Fatalf("expected fixed time %v got %v", at, got)
	}
	restore()
	if got := Now(); got.Equal(at) {
		t.Fatalf("clock was not restored")
	}
}
