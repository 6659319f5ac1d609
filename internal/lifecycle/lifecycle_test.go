package lifecycle

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestIsShuttingDown_DefaultFalse(t *testing.T) {
	s := New(nil)
	if s.IsShuttingDown() {
		t.Error("IsShuttingDown() = true, want false by default")
	}
}

func TestSetShuttingDown(t *testing.T) {
	s := New(nil)
	s.SetShuttingDown(true)
	if !s.IsShuttingDown() {
		t.Error("IsShuttingDown() = false after SetShuttingDown(true), want true")
	}
	s.SetShuttingDown(false)
	if s.IsShuttingDown() {
		t.Error("IsShuttingDown() = true after SetShuttingDown(false), want false")
	}
}

func TestUptime(t *testing.T) {
	start := time.Date(2017, 12, 11, 13, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	s := New(clock)

	if !s.Started().Equal(start) {
		t.Errorf("Started() = %v, want %v", s.Started(), start)
	}
	clock.Advance(90*time.Second + 400*time.Millisecond)
	if got := s.Uptime(); got != 90*time.Second {
		t.Errorf("Uptime() = %v, want 1m30s", got)
	}
}
