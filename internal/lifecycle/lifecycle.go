// Package lifecycle tracks process start time and the draining flag reported by /health.
package lifecycle

import (
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// State is shared between the signal handler and the health endpoint.
type State struct {
	clock        clockwork.Clock
	started      time.Time
	shuttingDown atomic.Bool
}

// New records the start time using clock, or the real clock when nil.
func New(clock clockwork.Clock) *State {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &State{clock: clock, started: clock.Now()}
}

// SetShuttingDown sets the shutdown flag. Call when SIGTERM/SIGINT received.
// Health handler returns 503 with status shutting-down while true.
func (s *State) SetShuttingDown(v bool) {
	s.shuttingDown.Store(v)
}

// IsShuttingDown returns true if the process is draining and should not receive new traffic.
func (s *State) IsShuttingDown() bool {
	return s.shuttingDown.Load()
}

// Started returns when the process came up.
func (s *State) Started() time.Time {
	return s.started
}

// Uptime returns the time since New, truncated to whole seconds.
func (s *State) Uptime() time.Duration {
	return s.clock.Since(s.started).Truncate(time.Second)
}
