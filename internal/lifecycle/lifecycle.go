// Package lifecycle tracks process-wide run state for the status server.
package lifecycle

import (
	"sync/atomic"
	"time"
)

var (
	shuttingDown atomic.Bool
	startedAt    atomic.Int64
)

func init() {
	startedAt.Store(time.Now().UnixNano())
}

// SetShuttingDown sets the shutdown flag. Call when SIGTERM/SIGINT is received;
// /health reports shutting-down while true.
func SetShuttingDown(v bool) {
	shuttingDown.Store(v)
}

// IsShuttingDown returns true once shutdown has begun.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}

// MarkStarted records the start of the render loop.
func MarkStarted(t time.Time) {
	startedAt.Store(t.UnixNano())
}

// Uptime returns the time since MarkStarted, or since process init.
func Uptime() time.Duration {
	return time.Since(time.Unix(0, startedAt.Load()))
}
