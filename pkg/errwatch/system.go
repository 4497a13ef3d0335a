// system.go captures process state at notice time.

package errwatch

import (
	"os"
	"runtime"
	"time"
)

// SystemState captures process metrics at the time of a notice.
type SystemState struct {
	// MemoryBytes is the current heap allocation in bytes.
	MemoryBytes int64

	// GoroutineCount is the number of live goroutines.
	GoroutineCount int

	// UptimeMs is the time since startTime in milliseconds.
	UptimeMs int64

	// HostName is the machine's hostname.
	HostName string
}

// CaptureSystemState captures process metrics now. The startTime parameter
// anchors the uptime calculation.
func CaptureSystemState(startTime time.Time) *SystemState {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	hostname, _ := os.Hostname() // empty hostname is acceptable

	uptimeMs := time.Since(startTime).Milliseconds()
	if uptimeMs < 0 {
		uptimeMs = 0
	}

	return &SystemState{
		MemoryBytes:    int64(memStats.Alloc),
		GoroutineCount: runtime.NumGoroutine(),
		UptimeMs:       uptimeMs,
		HostName:       hostname,
	}
}

func (s *SystemState) asMap() map[string]any {
	return map[string]any{
		"memory_bytes":    s.MemoryBytes,
		"goroutine_count": s.GoroutineCount,
		"uptime_ms":       s.UptimeMs,
		"host_name":       s.HostName,
	}
}
