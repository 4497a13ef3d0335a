package errwatch

// Drop reasons reported to WorkerObserver.NoticeDropped.
const (
	DropQueueFull = "queue_full"
	DropStopped   = "stopped"
)

// WorkerObserver receives delivery worker events. Implementations must be
// fast and safe for concurrent use; the metrics package provides a
// Prometheus-backed one.
type WorkerObserver interface {
	NoticeQueued(depth int)
	NoticeDropped(reason string)
	NoticeSent(depth int)
	NoticeFailed(depth int)
	ThrottleChanged(level int)
}

type nopObserver struct{}

func (nopObserver) NoticeQueued(int)     {}
func (nopObserver) NoticeDropped(string) {}
func (nopObserver) NoticeSent(int)       {}
func (nopObserver) NoticeFailed(int)     {}
func (nopObserver) ThrottleChanged(int)  {}
