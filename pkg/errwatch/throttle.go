package errwatch

import (
	"math"
	"sync/atomic"
	"time"
)

// MaxThrottleLevel caps the adaptive throttle.
const MaxThrottleLevel = 100

// throttleBase is the per-level growth factor of the throttle delay.
const throttleBase = 1.05

// throttle is an adaptive backoff level: failures raise it, successes lower it.
type throttle struct {
	level atomic.Int32
}

// Delay returns (1.05^level - 1) seconds, rounded to the millisecond.
func (t *throttle) Delay() time.Duration {
	return throttleDelay(int(t.level.Load()))
}

func throttleDelay(level int) time.Duration {
	if level <= 0 {
		return 0
	}
	if level > MaxThrottleLevel {
		level = MaxThrottleLevel
	}
	ms := math.Round((math.Pow(throttleBase, float64(level)) - 1) * 1000)
	return time.Duration(ms) * time.Millisecond
}

// Level returns the current level.
func (t *throttle) Level() int {
	return int(t.level.Load())
}

// Fail raises the level by one, saturating at MaxThrottleLevel.
func (t *throttle) Fail() int {
	for {
		cur := t.level.Load()
		if cur >= MaxThrottleLevel {
			return int(cur)
		}
		if t.level.CompareAndSwap(cur, cur+1) {
			return int(cur + 1)
		}
	}
}

// Succeed lowers the level by one, stopping at zero.
func (t *throttle) Succeed() int {
	for {
		cur := t.level.Load()
		if cur <= 0 {
			return 0
		}
		if t.level.CompareAndSwap(cur, cur-1) {
			return int(cur - 1)
		}
	}
}
