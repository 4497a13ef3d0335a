package errwatch

import (
	"fmt"
	"log/slog"
)

// BeforeSend inspects or mutates a notice before dispatch. Returning false
// drops the notice and stops the chain.
type BeforeSend func(n *Notice) bool

// runBeforeSend runs callbacks in order. A callback that panics is logged and
// treated as allowing the notice; only an explicit false rejects it.
func runBeforeSend(callbacks []BeforeSend, n *Notice, logger *slog.Logger) bool {
	for i, cb := range callbacks {
		if cb == nil {
			continue
		}
		keep, err := callSafely(cb, n)
		if err != nil {
			logger.Error("before-send callback failed, continuing",
				"callback_index", i, "notice_id", n.ID, "error", err)
			continue
		}
		if !keep {
			logger.Debug("notice dropped by before-send callback",
				"callback_index", i, "notice_id", n.ID, "error_class", n.ErrorClass)
			return false
		}
	}
	return true
}

func callSafely(cb BeforeSend, n *Notice) (keep bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			keep = true
			err = fmt.Errorf("panic: %s", formatRecovered(r))
		}
	}()
	return cb(n), nil
}
