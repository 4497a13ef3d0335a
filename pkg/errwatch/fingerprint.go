// fingerprint.go derives stable grouping keys from notice class and stack.

package errwatch

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// fingerprintFrames is how many leading frames feed the fingerprint.
const fingerprintFrames = 3

// Match function names like "main.doSomething" or "pkg/subpkg.(*T).Method"
var funcNamePattern = regexp.MustCompile(`^([a-zA-Z0-9_./\-]+\.[a-zA-Z0-9_().*\[\]]+)`)

// StackFingerprint hashes the error class and the function names of the first
// three frames. It ignores messages, line numbers, and paths, so the same
// failure site yields the same key across deploys.
func StackFingerprint(n *Notice) string {
	parts := append([]string{n.ErrorClass}, normalizeFrames(n.Backtrace)...)
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))

	// Return hex-encoded first 16 bytes (32 hex chars)
	return hex.EncodeToString(hash[:16])
}

// FingerprintByStack returns a callback setting StackFingerprint on notices
// that have no fingerprint.
func FingerprintByStack() BeforeSend {
	return func(n *Notice) bool {
		if n.Fingerprint == "" {
			n.Fingerprint = StackFingerprint(n)
		}
		return true
	}
}

// normalizeFrames extracts the function names of the first frames.
// Frames look like "file:line in func".
func normalizeFrames(frames []string) []string {
	var out []string
	for _, frame := range frames {
		fn := frame
		if idx := strings.LastIndex(frame, " in "); idx >= 0 {
			fn = frame[idx+len(" in "):]
		}
		fn = strings.TrimSpace(fn)
		if match := funcNamePattern.FindString(fn); match != "" {
			out = append(out, match)
			if len(out) >= fingerprintFrames {
				break
			}
		}
	}
	return out
}
