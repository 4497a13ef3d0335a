package errwatch

import "strings"

const (
	// MaxBacktraceFrames caps the frames kept on a notice.
	MaxBacktraceFrames = 100

	// ProjectRootToken replaces the configured root path in frames.
	ProjectRootToken = "[PROJECT_ROOT]"
)

// cleanBacktrace keeps the first MaxBacktraceFrames frames in order and
// replaces every occurrence of root with ProjectRootToken. Frames are opaque.
func cleanBacktrace(frames []string, root string) []string {
	if len(frames) > MaxBacktraceFrames {
		frames = frames[:MaxBacktraceFrames]
	}
	out := make([]string, len(frames))
	for i, f := range frames {
		if root != "" {
			f = strings.ReplaceAll(f, root, ProjectRootToken)
		}
		out[i] = f
	}
	return out
}

// normalizeTags trims, splits on commas, drops blanks, and removes duplicates
// while keeping first-seen order.
func normalizeTags(tags []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(tags))
	for _, raw := range tags {
		for _, t := range strings.Split(raw, ",") {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
