// recover.go provides the Recover helper for panic capture.
// Use this in HTTP handlers, goroutines, or other code that must not crash.

package errwatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
)

// PanicClass is the error class of notices built from recovered panics.
const PanicClass = "Panic"

// PanicError is a recovered panic value with the stack at the point of recovery.
type PanicError struct {
	Value any
	Stack []string
}

func (e *PanicError) Error() string { return formatRecovered(e.Value) }

func (e *PanicError) ErrorClass() string { return PanicClass }

func (e *PanicError) ErrorAncestors() []string { return []string{BaseErrorClass} }

func (e *PanicError) Backtrace() []string { return e.Stack }

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Recover captures a panic, reports it synchronously through client, and
// returns the recovered value. It does NOT re-panic.
//
// Use in defer:
//
//	func handler(ctx context.Context) {
//	    defer errwatch.Recover(ctx, client)
//	    // code that might panic
//	}
//
// Recover must be the deferred call itself. To also act on the value, recover
// directly and hand it to ReportPanic:
//
//	func handler(ctx context.Context) (err error) {
//	    defer func() {
//	        if r := recover(); r != nil {
//	            errwatch.ReportPanic(ctx, client, r)
//	            err = fmt.Errorf("panic: %v", r)
//	        }
//	    }()
//	    // code that might panic
//	}
func Recover(ctx context.Context, client *Client) any {
	r := recover()
	if r == nil {
		return nil
	}
	ReportPanic(ctx, client, r)
	return r
}

// ReportPanic sends a recovered value through client. It is a no-op for a nil
// value or client.
func ReportPanic(ctx context.Context, client *Client, recovered any) *Result {
	if recovered == nil || client == nil {
		return nil
	}
	return client.NotifySync(ctx, NewPanicError(recovered), Tags("panic"))
}

// NewPanicError wraps a recovered value with the current goroutine's stack.
func NewPanicError(recovered any) *PanicError {
	return &PanicError{Value: recovered, Stack: stackLines(debug.Stack())}
}

// stackLines turns debug.Stack output into "file:line in func" frames.
func stackLines(stack []byte) []string {
	lines := strings.Split(strings.TrimSpace(string(stack)), "\n")
	var frames []string
	// Skip the "goroutine N [running]:" header; the rest alternates
	// function line, then tab-indented file:line.
	for i := 1; i+1 < len(lines); i += 2 {
		fn := strings.TrimSpace(lines[i])
		loc := strings.TrimSpace(lines[i+1])
		if idx := strings.LastIndex(loc, " +0x"); idx >= 0 {
			loc = loc[:idx]
		}
		fn = strings.TrimPrefix(fn, "created by ")
		if idx := strings.Index(fn, " in goroutine "); idx >= 0 {
			fn = fn[:idx]
		}
		if paren := strings.LastIndex(fn, "("); paren > 0 {
			fn = fn[:paren]
		}
		frames = append(frames, fmt.Sprintf("%s in %s", loc, fn))
	}
	return frames
}

// formatRecovered formats a recovered panic value as a string.
func formatRecovered(recovered any) string {
	if recovered == nil {
		return "<nil>"
	}
	if err, ok := recovered.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", recovered)
}
