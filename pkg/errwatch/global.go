package errwatch

import (
	"context"
	"sync/atomic"
	"time"
)

var defaultClient atomic.Pointer[Client]

// Configure creates the package-level default client. A previously
// configured default is shut down after the new one takes its place.
func Configure(cfg Config, opts ...Option) error {
	c, err := New(cfg, opts...)
	if err != nil {
		return err
	}
	if prev := defaultClient.Swap(c); prev != nil {
		prev.Shutdown()
	}
	return nil
}

// Default returns the default client, or nil before Configure.
func Default() *Client {
	return defaultClient.Load()
}

// Notify reports input through the default client.
func Notify(ctx context.Context, input any, opts ...NoticeOption) *Result {
	if c := Default(); c != nil {
		return c.Notify(ctx, input, opts...)
	}
	return nil
}

// NotifySync reports input inline through the default client.
func NotifySync(ctx context.Context, input any, opts ...NoticeOption) *Result {
	if c := Default(); c != nil {
		return c.NotifySync(ctx, input, opts...)
	}
	return nil
}

// Flush flushes the default client.
func Flush(timeout time.Duration) bool {
	if c := Default(); c != nil {
		return c.Flush(timeout)
	}
	return true
}

// Shutdown shuts the default client down.
func Shutdown() {
	if c := Default(); c != nil {
		c.Shutdown()
	}
}
