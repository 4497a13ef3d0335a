// client.go provides the Client facade: ignore, build, callbacks, dispatch.

package errwatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	sender    Sender
	logger    *slog.Logger
	callbacks []BeforeSend
	observer  WorkerObserver
}

// WithSender sets the transport. Without one, notices are discarded.
func WithSender(sender Sender) Option {
	return func(o *clientOptions) {
		o.sender = sender
	}
}

// WithLogger sets the logger used for the library's own diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithBeforeSend appends callbacks to the before-send chain.
func WithBeforeSend(callbacks ...BeforeSend) Option {
	return func(o *clientOptions) {
		o.callbacks = append(o.callbacks, callbacks...)
	}
}

// WithWorkerObserver sets the delivery worker observer.
func WithWorkerObserver(observer WorkerObserver) Option {
	return func(o *clientOptions) {
		o.observer = observer
	}
}

// Client reports errors and messages to a Sender.
type Client struct {
	cfg       Config
	logger    *slog.Logger
	sender    Sender
	sanitizer *Sanitizer
	ignorer   *Ignorer
	builder   *Builder
	callbacks []BeforeSend
	worker    *Worker

	stopped      atomic.Bool
	shutdownOnce sync.Once
}

// New creates a Client. A Config missing its API key or endpoint yields a
// Client that reports nothing; only unparseable ignore rules are an error.
func New(cfg Config, opts ...Option) (*Client, error) {
	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.sender == nil {
		o.sender = noopSenderInternal{}
	}

	cfg = cfg.WithDefaults()
	rules, err := ParseIgnoreRules(cfg.IgnoreRules)
	if err != nil {
		return nil, fmt.Errorf("errwatch: %w", err)
	}

	c := &Client{
		cfg:       cfg,
		logger:    o.logger.With("component", "errwatch"),
		sender:    o.sender,
		sanitizer: NewSanitizer(cfg.FilterKeys),
		ignorer:   NewIgnorer(rules...),
		builder:   NewBuilder(cfg),
		callbacks: o.callbacks,
	}

	switch {
	case !cfg.Valid():
		c.logger.Info("missing api key or endpoint, reporting disabled")
	case !cfg.ReportsData():
		c.logger.Debug("reporting disabled for environment", "environment", cfg.Environment)
	}

	if !cfg.SyncMode {
		c.worker = NewWorker(c.sender,
			WithMaxQueueSize(cfg.MaxQueueSize),
			WithSendTimeout(cfg.SendTimeout),
			WithEncoder(c.encode),
			WithWorkerLogger(o.logger),
			WithObserver(o.observer),
		)
	}
	return c, nil
}

// Notify reports input, which may be an error, a message string, a Record,
// or a map[string]any. In async mode the notice is queued and Notify returns
// nil; in sync mode it returns the Sender's result. It returns nil whenever
// the notice is not delivered.
func (c *Client) Notify(ctx context.Context, input any, opts ...NoticeOption) *Result {
	if ctx == nil {
		ctx = context.Background()
	}
	n := c.prepare(ctx, input, opts)
	if n == nil {
		return nil
	}
	if c.worker != nil {
		if !c.worker.Push(n) {
			c.logger.Debug("notice not queued", "notice_id", n.ID, "worker_state", c.worker.State().String())
		}
		return nil
	}
	return c.send(ctx, n)
}

// NotifySync is Notify, always sent inline on the calling goroutine.
func (c *Client) NotifySync(ctx context.Context, input any, opts ...NoticeOption) *Result {
	if ctx == nil {
		ctx = context.Background()
	}
	n := c.prepare(ctx, input, opts)
	if n == nil {
		return nil
	}
	return c.send(ctx, n)
}

// prepare runs the gates, the builder, and the before-send chain. It returns
// nil when the notice must not be sent.
func (c *Client) prepare(ctx context.Context, input any, opts []NoticeOption) *Notice {
	if !c.Enabled() {
		return nil
	}
	if err, ok := input.(error); ok && c.ignorer.ShouldIgnoreError(err) {
		return nil
	}

	n, ok := c.builder.Build(ctx, input, applyNoticeOptions(opts))
	if !ok {
		c.logger.Debug("unsupported notify input", "type", fmt.Sprintf("%T", input))
		return nil
	}
	if !runBeforeSend(c.callbacks, n, c.logger) {
		return nil
	}
	return n
}

func (c *Client) send(ctx context.Context, n *Notice) *Result {
	payload, err := c.encode(n)
	if err != nil {
		c.logger.Error("failed to encode notice", "notice_id", n.ID, "error", err)
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, c.cfg.SendTimeout)
	defer cancel()

	res, err := safeSend(sendCtx, c.sender, payload)
	if err != nil {
		c.logger.Warn("failed to deliver notice", "notice_id", n.ID, "error_class", n.ErrorClass, "error", err)
		return nil
	}
	if res == nil {
		res = &Result{}
	}
	return res
}

func (c *Client) encode(n *Notice) ([]byte, error) {
	return n.Encode(c.sanitizer)
}

// Flush waits up to timeout for queued notices to be attempted. It reports
// true immediately in sync mode.
func (c *Client) Flush(timeout time.Duration) bool {
	if c.worker == nil {
		return true
	}
	return c.worker.Flush(timeout)
}

// Shutdown stops reporting and drains the worker within
// Config.ShutdownTimeout. Subsequent calls do nothing.
func (c *Client) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.stopped.Store(true)
		if c.worker != nil {
			c.worker.Shutdown(c.cfg.ShutdownTimeout)
		}
	})
}

// Enabled reports whether Notify would currently build and send notices.
func (c *Client) Enabled() bool {
	if c == nil {
		return false
	}
	return !c.stopped.Load() && c.cfg.Valid() && c.cfg.ReportsData()
}

// Config returns the effective configuration, defaults applied.
func (c *Client) Config() Config {
	return c.cfg
}

// Sanitizer returns the sanitizer applied to payloads.
func (c *Client) Sanitizer() *Sanitizer {
	return c.sanitizer
}

// Worker returns the delivery worker, or nil in sync mode.
func (c *Client) Worker() *Worker {
	return c.worker
}
