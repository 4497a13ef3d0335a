// Package httpsender provides the HTTP transport Sender for the ingestion API.
// Every call goes through a circuit breaker; the body is optionally compressed.
package httpsender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/sony/gobreaker/v2"
	"github.com/strongdm/errwatch/pkg/errwatch"
)

// NoticesPath is appended to the endpoint for every delivery.
const NoticesPath = "/v1/notices"

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// Sentinel errors, matched with errors.Is.
var (
	ErrUnauthorized   = errors.New("httpsender: unauthorized")
	ErrInvalidPayload = errors.New("httpsender: payload rejected")
	ErrRateLimited    = errors.New("httpsender: rate limited")
	ErrServer         = errors.New("httpsender: server error")
	ErrUnexpected     = errors.New("httpsender: unexpected status")
	ErrCircuitOpen    = errors.New("httpsender: circuit open")
)

// StatusError is a non-success HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
	kind       error
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%v (status %d)", e.kind, e.StatusCode)
	}
	return fmt.Sprintf("%v (status %d): %s", e.kind, e.StatusCode, e.Body)
}

// Unwrap returns the sentinel for the status class.
func (e *StatusError) Unwrap() error { return e.kind }

// Compression selects the request body encoding.
type Compression int

const (
	// CompressNone sends the JSON body as is.
	CompressNone Compression = iota
	// CompressGzip sends the body with Content-Encoding: gzip.
	CompressGzip
	// CompressZstd sends the body with Content-Encoding: zstd.
	CompressZstd
)

// Option configures a Sender.
type Option func(*Sender)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Sender) {
		if c != nil {
			s.client = c
		}
	}
}

// WithCompression sets the body encoding (default: CompressNone).
func WithCompression(c Compression) Option {
	return func(s *Sender) {
		s.compression = c
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Sender) {
		s.userAgent = ua
	}
}

// WithBreaker replaces the circuit breaker settings. Name, ReadyToTrip, and
// IsSuccessful are filled in when left empty.
func WithBreaker(settings gobreaker.Settings) Option {
	return func(s *Sender) {
		s.settings = settings
	}
}

// Sender posts notices to {endpoint}/v1/notices.
type Sender struct {
	url         string
	apiKey      string
	userAgent   string
	compression Compression
	client      *http.Client
	settings    gobreaker.Settings
	breaker     *gobreaker.CircuitBreaker[*errwatch.Result]

	gzipPool sync.Pool
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdErr  error
}

// New creates a Sender for endpoint authenticated with apiKey.
func New(endpoint, apiKey string, opts ...Option) *Sender {
	s := &Sender{
		url:       strings.TrimRight(endpoint, "/") + NoticesPath,
		apiKey:    apiKey,
		userAgent: errwatch.NotifierName + "/" + errwatch.Version,
		client:    &http.Client{Timeout: 30 * time.Second},
		settings:  DefaultBreakerSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.settings.Name == "" {
		s.settings.Name = "errwatch-http"
	}
	if s.settings.ReadyToTrip == nil {
		s.settings.ReadyToTrip = DefaultBreakerSettings().ReadyToTrip
	}
	if s.settings.IsSuccessful == nil {
		s.settings.IsSuccessful = isBreakerSuccess
	}
	s.breaker = gobreaker.NewCircuitBreaker[*errwatch.Result](s.settings)
	s.gzipPool.New = func() any { return gzip.NewWriter(io.Discard) }
	return s
}

// DefaultBreakerSettings trips after 5 consecutive failures and probes again
// after 30 seconds.
func DefaultBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "errwatch-http",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: isBreakerSuccess,
	}
}

// isBreakerSuccess counts only transport, 429, and 5xx failures against the
// breaker. A rejected payload says nothing about the service's health.
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrInvalidPayload) || errors.Is(err, ErrUnexpected)
}

// Send posts payload once. Retrying is left to the caller.
func (s *Sender) Send(ctx context.Context, payload []byte) (*errwatch.Result, error) {
	body, encoding, err := s.compress(payload)
	if err != nil {
		return nil, err
	}

	res, err := s.breaker.Execute(func() (*errwatch.Result, error) {
		return s.post(ctx, body, encoding)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// State returns the circuit breaker state.
func (s *Sender) State() gobreaker.State {
	return s.breaker.State()
}

func (s *Sender) post(ctx context.Context, body []byte, encoding string) (*errwatch.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-API-Key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	if encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post notice: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes)) // best effort; status decides

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		res := &errwatch.Result{StatusCode: resp.StatusCode}
		var created struct {
			ID string `json:"id"`
		}
		if json.Unmarshal(respBody, &created) == nil {
			res.ID = created.ID
		}
		return res, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, statusError(resp.StatusCode, respBody, ErrUnauthorized)
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, statusError(resp.StatusCode, respBody, ErrInvalidPayload)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, statusError(resp.StatusCode, respBody, ErrRateLimited)
	case resp.StatusCode >= 500:
		return nil, statusError(resp.StatusCode, respBody, ErrServer)
	}
	return nil, statusError(resp.StatusCode, respBody, ErrUnexpected)
}

func statusError(code int, body []byte, kind error) *StatusError {
	const maxBody = 256
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxBody {
		msg = msg[:maxBody]
	}
	return &StatusError{StatusCode: code, Body: msg, kind: kind}
}

// compress encodes payload per the configured compression and returns the
// Content-Encoding to send with it.
func (s *Sender) compress(payload []byte) ([]byte, string, error) {
	switch s.compression {
	case CompressGzip:
		var buf bytes.Buffer
		zw := s.gzipPool.Get().(*gzip.Writer)
		defer s.gzipPool.Put(zw)
		zw.Reset(&buf)
		if _, err := zw.Write(payload); err != nil {
			return nil, "", fmt.Errorf("gzip payload: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, "", fmt.Errorf("gzip payload: %w", err)
		}
		return buf.Bytes(), "gzip", nil
	case CompressZstd:
		s.zstdOnce.Do(func() {
			s.zstdEnc, s.zstdErr = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		})
		if s.zstdErr != nil {
			return nil, "", fmt.Errorf("zstd encoder: %w", s.zstdErr)
		}
		return s.zstdEnc.EncodeAll(payload, nil), "zstd", nil
	}
	return payload, "", nil
}
