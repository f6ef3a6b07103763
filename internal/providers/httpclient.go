package providers

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/time/rate"

	"subfetch/internal/logging"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultAttempts    = 3
	defaultRetryDelay  = time.Second
	maxPayloadBytes    = 8 << 20
	maxErrorBody       = 4096
)

// StatusError is returned for HTTP responses with status >= 400. It matches
// ErrProviderUnavailable.
type StatusError struct {
	Provider string
	Code     int
	Status   string
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: http %s", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s: http %s: %s", e.Provider, e.Status, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrProviderUnavailable }

// StatusCode extracts the HTTP status from err, or 0 when err carries none.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return 0
}

// HTTPOptions configures an HTTPClient.
type HTTPOptions struct {
	Provider          string
	UserAgent         string
	RequestsPerSecond float64
	Burst             int
	Attempts          uint
	RetryDelay        time.Duration
	Client            *http.Client
	Logger            *slog.Logger
}

// HTTPClient is the rate limited, retrying transport shared by providers.
type HTTPClient struct {
	provider  string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	attempts  uint
	delay     time.Duration
	logger    *slog.Logger
}

// NewHTTPClient builds a client. A non-positive rate disables limiting.
func NewHTTPClient(opts HTTPOptions) *HTTPClient {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	attempts := opts.Attempts
	if attempts == 0 {
		attempts = defaultAttempts
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HTTPClient{
		provider:  opts.Provider,
		userAgent: opts.UserAgent,
		http:      client,
		limiter:   rate.NewLimiter(limit, burst),
		attempts:  attempts,
		delay:     delay,
		logger:    logger,
	}
}

// Do sends req, retrying only on HTTP 429 and 503. Timeouts and transport
// errors are not retried. Responses with status >= 400 are closed and
// returned as *StatusError; transport failures wrap ErrProviderUnavailable.
// Requests with a body must be built with a replayable body (GetBody set).
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	attempt := 0
	return retry.DoWithData(
		func() (*http.Response, error) {
			attempt++
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, retry.Unrecoverable(Unavailable(c.provider, "rate limit wait", err))
			}
			current := req
			if attempt > 1 && req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, retry.Unrecoverable(fmt.Errorf("%s: rewind request body: %w", c.provider, err))
				}
				current = req.Clone(ctx)
				current.Body = body
			}
			resp, err := c.http.Do(current)
			if err != nil {
				return nil, retry.Unrecoverable(Unavailable(c.provider, req.Method+" "+req.URL.Path, err))
			}
			if resp.StatusCode < http.StatusBadRequest {
				return resp, nil
			}
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			resp.Body.Close()
			statusErr := &StatusError{
				Provider: c.provider,
				Code:     resp.StatusCode,
				Status:   resp.Status,
				Body:     strings.TrimSpace(string(body)),
			}
			if !retryableStatus(resp.StatusCode) {
				return nil, retry.Unrecoverable(statusErr)
			}
			return nil, statusErr
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("provider request retry",
				logging.String(logging.FieldProvider, c.provider),
				logging.Int("attempt", int(n)+1),
				logging.Error(err),
			)
		}),
	)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}

// Get issues a GET with optional extra headers.
func (c *HTTPClient) Get(ctx context.Context, target string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.provider, err)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	return c.Do(req)
}

// ReadBody reads a response body up to the payload limit and closes it.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrProviderUnavailable, err)
	}
	return data, nil
}

// DecodePayload unwraps a downloaded subtitle: gzip is inflated, zip
// archives yield their first subtitle entry, and HTML (typically a download
// limit or login page) is reported as ErrProviderUnavailable.
func DecodePayload(provider string, data []byte) ([]byte, error) {
	detected := mimetype.Detect(data)
	switch {
	case isMIME(detected, "application/gzip"):
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: open gzip: %w", ErrInvalidSubtitle, provider, err)
		}
		defer reader.Close()
		inflated, err := io.ReadAll(io.LimitReader(reader, maxPayloadBytes))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: inflate: %w", ErrInvalidSubtitle, provider, err)
		}
		return inflated, nil
	case isMIME(detected, "application/zip"):
		return firstSubtitleInZip(provider, data)
	case isMIME(detected, "text/html"):
		return nil, Unavailable(provider, "html payload instead of subtitle", nil)
	}
	return data, nil
}

func isMIME(detected *mimetype.MIME, want string) bool {
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(want) {
			return true
		}
	}
	return false
}

func firstSubtitleInZip(provider string, data []byte) ([]byte, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: open zip: %w", ErrInvalidSubtitle, provider, err)
	}
	for _, file := range archive.File {
		switch strings.ToLower(path.Ext(file.Name)) {
		case ".srt", ".sub":
		default:
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: open %s: %w", ErrInvalidSubtitle, provider, file.Name, err)
		}
		content, err := io.ReadAll(io.LimitReader(rc, maxPayloadBytes))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: read %s: %w", ErrInvalidSubtitle, provider, file.Name, err)
		}
		return content, nil
	}
	return nil, fmt.Errorf("%w: %s: archive holds no subtitle", ErrInvalidSubtitle, provider)
}
