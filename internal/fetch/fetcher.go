package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/godilite/helpdesk-kpi/internal/metrics"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// maxBodyBytes caps a single spreadsheet download.
const maxBodyBytes = 64 << 20

var ErrNotConfigured = errors.New("source not configured")

// FetchError reports a transport failure or a non-2xx response.
type FetchError struct {
	Source     string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Request identifies one spreadsheet download.
type Request struct {
	Source string
	URL    string
	Header string
	Token  string
}

// Fetcher downloads spreadsheet payloads over HTTP.
type Fetcher struct {
	client *http.Client
	logger *zap.Logger
}

type Option func(*Fetcher)

func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{Timeout: defaultTimeout},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.Named("fetch")
	return f
}

// Fetch issues a single GET. No retries are attempted.
func (f *Fetcher) Fetch(ctx context.Context, req Request) ([]byte, error) {
	if req.URL == "" {
		return nil, &FetchError{Source: req.Source, Err: ErrNotConfigured}
	}

	start := time.Now()
	body, err := f.do(ctx, req)
	metrics.SourceFetchDurationSeconds.WithLabelValues(req.Source).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.SourceFetchesTotal.WithLabelValues(req.Source, "error").Inc()
		f.logger.Warn("fetch failed", zap.String("source", req.Source), zap.Error(err))
		return nil, err
	}

	metrics.SourceFetchesTotal.WithLabelValues(req.Source, "ok").Inc()
	f.logger.Info("fetched spreadsheet",
		zap.String("source", req.Source),
		zap.Int("bytes", len(body)),
		zap.Duration("took", time.Since(start)))
	return body, nil
}

func (f *Fetcher) do(ctx context.Context, req Request) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, &FetchError{Source: req.Source, Err: err}
	}
	if req.Header != "" && req.Token != "" {
		httpReq.Header.Set(req.Header, req.Token)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, &FetchError{Source: req.Source, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &FetchError{Source: req.Source, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{Source: req.Source, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}
