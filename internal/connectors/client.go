package connectors

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	objectclient "github.com/markdave123-py/bostadsdata/internal/core/object-client"

	"github.com/markdave123-py/bostadsdata/internal/core"
	"github.com/markdave123-py/bostadsdata/internal/logger"
)

const userAgent = "bostadsdata-ingest/1.0"

// Client performs upstream calls for one dataset. It never retries.
type Client struct {
	dataset string
	http    *http.Client
	limiter *rate.Limiter
	archive core.ObjectClient
	log     *logger.Logger
	now     func() time.Time
}

type Option func(*Client)

// WithCallDelay spaces consecutive calls at least d apart.
func WithCallDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithArchive stores every successful response body under raw/<dataset>/.
func WithArchive(o core.ObjectClient) Option {
	return func(c *Client) { c.archive = o }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

func NewClient(dataset string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		dataset: dataset,
		http:    &http.Client{Timeout: timeout},
		log:     logger.Nop(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type archiveTagKey struct{}

// WithArchiveTag labels the raw archive objects written for calls made with
// ctx, typically with the category or series the call fetched.
func WithArchiveTag(ctx context.Context, tag string) context.Context {
	return context.WithValue(ctx, archiveTagKey{}, tag)
}

func archiveTag(ctx context.Context) string {
	tag, _ := ctx.Value(archiveTagKey{}).(string)
	return tag
}

// Log returns the client's logger.
func (c *Client) Log() *logger.Logger { return c.log }

// Get fetches url and returns the body of a 2xx response.
func (c *Client) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, url, header, nil)
}

// Post sends body with the given content type.
func (c *Client) Post(ctx context.Context, url, contentType string, body []byte, header http.Header) ([]byte, error) {
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set("Content-Type", contentType)
	return c.Do(ctx, http.MethodPost, url, h, body)
}

// Do performs one call. Non-2xx responses yield *core.StatusError and the
// body is discarded unread.
func (c *Client) Do(ctx context.Context, method, url string, header http.Header, body []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set("User-Agent", userAgent)

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &core.StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	c.log.Debug("upstream call", "dataset", c.dataset, "method", method, "url", url, "bytes", len(payload), "elapsed", c.now().Sub(start))

	c.archiveBody(ctx, start, resp.Header.Get("Content-Type"), payload)
	return payload, nil
}

// Archive failures are logged and otherwise ignored.
func (c *Client) archiveBody(ctx context.Context, at time.Time, contentType string, payload []byte) {
	if c.archive == nil {
		return
	}
	key := objectclient.RawKey(c.dataset, at, archiveTag(ctx), contentType)
	if _, err := c.archive.UploadFile(ctx, key, bytes.NewReader(payload), contentType); err != nil {
		c.log.Warn("raw archive failed", "dataset", c.dataset, "key", key, "error", err)
	}
}
