// Package personapi implements person.Repository against the remote Person
// REST API. Every call is a single synchronous request; there is no caching
// and no retry.
package personapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/erp/personportal/internal/domain/person"
	"github.com/erp/personportal/internal/infrastructure/logger"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultMaxResponseSize = 10 << 20

	requestIDHeader = "X-Request-ID"
)

// Remote endpoints, relative to the base URL.
const (
	pathList   = "/Person/Get"
	pathGet    = "/Person/Get/%d"
	pathInsert = "/Person/InsertPerson"
	pathUpdate = "/Person/UpdatePerson/%d"
	pathDelete = "/Person/DeleteByPersonID/%d"
)

// Config holds the remote API settings
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	MaxResponseSize int64
}

// Client talks to the remote Person API.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	maxResponseSize int64
	logger          *zap.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a Client. Outbound requests are traced through otelhttp.
func NewClient(cfg Config, log *zap.Logger, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxResponseSize <= 0 {
		cfg.MaxResponseSize = defaultMaxResponseSize
	}
	if log == nil {
		log = zap.NewNop()
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxResponseSize: cfg.MaxResponseSize,
		logger:          log.Named("personapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the wrapper every remote response uses.
type envelope[T any] struct {
	Data T `json:"data"`
}

// FindAll lists every record. A non-success status yields an empty list.
func (c *Client) FindAll(ctx context.Context) ([]person.Person, error) {
	status, body, err := c.do(ctx, http.MethodGet, pathList, nil, "")
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		c.log(ctx).Warn("list rejected by remote api", zap.Int("status", status))
		return []person.Person{}, nil
	}

	var env envelope[[]person.Person]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode list: %w", person.ErrUnavailable, err)
	}
	if env.Data == nil {
		return []person.Person{}, nil
	}
	return env.Data, nil
}

// FindByID fetches one record. A non-success status yields a zero Person.
func (c *Client) FindByID(ctx context.Context, id int) (person.Person, error) {
	status, body, err := c.do(ctx, http.MethodGet, fmt.Sprintf(pathGet, id), nil, "")
	if err != nil {
		return person.Person{}, err
	}
	if !isSuccess(status) {
		c.log(ctx).Warn("get rejected by remote api", zap.Int("person_id", id), zap.Int("status", status))
		return person.Person{}, nil
	}

	var env envelope[person.Person]
	if err := json.Unmarshal(body, &env); err != nil {
		return person.Person{}, fmt.Errorf("%w: decode person %d: %w", person.ErrUnavailable, id, err)
	}
	return env.Data, nil
}

// Create posts a new record as a multipart form.
func (c *Client) Create(ctx context.Context, p person.Person) error {
	return c.submit(ctx, http.MethodPost, pathInsert, p)
}

// Update replaces the record identified by p.PersonID.
func (c *Client) Update(ctx context.Context, p person.Person) error {
	return c.submit(ctx, http.MethodPut, fmt.Sprintf(pathUpdate, p.PersonID), p)
}

// Delete removes one record.
func (c *Client) Delete(ctx context.Context, id int) error {
	status, _, err := c.do(ctx, http.MethodDelete, fmt.Sprintf(pathDelete, id), nil, "")
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		return fmt.Errorf("%w: delete %d: status %d", person.ErrRejected, id, status)
	}
	return nil
}

func (c *Client) submit(ctx context.Context, method, path string, p person.Person) error {
	body, contentType, err := encodeForm(p)
	if err != nil {
		return fmt.Errorf("encode person form: %w", err)
	}
	status, _, err := c.do(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		return fmt.Errorf("%w: %s %s: status %d", person.ErrRejected, method, path, status)
	}
	return nil
}

// encodeForm builds the multipart body with the Name, Contact and Email parts
// the remote API binds.
func encodeForm(p person.Person) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	fields := []struct{ name, value string }{
		{"Name", p.Name},
		{"Contact", p.Contact},
		{"Email", p.Email},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

// do sends one request and reads at most maxResponseSize bytes of the body.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: build request: %w", person.ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if requestID := logger.GetRequestID(ctx); requestID != "" {
		req.Header.Set(requestIDHeader, requestID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log(ctx).Error("remote api call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return 0, nil, fmt.Errorf("%w: %s %s: %w", person.ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: read %s %s: %w", person.ErrUnavailable, method, path, err)
	}

	c.log(ctx).Debug("remote api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	return resp.StatusCode, data, nil
}

func (c *Client) log(ctx context.Context) *logger.ContextLogger {
	return logger.LOr(ctx, c.logger)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

var _ person.Repository = (*Client)(nil)
