// Package client talks to the workbook persistence service over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ukaji3/workbook-go/pkg/workbook/config"
	"github.com/ukaji3/workbook-go/pkg/workbook/models"
)

// DefaultTimeout bounds each HTTP request when the config sets none.
const DefaultTimeout = 30 * time.Second

// Client is bound to one project of the persistence service.
type Client struct {
	baseURL string
	http    *http.Client
	dialer  *websocket.Dialer
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a client for project projectID under endpoint.
func New(endpoint string, projectID int, opts ...Option) *Client {
	c := &Client{
		baseURL: fmt.Sprintf("%s/api/project/%d", strings.TrimRight(endpoint, "/"), projectID),
		http:    &http.Client{Timeout: DefaultTimeout},
		dialer:  websocket.DefaultDialer,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromConfig creates a client from the client section of the config.
func FromConfig(cfg config.ClientConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	opts = append([]Option{WithHTTPClient(&http.Client{Timeout: timeout})}, opts...)
	return New(cfg.Endpoint, cfg.ProjectID, opts...)
}

// BaseURL returns the project root all requests are made against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Save uploads wb, replacing the project's stored workbook.
func (c *Client) Save(ctx context.Context, wb models.Workbook) (*models.Response, error) {
	body, err := json.Marshal(wb)
	if err != nil {
		return nil, fmt.Errorf("save: encode workbook: %w", err)
	}
	return c.do(ctx, "save", http.MethodPost, "/workbook/save", "application/json", bytes.NewReader(body))
}

// Load fetches the stored workbook. It returns nil without error when the
// service reports success but has no workbook for the project.
func (c *Client) Load(ctx context.Context) (*models.Workbook, error) {
	resp, err := c.do(ctx, "load", http.MethodGet, "/workbook/load", "", nil)
	if err != nil {
		return nil, err
	}
	return resp.WorkbookData, nil
}

// Merge asks the service to execute req.
func (c *Client) Merge(ctx context.Context, req models.MergeRequest) (*models.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("merge: encode request: %w", err)
	}
	return c.do(ctx, "merge", http.MethodPost, "/merge-tables", "application/json", bytes.NewReader(body))
}

// ImportExcel uploads an Excel document as the project's workbook.
func (c *Client) ImportExcel(ctx context.Context, filename string, r io.Reader) (*models.Response, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("import: read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	return c.do(ctx, "import", http.MethodPost, "/import-excel", mw.FormDataContentType(), &buf)
}

func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader) (*models.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("request failed", "op", op, "url", req.URL.String(), "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}

	var envelope models.Response
	decodeErr := json.Unmarshal(data, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := envelope.Text()
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		c.log.Error("request failed", "op", op, "status", resp.StatusCode, "message", msg)
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, decodeErr)
	}
	if !envelope.Success {
		c.log.Warn("request rejected", "op", op, "message", envelope.Text())
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Message: envelope.Text()}
	}

	c.log.Debug("request done", "op", op, "status", resp.StatusCode, "duration", time.Since(start))
	return &envelope, nil
}
