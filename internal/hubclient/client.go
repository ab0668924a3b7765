// Package hubclient talks to a window hub and exposes hub windows as
// window.Window values.
package hubclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/framebridge/pkg/models"
)

var (
	ErrNotFound = errors.New("window not found on hub")
	ErrGone     = errors.New("window closed on hub")
)

// StatusError is an unexpected hub response
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hub returned %d: %s", e.Code, e.Message)
}

// Options configures a Client
type Options struct {
	RetryMax int

	// Timeout bounds calls made through the window.Window methods, which carry
	// no context
	Timeout time.Duration

	Logger *zap.Logger
}

// Client is a hub REST client
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a client for the hub at baseURL
func New(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil // Disable logging

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    retryClient,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
}

// BaseURL returns the hub address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Register creates a window on the hub
func (c *Client) Register(ctx context.Context, req models.RegisterWindowRequest) (models.WindowInfo, error) {
	var info models.WindowInfo
	err := c.do(ctx, http.MethodPost, "/v1/windows", req, &info)
	return info, err
}

// Info fetches the hub's record of a window
func (c *Client) Info(ctx context.Context, id string) (models.WindowInfo, error) {
	var info models.WindowInfo
	err := c.do(ctx, http.MethodGet, "/v1/windows/"+url.PathEscape(id), nil, &info)
	return info, err
}

// FrameInfo fetches the first open frame named name inside parentID
func (c *Client) FrameInfo(ctx context.Context, parentID, name string) (models.WindowInfo, error) {
	var info models.WindowInfo
	path := "/v1/windows/" + url.PathEscape(parentID) + "/frames/" + url.PathEscape(name)
	err := c.do(ctx, http.MethodGet, path, nil, &info)
	return info, err
}

// List returns the windows known to the hub, optionally filtered by status
func (c *Client) List(ctx context.Context, status models.WindowStatus) ([]models.WindowInfo, error) {
	path := "/v1/windows"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}

	var windows []models.WindowInfo
	err := c.do(ctx, http.MethodGet, path, nil, &windows)
	return windows, err
}

// Close closes a window and the frames inside it
func (c *Client) Close(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/windows/"+url.PathEscape(id), nil, nil)
}

// Resize records a new size for a window
func (c *Client) Resize(ctx context.Context, id string, width, height int) error {
	req := models.ResizeWindowRequest{Width: width, Height: height}
	return c.do(ctx, http.MethodPost, "/v1/windows/"+url.PathEscape(id)+"/resize", req, nil)
}

// Focus marks a window focused
func (c *Client) Focus(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/v1/windows/"+url.PathEscape(id)+"/focus", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		payload = data
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		text := strings.TrimSpace(string(msg))

		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, text)
		case http.StatusGone:
			return fmt.Errorf("%w: %s", ErrGone, text)
		}
		return &StatusError{Code: resp.StatusCode, Message: text}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
