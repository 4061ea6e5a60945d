// Package api talks to the remote message store and user directory.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"msgboard/internal/apperr"
	"msgboard/internal/model"
)

// maxErrorBody caps how much of a rejection body ends up in an error
const maxErrorBody = 512

// Client is the HTTP client for every message store endpoint
type Client struct {
	base *url.URL
	http *http.Client
	log  *slog.Logger
}

// New builds a Client for baseURL. A nil httpClient gets a client with
// the given timeout; the timeout is not applied to push subscriptions.
func New(baseURL string, httpClient *http.Client, timeout time.Duration, log *slog.Logger) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{base: base, http: httpClient, log: log}, nil
}

// History fetches every stored message in server order
func (c *Client) History(ctx context.Context) ([]model.Message, error) {
	const op = "GET /message/all/"

	resp, err := c.do(ctx, op, http.MethodGet, c.endpoint("message/all/"), nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var messages []model.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, apperr.ErrParse, err)
	}

	c.log.Debug("Fetched history", "count", len(messages))
	return messages, nil
}

// Lookup resolves an address token into its display label. The raw
// response body is the label.
func (c *Client) Lookup(ctx context.Context, address string) (string, error) {
	const op = "GET /user/get/"

	resp, err := c.do(ctx, op, http.MethodGet, c.endpoint("user", "get", url.PathEscape(address)), nil, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	label, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, apperr.ErrNetwork, err)
	}
	return string(label), nil
}

// Post creates a message. The response body is not consumed.
func (c *Client) Post(ctx context.Context, msg model.PostRequest) error {
	const op = "POST /message/post/"

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: encode body: %w", op, err)
	}

	resp, err := c.do(ctx, op, http.MethodPost, c.endpoint("message/post/"), bytes.NewReader(body), "application/json")
	if err != nil {
		return err
	}
	drain(resp.Body)
	return nil
}

// SetUser registers a label for an address
func (c *Client) SetUser(ctx context.Context, address, username string) error {
	const op = "POST /user/set/"

	u := c.endpoint("user/set/")
	q := u.Query()
	q.Set("address", address)
	q.Set("username", username)
	u.RawQuery = q.Encode()

	resp, err := c.do(ctx, op, http.MethodPost, u, nil, "")
	if err != nil {
		return err
	}
	drain(resp.Body)
	return nil
}

// EventsURL is the server-sent events endpoint
func (c *Client) EventsURL() string {
	return c.endpoint("events/").String()
}

// WebSocketURL is the websocket push endpoint
func (c *Client) WebSocketURL() string {
	u := c.endpoint("ws")
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String()
}

// endpoint keeps the trailing slash of the last segment, the routes depend on it
func (c *Client) endpoint(segments ...string) *url.URL {
	return c.base.JoinPath(segments...)
}

func (c *Client) do(ctx context.Context, op, method string, u *url.URL, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, apperr.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &apperr.StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return resp, nil
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
