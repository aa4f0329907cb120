// Package backend is the HTTP client for the remote campus backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/campusai/portal/internal/models"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Client talks to the remote backend API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "backend")
	return c
}

// BaseURL returns the backend root URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// UploadFile posts one converted document to the account's uploads.
func (c *Client) UploadFile(ctx context.Context, target models.UploadTarget) error {
	body, err := json.Marshal(target)
	if err != nil {
		return &RemoteError{Op: "upload file", Err: err}
	}
	path := "/api/account/upload/" + url.PathEscape(strings.TrimSpace(target.Account))
	return c.do(ctx, "upload file", http.MethodPost, path, nil, body, nil)
}

// Login checks credentials and returns the account.
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, &RemoteError{Op: "login", StatusCode: http.StatusBadRequest, Message: loginMessages[http.StatusBadRequest]}
	}

	q := url.Values{"accountEmail": {email}, "password": {password}}
	var out models.LoginResponse
	err := c.do(ctx, "login", http.MethodGet, "/api/account/login", q, nil, &out)
	if err != nil {
		if re, ok := err.(*RemoteError); ok {
			if msg, known := loginMessages[re.StatusCode]; known {
				re.Message = msg
			}
		}
		return nil, err
	}
	return &out, nil
}

// GetProfile returns the raw account profile.
func (c *Client) GetProfile(ctx context.Context, email string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, "fetch profile", http.MethodGet, "/api/account/profile/"+escape(email), nil, nil, &out)
	return out, err
}

// UpdateProfile changes the account name and/or active flag.
func (c *Client) UpdateProfile(ctx context.Context, email string, update models.ProfileUpdate) (json.RawMessage, error) {
	q := url.Values{"accountEmail": {email}}
	if name := strings.TrimSpace(update.Name); name != "" {
		q.Set("accountName", name)
	}
	if update.IsActive != nil {
		q.Set("isActive", strconv.FormatBool(*update.IsActive))
	}

	var out json.RawMessage
	err := c.do(ctx, "update profile", http.MethodGet, "/api/account/profile/update", q, nil, &out)
	return out, err
}

// GetTickets returns the department's tickets grouped by status.
func (c *Client) GetTickets(ctx context.Context, email string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, "fetch tickets", http.MethodGet, "/api/account/tickets/"+escape(email), nil, nil, &out)
	return out, err
}

// GetTicketsByStatus returns the department's tickets with one status.
func (c *Client) GetTicketsByStatus(ctx context.Context, email string, status models.TicketStatus) (json.RawMessage, error) {
	q := url.Values{"status": {string(status)}}
	var out json.RawMessage
	err := c.do(ctx, "fetch tickets by status", http.MethodGet, "/api/account/tickets/status/"+escape(email), q, nil, &out)
	return out, err
}

// SolveTicket answers a ticket.
func (c *Client) SolveTicket(ctx context.Context, ticketID, solution string) (json.RawMessage, error) {
	q := url.Values{"ticketId": {ticketID}, "solution": {solution}}
	var out json.RawMessage
	err := c.do(ctx, "solve ticket", http.MethodGet, "/api/account/ticket/solve", q, nil, &out)
	return out, err
}

// GetUploads lists the account's uploaded documents.
func (c *Client) GetUploads(ctx context.Context, email string) (*models.UploadListing, error) {
	var out models.UploadListing
	if err := c.do(ctx, "fetch uploads", http.MethodGet, "/api/account/uploads/"+escape(email), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteFile removes an uploaded document.
func (c *Client) DeleteFile(ctx context.Context, email string, category models.Category, fileName string) (json.RawMessage, error) {
	q := url.Values{"category": {string(category)}, "filename": {fileName}}
	var out json.RawMessage
	err := c.do(ctx, "delete file", http.MethodGet, "/api/account/upload/delete/"+escape(email), q, nil, &out)
	return out, err
}

// GetSmartSolveTickets returns the clustered tickets for the account.
func (c *Client) GetSmartSolveTickets(ctx context.Context, email string) (json.RawMessage, error) {
	q := url.Values{"accountEmail": {strings.TrimSpace(email)}}
	var out json.RawMessage
	err := c.do(ctx, "fetch smartsolve tickets", http.MethodGet, "/api/smartsolve/getSmartsolveTicket", q, nil, &out)
	return out, err
}

// SolveSmartTickets answers several ticket clusters at once.
func (c *Client) SolveSmartTickets(ctx context.Context, email string, solutions []models.TicketSolution) (json.RawMessage, error) {
	encoded, err := json.Marshal(solutions)
	if err != nil {
		return nil, &RemoteError{Op: "solve smart tickets", Err: err}
	}
	q := url.Values{"accountEmail": {strings.TrimSpace(email)}, "solutions": {string(encoded)}}
	var out json.RawMessage
	err = c.do(ctx, "solve smart tickets", http.MethodGet, "/api/smartsolve/solveSmartTickets", q, nil, &out)
	return out, err
}

// DashboardStreamURL returns the SSE endpoint for the account's dashboard.
func (c *Client) DashboardStreamURL(email string) string {
	return c.baseURL + "/api/account/dashboard/stream/" + escape(email)
}

// Stream opens a long-lived GET request for an event stream.
func (c *Client) Stream(ctx context.Context, streamURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, &RemoteError{Op: "open stream", Err: err}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// Streams outlive the per-request timeout.
	streaming := *c.client
	streaming.Timeout = 0

	resp, err := streaming.Do(req)
	if err != nil {
		return nil, &RemoteError{Op: "open stream", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, remoteError("open stream", resp)
	}
	return resp, nil
}

func escape(email string) string {
	return url.PathEscape(strings.TrimSpace(email))
}

// do performs one JSON request. A nil out discards the response body.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body []byte, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return &RemoteError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", "op", op, "method", method, "path", path, "error", err)
		return &RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request", "op", op, "method", method, "path", path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return remoteError(op, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if raw, ok := out.(*json.RawMessage); ok {
		if len(bytes.TrimSpace(data)) == 0 {
			data = []byte("null")
		}
		if !json.Valid(data) {
			return &RemoteError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("invalid JSON response")}
		}
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// remoteError builds a RemoteError from a non-2xx response, preferring the
// backend's {"error": "..."} message.
func remoteError(op string, resp *http.Response) *RemoteError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &payload) == nil {
		switch {
		case payload.Error != "":
			msg = payload.Error
		case payload.Message != "":
			msg = payload.Message
		}
	}
	return &RemoteError{Op: op, StatusCode: resp.StatusCode, Message: msg}
}
