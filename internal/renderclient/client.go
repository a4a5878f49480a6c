// Package renderclient calls a separately deployed rendering endpoint that
// turns a transaction record into a PDF.
package renderclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jonathan/transaction-desk/internal/types"
)

const maxResponseBytes = 64 << 20

// TokenSource issues a bearer token scoped to one record.
type TokenSource interface {
	GenerateToken(recordID string) (string, error)
}

// Request is the body sent to the rendering endpoint.
type Request struct {
	Record   types.TransactionRecord `json:"record"`
	RecordID string                  `json:"record_id"`
}

// Response is the rendering endpoint's reply. Exactly one of PDFBase64 and
// Error is set.
type Response struct {
	PDFBase64 string `json:"pdf_base64,omitempty"`
	PageCount int    `json:"page_count,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Error is returned when the endpoint answers with an error payload or an
// unusable response.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("render endpoint error: status=%d message=%s", e.StatusCode, e.Message)
}

// Client posts records to the rendering endpoint.
type Client struct {
	url        string
	tokens     TokenSource
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client. Timeouts are normally carried
// by the caller's context instead.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithTokenSource signs each request with a bearer token.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// New creates a Client for the endpoint at url.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:        strings.TrimRight(url, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate renders rec remotely and returns the decoded document. The
// record must already carry its record id.
func (c *Client) Generate(ctx context.Context, rec types.TransactionRecord) ([]byte, error) {
	body, err := json.Marshal(Request{Record: rec, RecordID: rec.RecordID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		token, err := c.tokens.GenerateToken(rec.RecordID)
		if err != nil {
			return nil, fmt.Errorf("failed to sign render request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read render response: %w", err)
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &Error{StatusCode: resp.StatusCode, Message: msg}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || out.Error != "" {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &Error{StatusCode: resp.StatusCode, Message: msg}
	}
	if out.PDFBase64 == "" {
		return nil, &Error{StatusCode: resp.StatusCode, Message: "response did not include a document"}
	}

	doc, err := base64.StdEncoding.DecodeString(out.PDFBase64)
	if err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Message: fmt.Sprintf("document is not valid base64: %v", err)}
	}
	return doc, nil
}
