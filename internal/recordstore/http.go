package recordstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/jonathan/transaction-desk/internal/types"
)

const maxResponseBytes = 1 << 20

// HTTPStore talks to a hosted table store over REST. Records are created
// with POST /tables/{table}/records and updated with PATCH on the record.
type HTTPStore struct {
	baseURL           string
	apiKey            string
	transactionsTable string
	partiesTable      string
	httpClient        *http.Client
	maxRetries        uint64
	initialInterval   time.Duration
	maxInterval       time.Duration
	logger            *zap.Logger
}

// Option configures an HTTPStore.
type Option func(*HTTPStore)

// WithHTTPClient replaces the default client.
func WithHTTPClient(h *http.Client) Option {
	return func(s *HTTPStore) { s.httpClient = h }
}

// WithTables sets the transaction and party table names.
func WithTables(transactions, parties string) Option {
	return func(s *HTTPStore) {
		if transactions != "" {
			s.transactionsTable = transactions
		}
		if parties != "" {
			s.partiesTable = parties
		}
	}
}

// WithRetry sets how often idempotent updates are retried and the first wait.
func WithRetry(maxRetries uint64, initial time.Duration) Option {
	return func(s *HTTPStore) {
		s.maxRetries = maxRetries
		if initial > 0 {
			s.initialInterval = initial
			if s.maxInterval < initial {
				s.maxInterval = initial
			}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *HTTPStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewHTTPStore creates a client for the store at baseURL.
func NewHTTPStore(baseURL, apiKey string, opts ...Option) *HTTPStore {
	s := &HTTPStore{
		baseURL:           strings.TrimRight(baseURL, "/"),
		apiKey:            apiKey,
		transactionsTable: "Transactions",
		partiesTable:      "Parties",
		httpClient:        &http.Client{Timeout: 20 * time.Second},
		maxRetries:        3,
		initialInterval:   250 * time.Millisecond,
		maxInterval:       5 * time.Second,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type recordRequest struct {
	Fields map[string]any `json:"fields"`
}

type recordResponse struct {
	ID string `json:"id"`
}

type attachmentValue struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

// CreateTransaction creates the parent record. It is not retried, since a
// repeated POST would create a duplicate record.
func (s *HTTPStore) CreateTransaction(ctx context.Context, rec types.TransactionRecord) (string, error) {
	var out recordResponse
	err := s.do(ctx, "create transaction", http.MethodPost, s.recordsPath(s.transactionsTable),
		recordRequest{Fields: TransactionFields(rec)}, false, &out)
	if err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", &RecordStoreError{Op: "create transaction", Message: "response did not include a record id"}
	}
	return out.ID, nil
}

// CreateParty creates one party row.
func (s *HTTPStore) CreateParty(ctx context.Context, row PartyRow) error {
	return s.do(ctx, "create party", http.MethodPost, s.recordsPath(s.partiesTable),
		recordRequest{Fields: PartyFields(row)}, false, nil)
}

// AttachDocument writes doc, base64 encoded, into field on the parent record.
func (s *HTTPStore) AttachDocument(ctx context.Context, recordID, field, filename string, doc []byte) error {
	body := recordRequest{Fields: map[string]any{
		field: []attachmentValue{{
			Filename:    filename,
			ContentType: "application/pdf",
			Data:        base64.StdEncoding.EncodeToString(doc),
		}},
	}}
	return s.do(ctx, "attach document", http.MethodPatch, s.recordPath(s.transactionsTable, recordID), body, true, nil)
}

// LinkDocumentURL stores the object-storage URL on the parent record.
func (s *HTTPStore) LinkDocumentURL(ctx context.Context, recordID, docURL string) error {
	body := recordRequest{Fields: map[string]any{FieldDocumentURL: docURL}}
	return s.do(ctx, "link document", http.MethodPatch, s.recordPath(s.transactionsTable, recordID), body, true, nil)
}

func (s *HTTPStore) recordsPath(table string) string {
	return "/tables/" + url.PathEscape(table) + "/records"
}

func (s *HTTPStore) recordPath(table, id string) string {
	return s.recordsPath(table) + "/" + url.PathEscape(id)
}

func (s *HTTPStore) do(ctx context.Context, op, method, path string, body any, retryable bool, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &RecordStoreError{Op: op, Message: "failed to encode request", Cause: err}
	}

	attempt := 0
	operation := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(&RecordStoreError{Op: op, Message: "failed to build request", Cause: err})
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if s.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+s.apiKey)
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return &RecordStoreError{Op: op, Message: "request failed", Cause: err}
		}
		defer resp.Body.Close()
		respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return &RecordStoreError{Op: op, StatusCode: resp.StatusCode, Message: "failed to read response", Cause: err}
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if out == nil || len(respBody) == 0 {
				return nil
			}
			if err := json.Unmarshal(respBody, out); err != nil {
				return backoff.Permanent(&RecordStoreError{Op: op, StatusCode: resp.StatusCode, Message: "failed to decode response", Cause: err})
			}
			return nil
		}

		storeErr := parseError(op, resp.StatusCode, respBody)
		if shouldRetryStatus(resp.StatusCode) {
			return storeErr
		}
		return backoff.Permanent(storeErr)
	}

	notify := func(err error, wait time.Duration) {
		s.logger.Warn("record store call failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	err = backoff.RetryNotify(operation, s.backOff(ctx, retryable), notify)
	if err == nil {
		return nil
	}
	var storeErr *RecordStoreError
	if errors.As(err, &storeErr) {
		return storeErr
	}
	return &RecordStoreError{Op: op, Message: "request aborted", Cause: err}
}

func (s *HTTPStore) backOff(ctx context.Context, retryable bool) backoff.BackOff {
	var retries uint64
	if retryable {
		retries = s.maxRetries
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.initialInterval
	b.MaxInterval = s.maxInterval
	return backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx)
}

func shouldRetryStatus(status int) bool {
	return status == http.StatusTooManyRequests ||
		status == http.StatusBadGateway ||
		status == http.StatusServiceUnavailable ||
		status == http.StatusGatewayTimeout
}

func parseError(op string, status int, body []byte) *RecordStoreError {
	out := &RecordStoreError{Op: op, StatusCode: status}

	var obj struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &obj); err == nil && len(obj.Error) > 0 {
		var detail struct {
			Message string `json:"message"`
		}
		var plain string
		switch {
		case json.Unmarshal(obj.Error, &plain) == nil:
			out.Message = plain
		case json.Unmarshal(obj.Error, &detail) == nil:
			out.Message = detail.Message
		}
	}
	if out.Message == "" {
		out.Message = strings.TrimSpace(string(body))
	}
	if out.Message == "" {
		out.Message = http.StatusText(status)
	}
	return out
}
