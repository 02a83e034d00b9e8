// Package remote is the client side of the authoritative service boundary:
// idempotent mutation application and the skip-trace quote/execute pair.
// The server implementation is out of scope; tests fake this interface.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Mutation is the wire form of a queued mutation.
type Mutation struct {
	MutationID string          `json:"mutation_id"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
}

// ApplyResult is the authoritative service's acknowledgment of a mutation.
// AuthoritativeStatus is the server's reach status after application, the
// tie-breaker the client reconciles against.
type ApplyResult struct {
	Status              string `json:"status"` // applied or rejected
	AuthoritativeStatus string `json:"authoritative_status,omitempty"`
}

// Quote is a skip-trace cost quote. Ephemeral: never persisted past the
// confirmation flow.
type Quote struct {
	QuoteID       string  `json:"quote_id"`
	LeadID        string  `json:"lead_id"`
	CacheStatus   string  `json:"cache_status"`
	EstimatedCost float64 `json:"estimated_cost"`
	// Preview carries counts only, no PII.
	PreviewPhones int  `json:"preview_phones"`
	PreviewEmails int  `json:"preview_emails"`
	LitigatorHint bool `json:"is_litigator_hint"`
}

// TraceResult is the durable outcome of an executed skip trace.
type TraceResult struct {
	SkipTraceID    string   `json:"skip_trace_id"`
	LeadID         string   `json:"lead_id"`
	Provider       string   `json:"provider"`
	Phones         []string `json:"phones"`
	Emails         []string `json:"emails"`
	IsLitigator    bool     `json:"is_litigator"`
	LitigatorScore float64  `json:"litigator_score"`
	Cost           float64  `json:"cost"`
	CacheStatus    string   `json:"cache_status"`
}

// API is the remote service boundary consumed by the sync engine and the
// skip-trace broker.
type API interface {
	ApplyMutation(ctx context.Context, m Mutation) (*ApplyResult, error)
	GetSkipTraceQuote(ctx context.Context, leadID string) (*Quote, error)
	ExecuteSkipTrace(ctx context.Context, quoteID string) (*TraceResult, error)
}

// apiError is the error envelope the service returns on non-2xx responses.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the remote service over HTTP. Every call carries a
// bounded timeout; a timeout is treated as transient because the request
// may have succeeded server-side.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient builds a Client for the given base URL. No automatic retries:
// retry policy belongs to the sync engine, and paid skip-trace calls must
// never be retried blind.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		httpClient.SetHeader("Authorization", "Bearer "+apiKey)
	}
	return &Client{http: httpClient, logger: logger}
}

// ApplyMutation sends one queued mutation, idempotent by its mutation ID.
func (c *Client) ApplyMutation(ctx context.Context, m Mutation) (*ApplyResult, error) {
	var result ApplyResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", m.MutationID).
		SetBody(m).
		SetResult(&result).
		Post("/v1/mutations")
	if err != nil {
		return nil, &TransientError{Err: err}
	}

	switch {
	case resp.IsSuccess():
		c.logger.Debug("mutation applied",
			zap.String("mutation_id", m.MutationID),
			zap.String("authoritative_status", result.AuthoritativeStatus))
		return &result, nil
	case resp.StatusCode() == http.StatusConflict:
		return nil, &RejectionError{Code: CodeTerminalState, Message: errMessage(resp.Body())}
	case resp.StatusCode() == http.StatusUnprocessableEntity:
		return nil, &RejectionError{Code: CodeValidation, Message: errMessage(resp.Body())}
	default:
		// 5xx and anything unexpected: the server may yet apply it.
		return nil, &TransientError{Err: fmt.Errorf("apply mutation: status %d", resp.StatusCode())}
	}
}

// GetSkipTraceQuote fetches a cost quote for tracing a lead's address.
func (c *Client) GetSkipTraceQuote(ctx context.Context, leadID string) (*Quote, error) {
	var quote Quote
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&quote).
		Get("/v1/leads/" + leadID + "/skip-trace/quote")
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	if !resp.IsSuccess() {
		if resp.StatusCode() == http.StatusUnprocessableEntity {
			return nil, &RejectionError{Code: CodeValidation, Message: errMessage(resp.Body())}
		}
		return nil, &TransientError{Err: fmt.Errorf("skip-trace quote: status %d", resp.StatusCode())}
	}
	return &quote, nil
}

// ExecuteSkipTrace runs the trace behind a quote. For a miss-tier quote
// this is the paid provider call; the broker only reaches it after an
// explicit confirmation.
func (c *Client) ExecuteSkipTrace(ctx context.Context, quoteID string) (*TraceResult, error) {
	var result TraceResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Post("/v1/skip-trace/" + quoteID + "/execute")
	if err != nil {
		return nil, &TransientError{Err: err}
	}

	switch {
	case resp.IsSuccess():
		return &result, nil
	case resp.StatusCode() == http.StatusGone:
		return nil, ErrQuoteExpired
	case resp.StatusCode() == http.StatusBadGateway:
		// Provider failure: surface the provider's message verbatim.
		return nil, &ProviderError{Message: errMessage(resp.Body())}
	case resp.StatusCode() == http.StatusUnprocessableEntity:
		return nil, &RejectionError{Code: CodeValidation, Message: errMessage(resp.Body())}
	default:
		return nil, &TransientError{Err: fmt.Errorf("skip-trace execute: status %d", resp.StatusCode())}
	}
}

// errMessage extracts the error message from a service error envelope,
// falling back to the raw body.
func errMessage(body []byte) string {
	var envelope apiError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return string(body)
}
