// Package bitrix implements the Bitrix24 REST client used for partner
// resolution, lead/deal creation, and partner binding. All response-shape
// normalization happens here; callers only see typed results and errors.
package bitrix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// EntityKind identifies the CRM record type handled by the integration.
type EntityKind string

const (
	EntityDeal EntityKind = "deal"
	EntityLead EntityKind = "lead"
)

const defaultTimeout = 30 * time.Second

// Fields names the CRM user fields the partner integration writes and reads.
type Fields struct {
	ContactCode     string
	CompanyCode     string
	DealPartnerRef  string
	LeadPartnerRef  string
	DealPartnerCode string
}

// Config holds the settings needed to build a Client.
type Config struct {
	WebhookURL string
	Timeout    time.Duration
	Fields     Fields
}

// Client is a Bitrix24 REST API client. It holds no mutable state beyond the
// underlying HTTP client and is safe for concurrent use.
type Client struct {
	http   *resty.Client
	fields Fields
	log    *slog.Logger
}

// NewClient creates a Bitrix24 client for the given inbound webhook URL.
func NewClient(cfg Config, log *slog.Logger) (*Client, error) {
	if cfg.WebhookURL == "" {
		return nil, errors.New("bitrix webhook URL is required")
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.WebhookURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:   httpClient,
		fields: cfg.Fields,
		log:    log.With("component", "bitrix"),
	}, nil
}

// CallError is a failed CRM call. Retryable errors are transport-level
// (network, timeout, 5xx); a well-formed CRM error response is final and
// carries the CRM's own message.
type CallError struct {
	Method    string
	Message   string
	Retryable bool
	err       error
}

func (e *CallError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("bitrix %s: %s: %v", e.Method, e.Message, e.err)
	}
	return fmt.Sprintf("bitrix %s: %s", e.Method, e.Message)
}

func (e *CallError) Unwrap() error { return e.err }

// IsRetryable reports whether err is a CRM call failure worth retrying.
func IsRetryable(err error) bool {
	var callErr *CallError
	return errors.As(err, &callErr) && callErr.Retryable
}

// call issues one REST request and normalizes the response. A success is
// either a value under "result" or a bare value; an error object or a bad
// HTTP status becomes a CallError.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(params).
		Post("/" + method + ".json")
	if err != nil {
		return nil, &CallError{Method: method, Message: "request failed", Retryable: true, err: err}
	}

	body := resp.Body()

	var envelope struct {
		Result           json.RawMessage `json:"result"`
		Error            string          `json:"error"`
		ErrorDescription string          `json:"error_description"`
	}
	if unmarshalErr := json.Unmarshal(body, &envelope); unmarshalErr == nil {
		if envelope.Error != "" || envelope.ErrorDescription != "" {
			msg := envelope.ErrorDescription
			if msg == "" {
				msg = envelope.Error
			}
			c.log.WarnContext(ctx, "CRM returned error", "method", method, "error", msg)
			return nil, &CallError{Method: method, Message: msg}
		}
		if envelope.Result != nil {
			return envelope.Result, nil
		}
	}

	if code := resp.StatusCode(); code >= http.StatusBadRequest {
		return nil, &CallError{
			Method:    method,
			Message:   fmt.Sprintf("unexpected status %d", code),
			Retryable: code >= http.StatusInternalServerError || code == http.StatusTooManyRequests,
		}
	}

	// Some responses carry the value bare instead of under "result".
	return json.RawMessage(body), nil
}

// entityID extracts a positive integer identifier from a normalized call
// result, accepting a bare number, a quoted number, or one more level of
// {"result": n} wrapping. Zero, negative, or absent values are not IDs.
func entityID(raw json.RawMessage) (int64, bool) {
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		if id, err := num.Int64(); err == nil && id > 0 {
			return id, true
		}
		return 0, false
	}

	var quoted string
	if err := json.Unmarshal(raw, &quoted); err == nil {
		if id, err := strconv.ParseInt(quoted, 10, 64); err == nil && id > 0 {
			return id, true
		}
		return 0, false
	}

	var wrapped struct {
		Result json.Number `json:"result"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Result != "" {
		if id, err := wrapped.Result.Int64(); err == nil && id > 0 {
			return id, true
		}
	}

	return 0, false
}

// stringField decodes a JSON string value, returning "" for anything else.
func stringField(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// hasValue reports whether a field value is present and non-empty.
func hasValue(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	switch trimmed {
	case "", "null", `""`, "[]", "0", `"0"`, "false":
		return false
	}
	return true
}

// updateOK recognizes the truthy shapes crm.*.update responds with.
func updateOK(raw json.RawMessage) bool {
	var ok bool
	if err := json.Unmarshal(raw, &ok); err == nil {
		return ok
	}
	if id, found := entityID(raw); found {
		return id > 0
	}
	return false
}
