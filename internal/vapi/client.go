package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apperrors "github.com/cloudrep/voicedesk/pkg/errors"
	"github.com/cloudrep/voicedesk/pkg/httpclient"
)

// DefaultBaseURL is the provider's public API endpoint.
const DefaultBaseURL = "https://api.vapi.ai"

const requestTimeout = 30 * time.Second

// Client talks to the voice provider's REST API. All requests go through a
// circuit breaker; transport failures surface as ErrRemoteUnavailable and
// non-2xx responses as ErrRemoteRejected with the provider's status code.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpclient.CircuitBreakerClient
	logger  *slog.Logger
}

// Config holds client construction parameters.
type Config struct {
	BaseURL string
	APIKey  string
}

// NewClient builds a provider client. Requests are never retried: every
// mutation maps to billable provider state, so a timed-out create must not
// be replayed blindly.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	inner := httpclient.New(httpclient.Config{
		Timeout:         requestTimeout,
		MaxRetries:      0,
		MaxConnsPerHost: 100,
	})
	cb := httpclient.NewCircuitBreakerClient(inner, httpclient.DefaultCircuitBreakerConfig("vapi"), logger)

	return &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		http:    cb,
		logger:  logger,
	}
}

// invoke performs one API request and decodes the JSON response into out
// (when out is non-nil). Error normalization happens here so every typed
// method sees the same taxonomy.
func (c *Client) invoke(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return apperrors.Internal(fmt.Errorf("marshal %s %s body: %w", method, path, err))
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return apperrors.Internal(fmt.Errorf("build %s %s request: %w", method, path, err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return apperrors.RemoteUnavailable(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, "vapi")
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.RemoteUnavailable(fmt.Errorf("decode %s %s response: %w", method, path, err))
	}
	return nil
}

// CreateAssistant provisions a new assistant.
func (c *Client) CreateAssistant(ctx context.Context, payload AssistantPayload) (*Assistant, error) {
	var out Assistant
	if err := c.invoke(ctx, http.MethodPost, "/assistant", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAssistant fetches one assistant by its provider ID.
func (c *Client) GetAssistant(ctx context.Context, id string) (*Assistant, error) {
	var out Assistant
	if err := c.invoke(ctx, http.MethodGet, "/assistant/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAssistant patches an existing assistant. Only the fields set in the
// payload are sent.
func (c *Client) UpdateAssistant(ctx context.Context, id string, payload AssistantPayload) (*Assistant, error) {
	var out Assistant
	if err := c.invoke(ctx, http.MethodPatch, "/assistant/"+url.PathEscape(id), payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAssistant removes an assistant from the provider.
func (c *Client) DeleteAssistant(ctx context.Context, id string) error {
	return c.invoke(ctx, http.MethodDelete, "/assistant/"+url.PathEscape(id), nil, nil)
}

// CreateCredential stores a telephony credential with the provider and
// returns its ID for use in phone number payloads.
func (c *Client) CreateCredential(ctx context.Context, payload CredentialPayload) (*Credential, error) {
	var out Credential
	if err := c.invoke(ctx, http.MethodPost, "/credential", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePhoneNumber imports or provisions a phone number.
func (c *Client) CreatePhoneNumber(ctx context.Context, payload PhoneNumberPayload) (*PhoneNumber, error) {
	var out PhoneNumber
	if err := c.invoke(ctx, http.MethodPost, "/phone-number", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPhoneNumber fetches one phone number from the provider.
func (c *Client) GetPhoneNumber(ctx context.Context, id string) (*PhoneNumber, error) {
	var out PhoneNumber
	if err := c.invoke(ctx, http.MethodGet, "/phone-number/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePhoneNumber patches a phone number's mutable fields (name, assistant
// binding).
func (c *Client) UpdatePhoneNumber(ctx context.Context, id string, payload PhoneNumberPayload) (*PhoneNumber, error) {
	var out PhoneNumber
	if err := c.invoke(ctx, http.MethodPatch, "/phone-number/"+url.PathEscape(id), payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePhoneNumber releases a phone number at the provider.
func (c *Client) DeletePhoneNumber(ctx context.Context, id string) error {
	return c.invoke(ctx, http.MethodDelete, "/phone-number/"+url.PathEscape(id), nil, nil)
}

// ListCalls fetches call snapshots, newest first per the provider's default
// ordering.
func (c *Client) ListCalls(ctx context.Context, params ListCallsParams) ([]Call, error) {
	q := url.Values{}
	if params.AssistantID != "" {
		q.Set("assistantId", params.AssistantID)
	}
	if params.PhoneNumberID != "" {
		q.Set("phoneNumberId", params.PhoneNumberID)
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	path := "/call"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []Call
	if err := c.invoke(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCall fetches one call snapshot by its provider ID.
func (c *Client) GetCall(ctx context.Context, id string) (*Call, error) {
	var out Call
	if err := c.invoke(ctx, http.MethodGet, "/call/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EndCall asks the provider to terminate an in-flight call.
func (c *Client) EndCall(ctx context.Context, id string) error {
	return c.invoke(ctx, http.MethodPost, "/call/"+url.PathEscape(id)+"/end", nil, nil)
}

// CreateCall initiates an outbound call.
func (c *Client) CreateCall(ctx context.Context, payload CallPayload) (*Call, error) {
	var out Call
	if err := c.invoke(ctx, http.MethodPost, "/call", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
