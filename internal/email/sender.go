// Package email provides the outbound email collaborator used for
// collaboration invitations. Delivery is tracked asynchronously through
// provider webhooks; Send only reports the immediate submission outcome.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/scholarship-finder/backend/internal/logging"
)

// Message is one outbound email.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// SendResult reports the immediate outcome of a send attempt.
type SendResult struct {
	// ProviderID is the provider-assigned email id, used to correlate
	// later webhook events.
	ProviderID string
	// Status is the provider-reported status, typically "sent".
	Status string
}

// Sender submits email to the delivery provider.
type Sender interface {
	Send(ctx context.Context, msg Message) (*SendResult, error)
}

// HTTPSender talks to a Resend-style HTTP email API.
type HTTPSender struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
	maxRetries int
	logger     *logging.Logger
}

// HTTPSenderConfig configures the HTTP sender.
type HTTPSenderConfig struct {
	BaseURL    string
	APIKey     string
	From       string
	Timeout    time.Duration
	MaxRetries int
}

// NewHTTPSender creates an HTTP email sender.
func NewHTTPSender(cfg HTTPSenderConfig, logger *logging.Logger) *HTTPSender {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 2
	}

	return &HTTPSender{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		from:       cfg.From,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Send submits the message, retrying transient provider failures.
func (s *HTTPSender) Send(ctx context.Context, msg Message) (*SendResult, error) {
	if msg.From == "" {
		msg.From = s.from
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		result, retryable, err := s.send(ctx, body)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		s.logger.WithContext(ctx).WithError(err).Warn("email send attempt failed, retrying")
	}

	return nil, lastErr
}

func (s *HTTPSender) send(ctx context.Context, body []byte) (*SendResult, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("email provider error %d: %s", resp.StatusCode, respBody)
	}
	if resp.StatusCode >= 400 {
		return nil, false, fmt.Errorf("email provider rejected message (%d): %s", resp.StatusCode, respBody)
	}

	providerID := gjson.GetBytes(respBody, "id").String()
	if providerID == "" {
		return nil, false, fmt.Errorf("email provider response missing id")
	}

	return &SendResult{ProviderID: providerID, Status: "sent"}, false, nil
}

// NoopSender accepts every message without delivering it. Used in
// development and tests.
type NoopSender struct {
	nextID int
}

// NewNoopSender creates a no-op sender.
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// Send records nothing and reports success.
func (s *NoopSender) Send(_ context.Context, _ Message) (*SendResult, error) {
	s.nextID++
	return &SendResult{
		ProviderID: fmt.Sprintf("noop-%d", s.nextID),
		Status:     "sent",
	}, nil
}
