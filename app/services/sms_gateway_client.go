// Package services provides external service integrations like gateway clients and session management
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/farhadmsg/blastline/config"
	"github.com/farhadmsg/blastline/models"
)

// SendResult is the outcome of one delivery attempt against an external
// gateway. RawResponse carries the provider body for the message log.
type SendResult struct {
	Success           bool
	ProviderMessageID string
	RawResponse       string
	Error             string
}

// SMSGatewayClient sends one SMS through an HTTP provider gateway.
type SMSGatewayClient interface {
	Send(ctx context.Context, destination, body string, creds *models.GatewayCredentials) (*SendResult, error)
}

// SMSGatewayClientImpl implements SMSGatewayClient
type SMSGatewayClientImpl struct {
	config *config.SMSProviderConfig
	client *http.Client
}

// smsSendRequest is the provider wire format
type smsSendRequest struct {
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
	Sender    string `json:"sender,omitempty"`
}

// smsSendResponse is the provider wire format
type smsSendResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// NewSMSGatewayClient creates a new SMS gateway client
func NewSMSGatewayClient(cfg *config.SMSProviderConfig) SMSGatewayClient {
	return &SMSGatewayClientImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Send posts the message to the gateway's send endpoint. Gateway-row
// credentials win over the configured fallback provider.
func (s *SMSGatewayClientImpl) Send(ctx context.Context, destination, body string, creds *models.GatewayCredentials) (*SendResult, error) {
	baseURL := s.config.BaseURL
	apiKey := s.config.APIKey
	sender := s.config.Sender
	if creds != nil {
		if creds.BaseURL != "" {
			baseURL = creds.BaseURL
		}
		if creds.APIKey != "" {
			apiKey = creds.APIKey
		}
		if creds.Sender != "" {
			sender = creds.Sender
		}
	}

	payload, err := json.Marshal(smsSendRequest{
		Recipient: destination,
		Body:      body,
		Sender:    sender,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal SMS request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/send", baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send SMS request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read SMS response: %w", err)
	}

	result := &SendResult{RawResponse: string(raw)}
	var decoded smsSendResponse
	if err := json.Unmarshal(raw, &decoded); err == nil {
		result.ProviderMessageID = decoded.MessageID
		result.Error = decoded.Error
	}
	result.Success = resp.StatusCode >= 200 && resp.StatusCode < 300 && decoded.Error == ""
	if !result.Success && result.Error == "" {
		result.Error = fmt.Sprintf("provider returned status %d", resp.StatusCode)
	}
	return result, nil
}

// MockSMSGatewayClient implements SMSGatewayClient for testing
type MockSMSGatewayClient struct {
	mu        sync.Mutex
	SentTo    []string
	SentBody  []string
	FailNext  bool
	FailError string
}

func NewMockSMSGatewayClient() *MockSMSGatewayClient {
	return &MockSMSGatewayClient{}
}

func (m *MockSMSGatewayClient) Send(ctx context.Context, destination, body string, creds *models.GatewayCredentials) (*SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentTo = append(m.SentTo, destination)
	m.SentBody = append(m.SentBody, body)
	if m.FailNext {
		msg := m.FailError
		if msg == "" {
			msg = "mock send failure"
		}
		return &SendResult{Success: false, Error: msg, RawResponse: `{"error":"` + msg + `"}`}, nil
	}
	return &SendResult{Success: true, ProviderMessageID: fmt.Sprintf("mock-%d", len(m.SentTo)), RawResponse: `{"status":"ACCEPTED"}`}, nil
}
