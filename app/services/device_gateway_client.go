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
)

// DeviceGatewayClient relays one SMS through a customer-attached device SIM.
// Device sends are not metered against prepaid credit.
type DeviceGatewayClient interface {
	Send(ctx context.Context, simID uint, destination, body string) (*SendResult, error)
}

// DeviceGatewayClientImpl implements DeviceGatewayClient
type DeviceGatewayClientImpl struct {
	config *config.DeviceGatewayConfig
	client *http.Client
}

type deviceSendRequest struct {
	SIMID     uint   `json:"sim_id"`
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
}

type deviceSendResponse struct {
	Queued bool   `json:"queued"`
	Error  string `json:"error,omitempty"`
}

// NewDeviceGatewayClient creates a new device gateway client
func NewDeviceGatewayClient(cfg *config.DeviceGatewayConfig) DeviceGatewayClient {
	return &DeviceGatewayClientImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (s *DeviceGatewayClientImpl) Send(ctx context.Context, simID uint, destination, body string) (*SendResult, error) {
	payload, err := json.Marshal(deviceSendRequest{
		SIMID:     simID,
		Recipient: destination,
		Body:      body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal device send request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/sms/send", s.config.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send device request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read device response: %w", err)
	}

	result := &SendResult{RawResponse: string(raw)}
	var decoded deviceSendResponse
	if err := json.Unmarshal(raw, &decoded); err == nil {
		result.Error = decoded.Error
	}
	result.Success = resp.StatusCode >= 200 && resp.StatusCode < 300 && decoded.Error == ""
	if !result.Success && result.Error == "" {
		result.Error = fmt.Sprintf("device gateway returned status %d", resp.StatusCode)
	}
	return result, nil
}

// MockDeviceGatewayClient implements DeviceGatewayClient for testing
type MockDeviceGatewayClient struct {
	mu       sync.Mutex
	SentSIMs []uint
	SentTo   []string
	FailNext bool
}

func NewMockDeviceGatewayClient() *MockDeviceGatewayClient {
	return &MockDeviceGatewayClient{}
}

func (m *MockDeviceGatewayClient) Send(ctx context.Context, simID uint, destination, body string) (*SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentSIMs = append(m.SentSIMs, simID)
	m.SentTo = append(m.SentTo, destination)
	if m.FailNext {
		return &SendResult{Success: false, Error: "mock device failure"}, nil
	}
	return &SendResult{Success: true, RawResponse: `{"queued":true}`}, nil
}
