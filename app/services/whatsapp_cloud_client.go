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

// WhatsAppCloudClient sends template messages through the Cloud API. A 2xx
// response means the provider accepted the message for processing, not that
// it was delivered; delivery confirmation arrives out of band.
type WhatsAppCloudClient interface {
	SendTemplate(ctx context.Context, phoneNumberID, accessToken, destination, templateName, languageCode string) (*SendResult, error)
}

// WhatsAppCloudClientImpl implements WhatsAppCloudClient
type WhatsAppCloudClientImpl struct {
	config *config.WhatsAppCloudConfig
	client *http.Client
}

type cloudTemplateRequest struct {
	MessagingProduct string        `json:"messaging_product"`
	To               string        `json:"to"`
	Type             string        `json:"type"`
	Template         cloudTemplate `json:"template"`
}

type cloudTemplate struct {
	Name     string        `json:"name"`
	Language cloudLanguage `json:"language"`
}

type cloudLanguage struct {
	Code string `json:"code"`
}

type cloudErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// NewWhatsAppCloudClient creates a new Cloud API client
func NewWhatsAppCloudClient(cfg *config.WhatsAppCloudConfig) WhatsAppCloudClient {
	return &WhatsAppCloudClientImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (s *WhatsAppCloudClientImpl) SendTemplate(ctx context.Context, phoneNumberID, accessToken, destination, templateName, languageCode string) (*SendResult, error) {
	payload, err := json.Marshal(cloudTemplateRequest{
		MessagingProduct: "whatsapp",
		To:               destination,
		Type:             "template",
		Template: cloudTemplate{
			Name:     templateName,
			Language: cloudLanguage{Code: languageCode},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cloud request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s/messages", s.config.GraphBaseURL, s.config.APIVersion, phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send cloud request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read cloud response: %w", err)
	}

	result := &SendResult{RawResponse: string(raw)}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result.Success = true
		return result, nil
	}

	// Surface the structured provider message when present
	var decoded cloudErrorResponse
	if err := json.Unmarshal(raw, &decoded); err == nil && decoded.Error.Message != "" {
		result.Error = decoded.Error.Message
	} else {
		result.Error = fmt.Sprintf("cloud API returned status %d", resp.StatusCode)
	}
	return result, nil
}

// MockWhatsAppCloudClient implements WhatsAppCloudClient for testing
type MockWhatsAppCloudClient struct {
	mu        sync.Mutex
	SentTo    []string
	Templates []string
	FailNext  bool
	FailError string
}

func NewMockWhatsAppCloudClient() *MockWhatsAppCloudClient {
	return &MockWhatsAppCloudClient{}
}

func (m *MockWhatsAppCloudClient) SendTemplate(ctx context.Context, phoneNumberID, accessToken, destination, templateName, languageCode string) (*SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentTo = append(m.SentTo, destination)
	m.Templates = append(m.Templates, templateName)
	if m.FailNext {
		msg := m.FailError
		if msg == "" {
			msg = "Invalid token"
		}
		return &SendResult{Success: false, Error: msg, RawResponse: `{"error":{"message":"` + msg + `"}}`}, nil
	}
	return &SendResult{Success: true, RawResponse: `{"messages":[{"id":"wamid.mock"}]}`}, nil
}
