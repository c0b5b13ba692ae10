package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/farhadmsg/blastline/config"
	"github.com/farhadmsg/blastline/models"
)

// WhatsAppBridgeClient sends one message through a bridge session. The
// payload shape depends on the media type of the message.
type WhatsAppBridgeClient interface {
	Send(ctx context.Context, sessionID, destination, body string, media *models.MediaInfo) (*SendResult, error)
	// Connect asks the bridge to start (or resume) the named session.
	Connect(ctx context.Context, sessionID string) error
}

// WhatsAppBridgeClientImpl implements WhatsAppBridgeClient
type WhatsAppBridgeClientImpl struct {
	config *config.WhatsAppBridgeConfig
	client *http.Client
}

type bridgeSendRequest struct {
	Receiver string         `json:"receiver"`
	Message  map[string]any `json:"message"`
}

type bridgeSendResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// NewWhatsAppBridgeClient creates a new bridge client
func NewWhatsAppBridgeClient(cfg *config.WhatsAppBridgeConfig) WhatsAppBridgeClient {
	return &WhatsAppBridgeClientImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// bridgeMessagePayload builds the media-typed message object. Text bodies
// ride in the caption field for visual media.
func bridgeMessagePayload(body string, media *models.MediaInfo) (map[string]any, error) {
	if media == nil || media.Type == models.MediaTypeText {
		return map[string]any{"text": body}, nil
	}
	switch media.Type {
	case models.MediaTypeImage:
		return map[string]any{
			"image":    map[string]any{"url": media.URL},
			"mimetype": "image/jpeg",
			"caption":  body,
		}, nil
	case models.MediaTypeAudio:
		return map[string]any{"audio": map[string]any{"url": media.URL}, "caption": body}, nil
	case models.MediaTypeVideo:
		return map[string]any{"video": map[string]any{"url": media.URL}, "caption": body}, nil
	case models.MediaTypeDocument:
		return map[string]any{
			"document": map[string]any{"url": media.URL},
			"mimetype": "application/pdf",
			"fileName": media.Name,
			"caption":  body,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported media type %q", media.Type)
	}
}

func (s *WhatsAppBridgeClientImpl) Send(ctx context.Context, sessionID, destination, body string, media *models.MediaInfo) (*SendResult, error) {
	message, err := bridgeMessagePayload(body, media)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(bridgeSendRequest{
		Receiver: destination,
		Message:  message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bridge request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/message/send?id=%s", s.config.BaseURL, url.QueryEscape(sessionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send bridge request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read bridge response: %w", err)
	}

	result := &SendResult{RawResponse: string(raw)}
	var decoded bridgeSendResponse
	if err := json.Unmarshal(raw, &decoded); err == nil {
		result.Error = decoded.Error
	}
	result.Success = resp.StatusCode >= 200 && resp.StatusCode < 300 && result.Error == ""
	if !result.Success && result.Error == "" {
		result.Error = fmt.Sprintf("bridge returned status %d", resp.StatusCode)
	}
	return result, nil
}

// Connect starts the session on the bridge side. The bridge replies 200 once
// the underlying connection is open, so a non-2xx here means the session is
// unusable and the caller should retry through the registry.
func (s *WhatsAppBridgeClientImpl) Connect(ctx context.Context, sessionID string) error {
	endpoint := fmt.Sprintf("%s/session/start?id=%s", s.config.BaseURL, url.QueryEscape(sessionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach bridge: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("bridge session start returned status %d", resp.StatusCode)
	}
	return nil
}

// MockWhatsAppBridgeClient implements WhatsAppBridgeClient for testing
type MockWhatsAppBridgeClient struct {
	mu       sync.Mutex
	Sessions []string
	SentTo   []string
	FailNext bool
}

func NewMockWhatsAppBridgeClient() *MockWhatsAppBridgeClient {
	return &MockWhatsAppBridgeClient{}
}

func (m *MockWhatsAppBridgeClient) Send(ctx context.Context, sessionID, destination, body string, media *models.MediaInfo) (*SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sessions = append(m.Sessions, sessionID)
	m.SentTo = append(m.SentTo, destination)
	if m.FailNext {
		return &SendResult{Success: false, Error: "mock bridge failure"}, nil
	}
	return &SendResult{Success: true, RawResponse: `{"success":true}`}, nil
}

func (m *MockWhatsAppBridgeClient) Connect(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sessions = append(m.Sessions, sessionID)
	if m.FailNext {
		return errors.New("mock bridge connect failure")
	}
	return nil
}
