// Package services provides external service integrations like gateway clients and session management
package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/farhadmsg/blastline/config"
	"github.com/farhadmsg/blastline/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMSGatewayClientSend(t *testing.T) {
	t.Run("SuccessfulSend", func(t *testing.T) {
		var gotPath, gotAPIKey string
		var gotBody smsSendRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAPIKey = r.Header.Get("x-api-key")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"message_id":"msg-123","status":"ACCEPTED"}`))
		}))
		defer server.Close()

		client := NewSMSGatewayClient(&config.SMSProviderConfig{
			BaseURL: server.URL,
			APIKey:  "fallback-key",
			Sender:  "1000",
			Timeout: 5 * time.Second,
		})

		result, err := client.Send(context.Background(), "989121234567", "hello", nil)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "msg-123", result.ProviderMessageID)
		assert.Equal(t, "/api/v1/send", gotPath)
		assert.Equal(t, "fallback-key", gotAPIKey)
		assert.Equal(t, "989121234567", gotBody.Recipient)
		assert.Equal(t, "hello", gotBody.Body)
		assert.Equal(t, "1000", gotBody.Sender)
	})

	t.Run("GatewayCredentialsOverrideConfig", func(t *testing.T) {
		var gotAPIKey string
		var gotBody smsSendRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAPIKey = r.Header.Get("x-api-key")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Write([]byte(`{"message_id":"msg-1","status":"ACCEPTED"}`))
		}))
		defer server.Close()

		client := NewSMSGatewayClient(&config.SMSProviderConfig{
			BaseURL: "http://unused.invalid",
			APIKey:  "fallback-key",
			Sender:  "1000",
			Timeout: 5 * time.Second,
		})

		result, err := client.Send(context.Background(), "989121234567", "hello", &models.GatewayCredentials{
			BaseURL: server.URL,
			APIKey:  "row-key",
			Sender:  "5000",
		})
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "row-key", gotAPIKey)
		assert.Equal(t, "5000", gotBody.Sender)
	})

	t.Run("ProviderErrorBody", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"error":"destination blacklisted"}`))
		}))
		defer server.Close()

		client := NewSMSGatewayClient(&config.SMSProviderConfig{BaseURL: server.URL, Timeout: 5 * time.Second})
		result, err := client.Send(context.Background(), "989121234567", "hello", nil)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "destination blacklisted", result.Error)
		assert.Contains(t, result.RawResponse, "blacklisted")
	})

	t.Run("NonJSONErrorStatus", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream timeout"))
		}))
		defer server.Close()

		client := NewSMSGatewayClient(&config.SMSProviderConfig{BaseURL: server.URL, Timeout: 5 * time.Second})
		result, err := client.Send(context.Background(), "989121234567", "hello", nil)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "provider returned status 502", result.Error)
	})

	t.Run("UnreachableProvider", func(t *testing.T) {
		client := NewSMSGatewayClient(&config.SMSProviderConfig{
			BaseURL: "http://127.0.0.1:1",
			Timeout: time.Second,
		})
		_, err := client.Send(context.Background(), "989121234567", "hello", nil)
		require.Error(t, err)
	})
}

func TestDeviceGatewayClientSend(t *testing.T) {
	t.Run("SuccessfulRelay", func(t *testing.T) {
		var gotBody deviceSendRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/sms/send", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Write([]byte(`{"queued":true}`))
		}))
		defer server.Close()

		client := NewDeviceGatewayClient(&config.DeviceGatewayConfig{
			BaseURL: server.URL,
			APIKey:  "device-key",
			Timeout: 5 * time.Second,
		})
		result, err := client.Send(context.Background(), 7, "989121234567", "hello")
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, uint(7), gotBody.SIMID)
	})

	t.Run("DeviceError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"queued":false,"error":"SIM not registered"}`))
		}))
		defer server.Close()

		client := NewDeviceGatewayClient(&config.DeviceGatewayConfig{BaseURL: server.URL, Timeout: 5 * time.Second})
		result, err := client.Send(context.Background(), 7, "989121234567", "hello")
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "SIM not registered", result.Error)
	})
}

func TestWhatsAppBridgeClient(t *testing.T) {
	t.Run("TextPayload", func(t *testing.T) {
		var gotBody bridgeSendRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/message/send", r.URL.Path)
			assert.Equal(t, "session-1", r.URL.Query().Get("id"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Write([]byte(`{"success":true}`))
		}))
		defer server.Close()

		client := NewWhatsAppBridgeClient(&config.WhatsAppBridgeConfig{BaseURL: server.URL, Timeout: 5 * time.Second})
		result, err := client.Send(context.Background(), "session-1", "989121234567", "hi there", nil)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "989121234567", gotBody.Receiver)
		assert.Equal(t, "hi there", gotBody.Message["text"])
	})

	t.Run("ImagePayloadCarriesCaption", func(t *testing.T) {
		var gotBody bridgeSendRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Write([]byte(`{"success":true}`))
		}))
		defer server.Close()

		client := NewWhatsAppBridgeClient(&config.WhatsAppBridgeConfig{BaseURL: server.URL, Timeout: 5 * time.Second})
		result, err := client.Send(context.Background(), "session-1", "989121234567", "caption text", &models.MediaInfo{
			Type: models.MediaTypeImage,
			URL:  "https://cdn.example.com/pic.jpg",
		})
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "caption text", gotBody.Message["caption"])
		assert.Equal(t, "image/jpeg", gotBody.Message["mimetype"])
		image, ok := gotBody.Message["image"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "https://cdn.example.com/pic.jpg", image["url"])
	})

	t.Run("DocumentPayloadCarriesFilename", func(t *testing.T) {
		var gotBody bridgeSendRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Write([]byte(`{"success":true}`))
		}))
		defer server.Close()

		client := NewWhatsAppBridgeClient(&config.WhatsAppBridgeConfig{BaseURL: server.URL, Timeout: 5 * time.Second})
		_, err := client.Send(context.Background(), "session-1", "989121234567", "see attached", &models.MediaInfo{
			Type: models.MediaTypeDocument,
			URL:  "https://cdn.example.com/report.pdf",
			Name: "report.pdf",
		})
		require.NoError(t, err)
		doc, ok := gotBody.Message["document"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "https://cdn.example.com/report.pdf", doc["url"])
		assert.Equal(t, "report.pdf", gotBody.Message["fileName"])
		assert.Equal(t, "application/pdf", gotBody.Message["mimetype"])
		assert.Equal(t, "see attached", gotBody.Message["caption"])
	})

	t.Run("AudioPayloadCarriesCaption", func(t *testing.T) {
		var gotBody bridgeSendRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Write([]byte(`{"success":true}`))
		}))
		defer server.Close()

		client := NewWhatsAppBridgeClient(&config.WhatsAppBridgeConfig{BaseURL: server.URL, Timeout: 5 * time.Second})
		_, err := client.Send(context.Background(), "session-1", "989121234567", "voice note", &models.MediaInfo{
			Type: models.MediaTypeAudio,
			URL:  "https://cdn.example.com/note.ogg",
		})
		require.NoError(t, err)
		audio, ok := gotBody.Message["audio"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "https://cdn.example.com/note.ogg", audio["url"])
		assert.Equal(t, "voice note", gotBody.Message["caption"])
	})

	t.Run("BridgeReportsFailure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":false,"error":"session not connected"}`))
		}))
		defer server.Close()

		client := NewWhatsAppBridgeClient(&config.WhatsAppBridgeConfig{BaseURL: server.URL, Timeout: 5 * time.Second})
		result, err := client.Send(context.Background(), "session-1", "989121234567", "hi", nil)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "session not connected", result.Error)
	})

	t.Run("ConnectStartsSession", func(t *testing.T) {
		var gotID string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/session/start", r.URL.Path)
			gotID = r.URL.Query().Get("id")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewWhatsAppBridgeClient(&config.WhatsAppBridgeConfig{BaseURL: server.URL, Timeout: 5 * time.Second})
		require.NoError(t, client.Connect(context.Background(), "session-9"))
		assert.Equal(t, "session-9", gotID)
	})

	t.Run("ConnectFailsOnErrorStatus", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewWhatsAppBridgeClient(&config.WhatsAppBridgeConfig{BaseURL: server.URL, Timeout: 5 * time.Second})
		err := client.Connect(context.Background(), "session-9")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})
}

func TestWhatsAppCloudClientSendTemplate(t *testing.T) {
	t.Run("AcceptedTemplate", func(t *testing.T) {
		var gotAuth string
		var gotBody cloudTemplateRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v19.0/1500000000001/messages", r.URL.Path)
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Write([]byte(`{"messages":[{"id":"wamid.abc"}]}`))
		}))
		defer server.Close()

		client := NewWhatsAppCloudClient(&config.WhatsAppCloudConfig{
			GraphBaseURL: server.URL,
			APIVersion:   "v19.0",
			Timeout:      5 * time.Second,
		})
		result, err := client.SendTemplate(context.Background(), "1500000000001", "token-abc", "989121234567", "welcome", "en_US")
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Contains(t, result.RawResponse, "wamid.abc")
		assert.Equal(t, "Bearer token-abc", gotAuth)
		assert.Equal(t, "whatsapp", gotBody.MessagingProduct)
		assert.Equal(t, "template", gotBody.Type)
		assert.Equal(t, "welcome", gotBody.Template.Name)
		assert.Equal(t, "en_US", gotBody.Template.Language.Code)
	})

	t.Run("StructuredErrorSurfaced", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`))
		}))
		defer server.Close()

		client := NewWhatsAppCloudClient(&config.WhatsAppCloudConfig{
			GraphBaseURL: server.URL,
			APIVersion:   "v19.0",
			Timeout:      5 * time.Second,
		})
		result, err := client.SendTemplate(context.Background(), "1500000000001", "bad", "989121234567", "welcome", "en_US")
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "Invalid OAuth access token", result.Error)
	})

	t.Run("OpaqueErrorStatus", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("oops"))
		}))
		defer server.Close()

		client := NewWhatsAppCloudClient(&config.WhatsAppCloudConfig{
			GraphBaseURL: server.URL,
			APIVersion:   "v19.0",
			Timeout:      5 * time.Second,
		})
		result, err := client.SendTemplate(context.Background(), "1500000000001", "t", "989121234567", "welcome", "en_US")
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "cloud API returned status 500", result.Error)
	})
}
