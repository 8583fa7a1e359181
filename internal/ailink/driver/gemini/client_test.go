package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tutorlink/tutorlink/internal/ailink/content"
	"github.com/tutorlink/tutorlink/internal/ailink/driver"
)

func TestClientSendsGenerateContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		require.Empty(t, r.URL.Query().Get("key"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload generateRequest
		require.NoError(t, json.Unmarshal(body, &payload))
		require.NotNil(t, payload.SystemInstruction)
		require.Equal(t, "be brief", payload.SystemInstruction.Parts[0].Text)
		require.Len(t, payload.Contents, 2)
		require.Equal(t, "user", payload.Contents[0].Role)
		require.Equal(t, "model", payload.Contents[1].Role)
		require.Equal(t, "application/json", payload.GenerationConfig.ResponseMIMEType)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"topic\":"},{"text":"\"x\"}"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":5,"totalTokenCount":9}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	client.HTTPClient = server.Client()

	resp, err := client.Complete(context.Background(), &driver.Request{
		Model: "gemini-2.5-flash",
		Messages: []content.Message{
			content.Text(content.RoleSystem, "be brief"),
			content.Text(content.RoleUser, "hello"),
			content.Text(content.RoleAssistant, "hi"),
		},
		ResponseFormat: driver.JSONObject,
	})
	require.NoError(t, err)
	require.Equal(t, "STOP", resp.FinishReason)
	require.Equal(t, "{\"topic\":\n\"x\"}", resp.Text())
	require.Equal(t, 9, resp.Usage.TotalTokens)
}

func TestClientKeyInQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "secret", r.URL.Query().Get("key"))
		require.Empty(t, r.Header.Get("x-goog-api-key"))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	client.HTTPClient = server.Client()
	client.KeyInQuery = true

	resp, err := client.Complete(context.Background(), &driver.Request{
		Model:    "m",
		Messages: []content.Message{content.Text(content.RoleUser, "hello")},
	})
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Text())
}

func TestClientBlockedPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), &driver.Request{
		Model:    "m",
		Messages: []content.Message{content.Text(content.RoleUser, "hello")},
	})
	var perr *driver.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Contains(t, perr.Message, "SAFETY")
}

func TestClientNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), &driver.Request{
		Model:    "m",
		Messages: []content.Message{content.Text(content.RoleUser, "hello")},
	})
	var perr *driver.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, http.StatusForbidden, perr.StatusCode)
}

func TestBuildRequestRequiresUserContent(t *testing.T) {
	_, err := buildGenerateRequest(&driver.Request{
		Model:    "m",
		Messages: []content.Message{content.Text(content.RoleSystem, "only system")},
	})
	require.Error(t, err)
}
