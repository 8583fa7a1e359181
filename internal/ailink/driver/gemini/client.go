package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tutorlink/tutorlink/internal/ailink/driver"
)

const (
	defaultBaseURL  = "https://generativelanguage.googleapis.com"
	defaultEndpoint = "/v1beta/models/{model}:generateContent"
)

// Client calls the Gemini generateContent API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
	// KeyInQuery sends the key as ?key= instead of the x-goog-api-key header.
	KeyInQuery bool
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey string) *Client {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultBaseURL
	}
	return &Client{
		BaseURL: url,
		APIKey:  strings.TrimSpace(apiKey),
	}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return "gemini"
}

// Capabilities describes supported features.
func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		SupportsJSONMode:     true,
		SupportsSystemPrompt: true,
	}
}

// Complete sends a generateContent request.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("gemini client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}

	payload, err := buildGenerateRequest(req)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	endpoint := c.endpoint(req.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if !c.KeyInQuery {
		httpReq.Header.Set("x-goog-api-key", c.APIKey)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	started := time.Now()
	trace := driver.TraceEntry{
		Driver:      c.Name(),
		Endpoint:    endpoint,
		Model:       req.Model,
		PromptSlug:  req.PromptSlug,
		RequestBody: body,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		trace.Error = c.redact(err.Error())
		trace.DurationMs = time.Since(started).Milliseconds()
		driver.Trace(trace)
		return nil, &transportError{msg: "request failed: " + c.redact(err.Error()), err: err}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	trace.StatusCode = resp.StatusCode
	trace.Response = respBody
	trace.DurationMs = time.Since(started).Milliseconds()
	driver.Trace(trace)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, driver.NewProviderError(c.Name(), resp, respBody)
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return toDriverResponse(&parsed)
}

func (c *Client) endpoint(model string) string {
	path := strings.ReplaceAll(defaultEndpoint, "{model}", url.PathEscape(strings.TrimSpace(model)))
	endpoint := strings.TrimRight(c.BaseURL, "/") + path
	if c.KeyInQuery {
		endpoint += "?key=" + url.QueryEscape(c.APIKey)
	}
	return endpoint
}

// redact strips the key from transport errors, which embed the request URL.
func (c *Client) redact(msg string) string {
	if c.APIKey == "" {
		return msg
	}
	msg = strings.ReplaceAll(msg, url.QueryEscape(c.APIKey), "REDACTED")
	return strings.ReplaceAll(msg, c.APIKey, "REDACTED")
}

// transportError keeps the cause for errors.Is while hiding the key that
// url.Error embeds in its message.
type transportError struct {
	msg string
	err error
}

func (e *transportError) Error() string { return e.msg }
func (e *transportError) Unwrap() error { return e.err }
