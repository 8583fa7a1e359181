package ailink

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tutorlink/tutorlink/internal/ailink/content"
	"github.com/tutorlink/tutorlink/internal/ailink/driver"
)

// Adapter sends a rendered prompt to the provider routed for its role and
// returns the raw response text. It performs no parsing and no retries.
type Adapter struct {
	registry *Registry
	cfg      Config
	role     string
	model    string
	logger   Logger
}

// AdapterOption customizes an Adapter.
type AdapterOption func(*Adapter)

// WithRole routes calls through the provider configured for role.
func WithRole(role string) AdapterOption {
	return func(a *Adapter) {
		a.role = strings.TrimSpace(role)
	}
}

// WithModel forces a model regardless of provider tiers.
func WithModel(model string) AdapterOption {
	return func(a *Adapter) {
		a.model = strings.TrimSpace(model)
	}
}

// Logger is satisfied by *zap.Logger and the gofulmen logger.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
}

// WithLogger sets the adapter logger.
func WithLogger(logger Logger) AdapterOption {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAdapter builds an adapter over a fresh registry for cfg.
func NewAdapter(cfg Config, opts ...AdapterOption) *Adapter {
	return NewAdapterWithRegistry(NewRegistry(cfg), cfg, opts...)
}

// NewAdapterWithRegistry shares an existing registry so credential rotation
// state is common to every adapter.
func NewAdapterWithRegistry(registry *Registry, cfg Config, opts ...AdapterOption) *Adapter {
	a := &Adapter{registry: registry, cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Send implements the orchestrator's adapter contract.
func (a *Adapter) Send(ctx context.Context, prompt string) (string, error) {
	resolved, err := a.registry.Resolve(a.role, a.model)
	if err != nil {
		return "", &ProviderFailure{Code: CodeNotReady, Message: "no provider available", Details: err.Error(), Err: err}
	}

	req := &driver.Request{
		Model:       resolved.Model,
		Messages:    a.messages(resolved.Driver.Capabilities(), prompt),
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
		PromptSlug:  a.role,
	}
	if resolved.Driver.Capabilities().SupportsJSONMode {
		req.ResponseFormat = driver.JSONObject
	}

	started := time.Now()
	resp, err := resolved.Driver.Complete(ctx, req)
	elapsed := time.Since(started)
	if err != nil {
		failure := ClassifyProviderError(err)
		a.logger.Warn("Provider call failed",
			zap.String("provider", resolved.ProviderID),
			zap.String("model", resolved.Model),
			zap.String("code", failure.Code),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return "", failure
	}

	text := resp.Text()
	fields := []zap.Field{
		zap.String("provider", resolved.ProviderID),
		zap.String("model", resolved.Model),
		zap.String("finish_reason", resp.FinishReason),
		zap.Duration("elapsed", elapsed),
	}
	if resp.Usage != nil {
		fields = append(fields, zap.Int("total_tokens", resp.Usage.TotalTokens))
	}
	if raw := captureRaw(a.cfg.Debug, text); raw != "" {
		fields = append(fields, zap.String("raw", raw))
	}
	a.logger.Debug("Provider call completed", fields...)
	return text, nil
}

func (a *Adapter) messages(caps driver.Capabilities, prompt string) []content.Message {
	system := strings.TrimSpace(a.cfg.SystemPrompt)
	if system == "" {
		system = DefaultSystemPrompt
	}
	if !caps.SupportsSystemPrompt {
		return []content.Message{content.Text(content.RoleUser, system+"\n\n"+prompt)}
	}
	return []content.Message{
		content.Text(content.RoleSystem, system),
		content.Text(content.RoleUser, prompt),
	}
}
