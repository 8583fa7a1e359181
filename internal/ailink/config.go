package ailink

import "time"

// DefaultSystemPrompt is sent ahead of every prompt unless overridden.
const DefaultSystemPrompt = "You are an educational assistant for students and teachers. Respond only with valid JSON that matches the structure requested in the prompt. Do not add commentary outside the JSON."

// Config defines provider configuration for AILink.
//
// It is self-contained so the subtree can be decoded straight from the
// application config.
type Config struct {
	DefaultProvider string        `mapstructure:"default_provider"`
	DefaultTimeout  time.Duration `mapstructure:"default_timeout"`

	// PromptsDir overrides the built-in prompt set.
	PromptsDir string `mapstructure:"prompts_dir"`

	SystemPrompt string   `mapstructure:"system_prompt"`
	Temperature  *float64 `mapstructure:"temperature"`
	MaxTokens    *int     `mapstructure:"max_tokens"`

	// Debug controls optional diagnostics like raw payload capture.
	Debug DebugConfig `mapstructure:"debug"`

	// Providers is a set of provider instances keyed by a user-defined id (slug).
	// Each instance declares its underlying provider type via AIProvider.
	Providers map[string]ProviderInstanceConfig `mapstructure:"providers"`

	// Routing maps a role (e.g. "grading", "tutor") to a provider id.
	Routing map[string]string `mapstructure:"routing"`
}

type DebugConfig struct {
	CaptureRawEnabled  bool `mapstructure:"capture_raw_enabled"`
	CaptureRawMaxBytes int  `mapstructure:"capture_raw_max_bytes"`
}

// ProviderInstanceConfig defines a configured provider instance (e.g. "school-gemini").
type ProviderInstanceConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// AIProvider is the driver identifier: "openai" or "gemini".
	AIProvider string `mapstructure:"ai_provider"`

	// SelectionPolicy controls which credential is chosen.
	// Supported values: "priority" (default), "round_robin".
	SelectionPolicy string `mapstructure:"selection_policy"`

	// DefaultCredential, if set, forces selecting the matching credential label.
	// If missing/invalid, selection falls back to SelectionPolicy.
	DefaultCredential string `mapstructure:"default_credential"`

	BaseURL string            `mapstructure:"base_url"`
	Models  map[string]string `mapstructure:"models"`
	Roles   []string          `mapstructure:"roles"`

	// KeyInQuery sends the key as a query parameter (gemini only).
	KeyInQuery bool `mapstructure:"key_in_query"`

	Credentials []CredentialConfig `mapstructure:"credentials"`
}

// CredentialConfig is a single credential for a provider instance.
//
// Multiple credentials enable key rotation and spreading load across keys.
type CredentialConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Label    string `mapstructure:"label"`
	APIKey   string `mapstructure:"api_key"`
	Priority int    `mapstructure:"priority"`
}

// HasProviders reports whether at least one provider is enabled.
func (c Config) HasProviders() bool {
	for _, p := range c.Providers {
		if p.Enabled {
			return true
		}
	}
	return false
}
