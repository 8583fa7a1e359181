package ailink

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tutorlink/tutorlink/internal/ailink/driver/gemini"
	"github.com/tutorlink/tutorlink/internal/ailink/driver/openai"
)

func TestResolveModelUsesOverrideFirst(t *testing.T) {
	providerCfg := ProviderInstanceConfig{Models: map[string]string{"default": "m-default", "grading": "m-grading"}}

	model, err := resolveModel(providerCfg, "grading", "override-model")
	require.NoError(t, err)
	require.Equal(t, "override-model", model)
}

func TestResolveModelPrefersRoleModel(t *testing.T) {
	providerCfg := ProviderInstanceConfig{Models: map[string]string{"default": "m-default", "grading": "m-grading"}}

	model, err := resolveModel(providerCfg, "grading", "")
	require.NoError(t, err)
	require.Equal(t, "m-grading", model)

	model, err = resolveModel(providerCfg, "tutor", "")
	require.NoError(t, err)
	require.Equal(t, "m-default", model)
}

func TestResolveModelMissing(t *testing.T) {
	_, err := resolveModel(ProviderInstanceConfig{}, "", "")
	require.Error(t, err)
}

func testConfig() Config {
	return Config{
		DefaultProvider: "primary",
		Providers: map[string]ProviderInstanceConfig{
			"primary": {
				Enabled:     true,
				AIProvider:  "gemini",
				Models:      map[string]string{"default": "gemini-2.5-flash"},
				Credentials: []CredentialConfig{{Enabled: true, Label: "main", APIKey: "g-key"}},
			},
			"grader": {
				Enabled:    true,
				AIProvider: "openai",
				BaseURL:    "https://llm.example.test/v1",
				Models:     map[string]string{"default": "gpt-4o-mini"},
				Roles:      []string{"grading"},
				Credentials: []CredentialConfig{
					{Enabled: true, Label: "a", APIKey: "k1", Priority: 1},
					{Enabled: true, Label: "b", APIKey: "k2", Priority: 1},
					{Enabled: true, Label: "low", APIKey: "k3", Priority: 0},
				},
				SelectionPolicy: "round_robin",
			},
			"disabled": {
				Enabled:    false,
				AIProvider: "openai",
			},
		},
		Routing: map[string]string{"tutor": "primary", "legacy": "disabled"},
	}
}

func TestRegistryResolveByRoutingAndRoles(t *testing.T) {
	reg := NewRegistry(testConfig())

	resolved, err := reg.Resolve("tutor", "")
	require.NoError(t, err)
	require.Equal(t, "primary", resolved.ProviderID)
	require.IsType(t, &gemini.Client{}, resolved.Driver)
	require.Equal(t, "gemini-2.5-flash", resolved.Model)

	resolved, err = reg.Resolve("grading", "")
	require.NoError(t, err)
	require.Equal(t, "grader", resolved.ProviderID)
	require.IsType(t, &openai.Client{}, resolved.Driver)
	require.Equal(t, "https://llm.example.test/v1", resolved.BaseURL)

	resolved, err = reg.Resolve("", "")
	require.NoError(t, err)
	require.Equal(t, "primary", resolved.ProviderID)

	_, err = reg.Resolve("legacy", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "disabled")
}

func TestRegistryRoundRobinWithinHighestPriority(t *testing.T) {
	reg := NewRegistry(testConfig())

	seen := map[string]int{}
	for i := 0; i < 4; i++ {
		resolved, err := reg.Resolve("grading", "")
		require.NoError(t, err)
		seen[resolved.Credential.Label]++
	}
	require.Equal(t, map[string]int{"a": 2, "b": 2}, seen)
}

func TestRegistryCachesDriverPerCredential(t *testing.T) {
	reg := NewRegistry(testConfig())

	first, err := reg.Resolve("tutor", "")
	require.NoError(t, err)
	second, err := reg.Resolve("tutor", "")
	require.NoError(t, err)
	require.Same(t, first.Driver, second.Driver)
}

func TestRegistryUnsupportedProvider(t *testing.T) {
	cfg := Config{Providers: map[string]ProviderInstanceConfig{
		"odd": {Enabled: true, AIProvider: "carrier-pigeon", Models: map[string]string{"default": "m"}, Credentials: []CredentialConfig{{Enabled: true, APIKey: "k"}}},
	}}
	_, err := NewRegistry(cfg).Resolve("", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported ai_provider")
}

func TestRegistryNoProviders(t *testing.T) {
	_, err := NewRegistry(Config{}).Resolve("", "")
	require.Error(t, err)
	require.False(t, Config{}.HasProviders())
	require.True(t, testConfig().HasProviders())
}

func TestRegistryXAIUsesOpenAICompatibleClient(t *testing.T) {
	cfg := Config{Providers: map[string]ProviderInstanceConfig{
		"grok": {Enabled: true, AIProvider: "xai", Models: map[string]string{"default": "grok-mini"}, Credentials: []CredentialConfig{{Enabled: true, APIKey: "k"}}},
	}}
	resolved, err := NewRegistry(cfg).Resolve("", "")
	require.NoError(t, err)

	client, ok := resolved.Driver.(*openai.Client)
	require.True(t, ok)
	require.Equal(t, xaiBaseURL, client.BaseURL)
	require.Equal(t, "grok-mini", resolved.Model)
}
