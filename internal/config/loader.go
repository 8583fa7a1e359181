// Package config provides centralized configuration management for TutorLink.
// Defaults are registered on a viper instance, overlaid by the config file
// and TUTORLINK_* environment variables, then decoded into Config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// AppName names the config, data and cache directories.
	AppName = "tutorlink"
	// EnvPrefix is the environment variable prefix (without trailing underscore).
	EnvPrefix = "TUTORLINK"
)

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.admin_token", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	v.SetDefault("cache.driver", CacheDriverNone)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.prefix", "tutorlink:result:")

	v.SetDefault("engine.requests_per_minute", 60)
	v.SetDefault("engine.timeout", "30s")
	v.SetDefault("engine.max_workers", 4)

	v.SetDefault("tutor.history_turns", 10)

	v.SetDefault("ailink.default_provider", "")
	v.SetDefault("ailink.default_timeout", "30s")
	v.SetDefault("ailink.prompts_dir", "")
	v.SetDefault("ailink.system_prompt", "")
	v.SetDefault("ailink.debug.capture_raw_enabled", false)
	v.SetDefault("ailink.debug.capture_raw_max_bytes", 2048)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("health.enabled", true)

	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.pprof_enabled", false)
}

// BindEnv makes v resolve TUTORLINK_SECTION_KEY for every section.key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("server.admin_token", EnvPrefix+"_SERVER_ADMIN_TOKEN", EnvPrefix+"_ADMIN_TOKEN")
}

// Load decodes the settings held by v into a Config. Provider and routing
// overrides that viper cannot discover on its own are read from the
// environment and merged on top.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		return nil, fmt.Errorf("viper instance is required")
	}

	settings := v.AllSettings()
	overrides := map[string]any{}
	applyAILinkDynamicEnvOverrides(EnvPrefix+"_", overrides)
	mergeSettings(settings, overrides)

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.RequestsPerMinute <= 0 {
		return fmt.Errorf("engine.requests_per_minute must be positive, got %d", c.Engine.RequestsPerMinute)
	}
	if c.Engine.Timeout <= 0 {
		return fmt.Errorf("engine.timeout must be positive, got %s", c.Engine.Timeout)
	}
	if c.Engine.MaxWorkers <= 0 {
		return fmt.Errorf("engine.max_workers must be positive, got %d", c.Engine.MaxWorkers)
	}
	if c.Tutor.HistoryTurns < 0 {
		return fmt.Errorf("tutor.history_turns must not be negative")
	}
	switch strings.ToLower(strings.TrimSpace(c.Cache.Driver)) {
	case "", CacheDriverNone, CacheDriverStore, CacheDriverRedis:
	default:
		return fmt.Errorf("unsupported cache driver: %s", c.Cache.Driver)
	}
	return nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigDir returns the XDG config directory for the app.
func DefaultConfigDir() string {
	return gfconfig.GetAppConfigDir(AppName)
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if strings.TrimSpace(dir) == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	dataDir := gfconfig.GetAppDataDir(AppName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + AppName + ".db"
	}
	return filepath.Join(dataDir, AppName+".db")
}

// mergeSettings copies src into dst, descending into nested maps.
func mergeSettings(dst, src map[string]any) {
	for key, value := range src {
		nested, ok := value.(map[string]any)
		if !ok {
			dst[key] = value
			continue
		}
		existing, ok := dst[key].(map[string]any)
		if !ok {
			existing = map[string]any{}
			dst[key] = existing
		}
		mergeSettings(existing, nested)
	}
}

func applyAILinkDynamicEnvOverrides(prefix string, envOverrides map[string]any) {
	providerPrefix := prefix + "AILINK_PROVIDERS_"
	routingPrefix := prefix + "AILINK_ROUTING_"

	for _, item := range os.Environ() {
		key, value, ok := strings.Cut(item, "=")
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}

		switch {
		case strings.HasPrefix(key, providerPrefix):
			applyAILinkProviderOverride(envOverrides, key[len(providerPrefix):], value)
		case strings.HasPrefix(key, routingPrefix):
			applyAILinkRoutingOverride(envOverrides, key[len(routingPrefix):], value)
		}
	}
}

func applyAILinkRoutingOverride(envOverrides map[string]any, rawRole string, providerID string) {
	role := toSlug(rawRole)
	providerID = strings.TrimSpace(providerID)
	if role == "" || providerID == "" {
		return
	}

	ailink := ensureMap(envOverrides, "ailink")
	routing := ensureMap(ailink, "routing")
	routing[role] = providerID
}

// applyAILinkProviderOverride maps PROVIDERS_<ID>_<FIELD> onto
// ailink.providers.<id>.<field>. Multi-word ids use underscores, which
// become dashes.
func applyAILinkProviderOverride(envOverrides map[string]any, raw string, value string) {
	parts := strings.Split(strings.TrimSpace(raw), "_")
	if len(parts) < 2 {
		return
	}

	section := -1
	for i, part := range parts {
		if i == 0 {
			continue
		}
		switch part {
		case "ENABLED", "AI", "BASE", "MODELS", "CREDENTIALS", "DEFAULT", "SELECTION", "KEY", "ROLES":
			section = i
		}
		if section != -1 {
			break
		}
	}
	if section <= 0 {
		return
	}

	providerID := strings.ToLower(strings.Join(parts[:section], "-"))
	value = strings.TrimSpace(value)

	ailink := ensureMap(envOverrides, "ailink")
	providers := ensureMap(ailink, "providers")
	provider := ensureMap(providers, providerID)

	rest := strings.Join(parts[section:], "_")
	switch {
	case rest == "ENABLED":
		provider["enabled"] = strings.EqualFold(value, "true")
	case rest == "AI_PROVIDER":
		provider["ai_provider"] = strings.ToLower(value)
	case rest == "DEFAULT_CREDENTIAL":
		provider["default_credential"] = value
	case rest == "SELECTION_POLICY":
		provider["selection_policy"] = strings.ToLower(value)
	case rest == "BASE_URL":
		provider["base_url"] = value
	case rest == "KEY_IN_QUERY":
		provider["key_in_query"] = strings.EqualFold(value, "true")
	case rest == "ROLES":
		provider["roles"] = value
	case strings.HasPrefix(rest, "MODELS_"):
		models := ensureMap(provider, "models")
		models[strings.ToLower(strings.TrimPrefix(rest, "MODELS_"))] = value
	case strings.HasPrefix(rest, "CREDENTIALS_"):
		idxRaw, field, ok := strings.Cut(strings.TrimPrefix(rest, "CREDENTIALS_"), "_")
		if !ok || field == "" {
			return
		}
		idx, err := strconv.Atoi(idxRaw)
		if err != nil || idx < 0 {
			return
		}
		creds := ensureSlice(provider, "credentials", idx+1)
		cred := ensureSliceMap(creds, idx)
		field = strings.ToLower(field)
		switch field {
		case "priority":
			if parsed, err := strconv.Atoi(value); err == nil {
				cred[field] = parsed
				return
			}
			cred[field] = value
		case "enabled":
			cred[field] = strings.EqualFold(value, "true")
		default:
			cred[field] = value
		}
	}
}

func ensureMap(parent map[string]any, key string) map[string]any {
	if parent == nil {
		return map[string]any{}
	}
	if existing, ok := parent[key]; ok {
		if typed, ok := existing.(map[string]any); ok {
			return typed
		}
	}
	next := map[string]any{}
	parent[key] = next
	return next
}

func ensureSlice(parent map[string]any, key string, length int) []any {
	var existing []any
	if raw, ok := parent[key]; ok {
		existing, _ = raw.([]any)
	}
	for len(existing) < length {
		existing = append(existing, map[string]any{})
	}
	parent[key] = existing
	return existing
}

func ensureSliceMap(slice []any, idx int) map[string]any {
	if idx < 0 || idx >= len(slice) {
		return map[string]any{}
	}
	if typed, ok := slice[idx].(map[string]any); ok {
		return typed
	}
	m := map[string]any{}
	slice[idx] = m
	return m
}

func toSlug(raw string) string {
	parts := strings.Split(strings.TrimSpace(raw), "_")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		p := strings.ToLower(strings.TrimSpace(part))
		if p == "" {
			continue
		}
		clean = append(clean, p)
	}
	return strings.Join(clean, "-")
}
