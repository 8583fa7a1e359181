package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/tutorlink/tutorlink/internal/ailink"
	"github.com/tutorlink/tutorlink/internal/ailink/prompt"
	"github.com/tutorlink/tutorlink/internal/config"
	"github.com/tutorlink/tutorlink/internal/core/cache"
	"github.com/tutorlink/tutorlink/internal/core/engine"
	"github.com/tutorlink/tutorlink/internal/core/store"
	"github.com/tutorlink/tutorlink/internal/learning"
)

// appRuntime holds everything a command needs to run learning operations.
type appRuntime struct {
	cfg     *config.Config
	store   *store.Store
	redis   *cache.Redis
	engine  *engine.Orchestrator
	service *learning.Service
}

type runtimeOptions struct {
	// sessions opens the store even when the cache does not need it.
	sessions bool
	role     string
}

// buildRuntime wires store, cache, provider adapter, engine and service
// from cfg. Call Close when done.
func buildRuntime(ctx context.Context, cfg *config.Config, logger *logging.Logger, opts runtimeOptions) (rt *appRuntime, err error) {
	rt = &appRuntime{cfg: cfg}
	defer func() {
		if err != nil {
			rt.Close()
			rt = nil
		}
	}()

	driver := strings.ToLower(strings.TrimSpace(cfg.Cache.Driver))
	if opts.sessions || driver == config.CacheDriverStore {
		rt.store, err = openStore(ctx, cfg)
		if err != nil {
			return rt, err
		}
	}

	var resultCache engine.ResultCache
	switch driver {
	case config.CacheDriverStore:
		resultCache = store.NewResultCache(rt.store)
	case config.CacheDriverRedis:
		rt.redis, err = cache.NewRedis(ctx, cache.RedisConfig{
			Address:  cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
		if err != nil {
			return rt, err
		}
		resultCache = rt.redis
	}

	adapterOpts := []ailink.AdapterOption{ailink.WithRole(opts.role)}
	if logger != nil {
		adapterOpts = append(adapterOpts, ailink.WithLogger(logger))
	}
	adapter := ailink.NewAdapter(cfg.AILink, adapterOpts...)

	engineOpts := engine.Options{
		RequestsPerMinute: cfg.Engine.RequestsPerMinute,
		Timeout:           cfg.Engine.Timeout,
		MaxWorkers:        cfg.Engine.MaxWorkers,
		Cache:             resultCache,
		CacheTTL:          cfg.Cache.TTL,
	}
	if logger != nil {
		engineOpts.Logger = logger
	}
	rt.engine, err = engine.New(adapter, engineOpts)
	if err != nil {
		return rt, fmt.Errorf("%w: %w", errConfig, err)
	}

	prompts, err := prompt.LoadRegistry(cfg.AILink.PromptsDir)
	if err != nil {
		return rt, fmt.Errorf("load prompts: %w", err)
	}

	serviceOpts := []learning.Option{learning.WithHistoryTurns(cfg.Tutor.HistoryTurns)}
	if rt.store != nil {
		serviceOpts = append(serviceOpts, learning.WithSessions(rt.store))
	}
	if logger != nil {
		serviceOpts = append(serviceOpts, learning.WithLogger(logger))
	}
	rt.service, err = learning.NewService(rt.engine, prompts, serviceOpts...)
	if err != nil {
		return rt, err
	}

	if logger != nil {
		logger.Debug("Runtime ready",
			zap.String("cache", cacheLabel(driver)),
			zap.Int("requests_per_minute", cfg.Engine.RequestsPerMinute),
			zap.Int("max_workers", rt.engine.MaxWorkers()),
			zap.Bool("sessions", rt.store != nil))
	}
	return rt, nil
}

// Close releases the store and cache connections.
func (rt *appRuntime) Close() {
	if rt == nil {
		return
	}
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
	if rt.store != nil {
		_ = rt.store.Close()
	}
}

func cacheLabel(driver string) string {
	if driver == "" {
		return config.CacheDriverNone
	}
	return driver
}
