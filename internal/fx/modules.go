package fx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/amityadav/marketwatch/internal/aggregator"
	"github.com/amityadav/marketwatch/internal/cache"
	"github.com/amityadav/marketwatch/internal/config"
	"github.com/amityadav/marketwatch/internal/core"
	"github.com/amityadav/marketwatch/internal/curation"
	"github.com/amityadav/marketwatch/internal/duckduckgo"
	"github.com/amityadav/marketwatch/internal/googlenews"
	"github.com/amityadav/marketwatch/internal/history"
	"github.com/amityadav/marketwatch/internal/logger"
	"github.com/amityadav/marketwatch/internal/metrics"
	"github.com/amityadav/marketwatch/internal/search"
	"github.com/amityadav/marketwatch/internal/serpapi"
	"github.com/amityadav/marketwatch/internal/session"
	"github.com/amityadav/marketwatch/internal/store"
	"github.com/amityadav/marketwatch/internal/tavily"
	"github.com/amityadav/marketwatch/internal/token"
	"github.com/amityadav/marketwatch/internal/worker"
)

// ============================================================================
// FX MODULES - Group related providers together
// ============================================================================

// ConfigModule provides application configuration
var ConfigModule = fx.Module("config",
	fx.Provide(config.Load),
)

// LoggerModule provides the structured logger
var LoggerModule = fx.Module("logger",
	fx.Provide(NewLogger),
)

// MetricsModule provides the Prometheus instruments
var MetricsModule = fx.Module("metrics",
	fx.Provide(metrics.New),
)

// CacheModule provides the optional redis client
var CacheModule = fx.Module("cache",
	fx.Provide(NewRedisClient),
)

// StoreModule provides optional durable curation storage
var StoreModule = fx.Module("store",
	fx.Provide(NewCurationBackend),
)

// TokenModule provides session token signing
var TokenModule = fx.Module("token",
	fx.Provide(NewTokenManager),
)

// SearchModule provides the adapter registry and the aggregator
var SearchModule = fx.Module("search",
	fx.Provide(
		NewSearchRegistry,
		aggregator.New,
	),
)

// SessionModule provides per-client session state
var SessionModule = fx.Module("session",
	fx.Provide(NewSessionManager),
)

// HistoryModule provides the historical database view
var HistoryModule = fx.Module("history",
	fx.Provide(NewHistoryService),
)

// CoreModule provides business logic cores
var CoreModule = fx.Module("core",
	fx.Provide(
		NewTrendsProvider,
		core.NewDashboardCore,
	),
)

// WorkerModule provides and starts the scheduled jobs
var WorkerModule = fx.Module("worker",
	fx.Provide(NewWorker),
	fx.Invoke(StartWorker),
)

// ============================================================================
// PROVIDER FUNCTIONS - Constructors that FX will call automatically
// ============================================================================

// NewLogger builds the zap logger and flushes it on shutdown
func NewLogger(lc fx.Lifecycle, cfg config.Config) (logger.Logger, error) {
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.LogDevelopment})
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = log.Sync()
			return nil
		},
	})
	return log, nil
}

// NewRedisClient connects to redis (optional - returns nil without REDIS_URL)
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log logger.Logger) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		log.Info("[FX] Result cache disabled (no REDIS_URL)")
		return nil, nil
	}
	client, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	log.Info("[FX] Result cache initialized", logger.Duration("ttl", cfg.CacheTTL))
	return client, nil
}

// NewCurationBackend opens Postgres for durable folders (optional - nil without DATABASE_URL)
func NewCurationBackend(lc fx.Lifecycle, cfg config.Config, log logger.Logger) (curation.Backend, error) {
	if cfg.DatabaseURL == "" {
		log.Info("[FX] Durable curation disabled (no DATABASE_URL)")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	st, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		st.Close()
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			st.Close()
			return nil
		},
	})
	log.Info("[FX] PostgresStore initialized")
	return st, nil
}

// NewTokenManager creates the session token manager
func NewTokenManager(cfg config.Config) *token.Manager {
	return token.NewManager(cfg.SessionSecret, cfg.SessionTTL)
}

// SearchRegistryParams groups dependencies for the adapter registry
type SearchRegistryParams struct {
	fx.In
	Config config.Config
	Redis  *redis.Client `optional:"true"`
	Log    logger.Logger
}

// NewSearchRegistry registers every configured adapter. News comes first so
// news records win duplicate links; the web provider then serves every
// web-backed category.
func NewSearchRegistry(p SearchRegistryParams) *search.Registry {
	cfg := p.Config
	wrap := func(a search.Adapter) search.Adapter {
		a = search.NewThrottle(a, cfg.ProviderRPS, 1)
		if p.Redis != nil {
			a = cache.Wrap(a, p.Redis, cfg.CacheTTL, p.Log)
		}
		return a
	}

	registry := search.NewRegistry()
	registry.Register(search.PlatformNews, wrap(googlenews.NewClient(cfg.RequestTimeout, cfg.NewsMaxResults)))

	var web search.Adapter
	switch cfg.WebProvider {
	case config.WebProviderSerpAPI:
		web = wrap(serpapi.NewWebClient(cfg.SerpAPIKey, cfg.RequestTimeout, cfg.WebMaxResults))
		registry.Register(search.PlatformNews, wrap(serpapi.NewNewsClient(cfg.SerpAPIKey, cfg.RequestTimeout, cfg.NewsMaxResults)))
	case config.WebProviderTavily:
		web = wrap(tavily.NewClient(cfg.TavilyAPIKey, cfg.RequestTimeout, cfg.WebMaxResults))
		registry.Register(search.PlatformNews, wrap(tavily.NewNewsClient(cfg.TavilyAPIKey, cfg.RequestTimeout, cfg.NewsMaxResults)))
	default:
		web = wrap(duckduckgo.NewClient(cfg.RequestTimeout, cfg.WebMaxResults))
	}
	for _, category := range []search.Platform{search.PlatformWeb, search.PlatformForum, search.PlatformPinboard, search.PlatformShopping} {
		registry.Register(category, web)
	}

	p.Log.Info("[FX] SearchRegistry initialized",
		logger.String("web_provider", cfg.WebProvider),
		logger.Int("adapters", registry.Count()))
	return registry
}

// NewSessionManager creates the session manager
func NewSessionManager(backend curation.Backend, cfg config.Config, log logger.Logger, m *metrics.Metrics) *session.Manager {
	return session.NewManager(backend, cfg.SessionTTL, log, m)
}

// NewHistoryService creates the historical database view
func NewHistoryService(cfg config.Config, log logger.Logger, m *metrics.Metrics) *history.Service {
	if cfg.HistoryCSVURL == "" {
		log.Info("[FX] History source not configured (no HISTORY_CSV_URL)")
	}
	return history.NewService(cfg.HistoryCSVURL, cfg.RequestTimeout, log, m)
}

// NewTrendsProvider creates the trends client (optional - nil without SERPAPI_API_KEY)
func NewTrendsProvider(cfg config.Config, log logger.Logger) core.TrendsProvider {
	if cfg.SerpAPIKey == "" {
		log.Info("[FX] Trends disabled (no SERPAPI_API_KEY)")
		return nil
	}
	return serpapi.NewTrendsClient(cfg.SerpAPIKey, cfg.RequestTimeout)
}

// NewWorker creates the scheduled-jobs worker
func NewWorker(sessions *session.Manager, hist *history.Service, cfg config.Config, log logger.Logger) *worker.Worker {
	return worker.NewWorker(sessions, hist, cfg.HistoryRefreshSpec, log)
}

// StartWorker ties the worker to the application lifecycle
func StartWorker(lc fx.Lifecycle, w *worker.Worker) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return w.Start()
		},
		OnStop: func(context.Context) error {
			w.Stop()
			return nil
		},
	})
}
