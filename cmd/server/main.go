package main

import (
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	appfx "github.com/amityadav/marketwatch/internal/fx"
	"github.com/amityadav/marketwatch/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	app := fx.New(
		appfx.ConfigModule,  // Provides: config.Config
		appfx.LoggerModule,  // Provides: logger.Logger
		appfx.MetricsModule, // Provides: *metrics.Metrics
		appfx.CacheModule,   // Provides: *redis.Client (nil without REDIS_URL)
		appfx.StoreModule,   // Provides: curation.Backend (nil without DATABASE_URL)
		appfx.TokenModule,   // Provides: *token.Manager
		appfx.SearchModule,  // Provides: *search.Registry, *aggregator.Aggregator
		appfx.SessionModule, // Provides: *session.Manager
		appfx.HistoryModule, // Provides: *history.Service
		appfx.CoreModule,    // Provides: core.TrendsProvider, *core.DashboardCore
		appfx.WorkerModule,  // Starts: session eviction + history refresh
		appfx.ServerModule,  // Starts: HTTP API

		fx.WithLogger(func(l logger.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Zap()}
		}),
	)

	app.Run()
}
