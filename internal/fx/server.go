package fx

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/amityadav/marketwatch/internal/config"
	"github.com/amityadav/marketwatch/internal/core"
	"github.com/amityadav/marketwatch/internal/history"
	"github.com/amityadav/marketwatch/internal/logger"
	"github.com/amityadav/marketwatch/internal/metrics"
	"github.com/amityadav/marketwatch/internal/server"
	"github.com/amityadav/marketwatch/internal/session"
	"github.com/amityadav/marketwatch/internal/token"
)

// ServerModule provides the HTTP API and starts it
var ServerModule = fx.Module("server",
	fx.Provide(NewRouter),
	fx.Invoke(StartHTTPServer),
)

// RouterParams groups the handler dependencies
type RouterParams struct {
	fx.In
	Config    config.Config
	Dashboard *core.DashboardCore
	Sessions  *session.Manager
	Tokens    *token.Manager
	History   *history.Service
	Metrics   *metrics.Metrics
	Log       logger.Logger
}

// NewRouter builds the gin engine
func NewRouter(p RouterParams) *gin.Engine {
	if !p.Config.LogDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}
	return server.NewRouter(server.Services{
		Dashboard:  p.Dashboard,
		Sessions:   p.Sessions,
		Tokens:     p.Tokens,
		History:    p.History,
		Metrics:    p.Metrics,
		Log:        p.Log,
		SessionTTL: p.Config.SessionTTL,
	})
}

// StartHTTPServer serves the router with lifecycle management
func StartHTTPServer(lc fx.Lifecycle, cfg config.Config, router *gin.Engine, log logger.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			lis, err := net.Listen("tcp", cfg.HTTPAddr)
			if err != nil {
				return err
			}
			go func() {
				log.Info("[FX] HTTP Server listening", logger.String("addr", cfg.HTTPAddr))
				if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("[FX] HTTP Server error", logger.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("[FX] Shutting down HTTP server")
			return srv.Shutdown(ctx)
		},
	})
}
