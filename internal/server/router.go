// Package server exposes the dashboard API over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/amityadav/marketwatch/internal/core"
	"github.com/amityadav/marketwatch/internal/history"
	"github.com/amityadav/marketwatch/internal/logger"
	"github.com/amityadav/marketwatch/internal/metrics"
	"github.com/amityadav/marketwatch/internal/middleware"
	"github.com/amityadav/marketwatch/internal/session"
	"github.com/amityadav/marketwatch/internal/token"
)

// Services groups the dependencies of the HTTP handlers
type Services struct {
	Dashboard  *core.DashboardCore
	Sessions   *session.Manager
	Tokens     *token.Manager
	History    *history.Service
	Metrics    *metrics.Metrics
	Log        logger.Logger
	SessionTTL time.Duration
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(svc Services) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(svc.Log))
	r.Use(middleware.RequestLogger(svc.Log))
	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(string) bool { return true },
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{middleware.TokenHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	h := &handlers{svc: svc}

	r.GET("/healthz", h.health)
	r.GET("/metrics", gin.WrapH(svc.Metrics.Handler()))

	api := r.Group("/api")
	api.Use(middleware.Sessions(svc.Sessions, svc.Tokens, int(svc.SessionTTL.Seconds()), svc.Log))
	{
		api.POST("/search", h.search)
		api.GET("/results", h.results)

		api.GET("/folders", h.listFolders)
		api.POST("/folders", h.createFolder)
		api.GET("/folders/:name", h.listFolder)
		api.POST("/folders/:name/records", h.curate)
		api.DELETE("/folders/:name/records", h.purge)
		api.GET("/folders/:name/export", h.export)
		api.POST("/folders/:name/import", h.importCSV)

		api.GET("/history", h.history)
		api.GET("/history/trend", h.historyTrend)

		api.POST("/trends", h.trends)
	}
	return r
}
