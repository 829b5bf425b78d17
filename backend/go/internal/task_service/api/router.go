package api

import (
	"AIBoss/backend/go/pkg/httpmiddleware"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const rateLimitMessage = "请求过于频繁，请稍后再试"

// NewRouter 创建包含全部中间件和路由的 gin 引擎。
func NewRouter(api *API) *gin.Engine {
	router := gin.New()
	router.Use(httpmiddleware.Recovery(api.logger), httpmiddleware.RequestLogger(api.logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{api.cfg.CorsOrigin},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", api.HealthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	RegisterRoutes(router, api)
	router.NoRoute(NotFoundHandler)
	return router
}

// RegisterRoutes registers all the routes for the task service.
func RegisterRoutes(router *gin.Engine, api *API) {
	// All routes will be under /api
	group := router.Group("/api")
	if api.cfg.RateLimiter != nil {
		group.Use(httpmiddleware.RateLimit(api.cfg.RateLimiter, httpmiddleware.ClientIP, rateLimitMessage))
	}
	group.Use(SessionMiddleware(api.sessions, api.logger))

	agents := group.Group("/agents")
	{
		agents.GET("", api.GetAgentsHandler)
		agents.GET("/:id", api.GetAgentHandler)
		agents.POST("/reload", api.ReloadAgentsHandler)
	}

	tasks := group.Group("/tasks")
	{
		tasks.POST("", api.SubmitTaskHandler)
		tasks.GET("", api.GetTasksHandler)
		tasks.GET("/stats", api.GetTaskStatsHandler)
		tasks.GET("/:id", api.GetTaskHandler)
	}
}
