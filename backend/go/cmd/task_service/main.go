package main

import (
	"AIBoss/backend/go/internal/agent"
	"AIBoss/backend/go/internal/config"
	"AIBoss/backend/go/internal/database/kafka"
	"AIBoss/backend/go/internal/database/mongo"
	"AIBoss/backend/go/internal/database/mysql"
	"AIBoss/backend/go/internal/database/redis"
	"AIBoss/backend/go/internal/llm"
	"AIBoss/backend/go/internal/metrics"
	"AIBoss/backend/go/internal/models"
	"AIBoss/backend/go/internal/session"
	"AIBoss/backend/go/internal/task_service/api"
	"AIBoss/backend/go/internal/task_service/publisher"
	"AIBoss/backend/go/internal/task_service/service"
	"AIBoss/backend/go/internal/task_service/store"
	"AIBoss/backend/go/pkg/circuitbreaker"
	httpserver "AIBoss/backend/go/pkg/http"
	"AIBoss/backend/go/pkg/logger"
	"AIBoss/backend/go/pkg/ratelimiter"
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const defaultConfigPath = "backend/go/internal/config/config.yaml"

func main() {
	// Load configuration
	configPath := os.Getenv("AIBOSS_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logLevel, err := logrus.ParseLevel(cfg.Logger.Level)
	if err != nil {
		log.Fatalf("Invalid logger level: %v", err)
	}
	logger.Init(logLevel)

	// Create a single base logger for the service
	serviceLogger := logger.New("TaskService", "", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var closers []io.Closer
	healthChecks := map[string]api.HealthCheck{}

	// 存储：任务与会话
	var (
		taskStore    store.TaskStore
		sessionStore session.Store
	)
	switch cfg.Storage.Driver {
	case "mysql":
		db, err := mysql.Open(&cfg.Databases.MySQL)
		if err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to MySQL")
		}
		defer mysql.Close(db)
		gormTasks := store.NewGormTaskStore(db)
		gormSessions := session.NewGormStore(db)
		if err := gormTasks.AutoMigrate(); err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to migrate tasks table")
		}
		if err := gormSessions.AutoMigrate(); err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to migrate sessions table")
		}
		taskStore, sessionStore = gormTasks, gormSessions
		healthChecks["mysql"] = mysql.HealthCheck(db)
	case "mongo":
		client, db, err := mongo.Open(ctx, &cfg.Databases.MongoDB)
		if err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to MongoDB")
		}
		defer client.Disconnect(context.Background())
		mongoTasks := store.NewMongoTaskStore(db, cfg.Storage.Collection)
		if err := mongoTasks.EnsureIndexes(ctx); err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Warn("Failed to create MongoDB indexes")
		}
		// 会话只在进程内保存
		taskStore, sessionStore = mongoTasks, session.NewMemoryStore()
		healthChecks["mongodb"] = mongo.HealthCheck(client)
	default:
		serviceLogger.Warn("Using in-memory storage, data will be lost on restart")
		taskStore, sessionStore = store.NewMemoryTaskStore(), session.NewMemoryStore()
	}

	if cfg.Storage.CacheTTL > 0 && cfg.Databases.Redis.Address != "" {
		rdb, err := redis.Open(ctx, &cfg.Databases.Redis)
		if err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Warn("Redis unavailable, task cache disabled")
		} else {
			closers = append(closers, rdb)
			taskStore = store.NewCachedTaskStore(taskStore, rdb, cfg.Storage.CacheTTL, serviceLogger)
			healthChecks["redis"] = redis.HealthCheck(rdb)
		}
	}

	// 数字员工档案
	registry := agent.NewRegistry(cfg.Agents.Dir, serviceLogger)
	if n := registry.Load(); n == 0 {
		serviceLogger.Fatal("No agents loaded")
	}
	if cfg.Agents.Watch {
		if err := registry.Watch(ctx); err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Warn("Agent hot reload disabled")
		}
	}

	// 大模型客户端
	provider, err := llm.NewProvider(ctx, cfg.LLM)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to create LLM provider")
	}
	if c, ok := provider.(io.Closer); ok {
		closers = append(closers, c)
	}
	clientOpts := []llm.ClientOption{llm.WithObserver(metrics.ObserveProviderAttempt)}
	if cb := cfg.LLM.CircuitBreaker; cb.Enabled {
		clientOpts = append(clientOpts, llm.WithBreaker(circuitbreaker.New(cb.FailureThreshold, cb.SuccessThreshold, cb.Timeout,
			circuitbreaker.WithStateChange(func(from, to circuitbreaker.State) {
				metrics.CircuitState.Set(float64(to))
				serviceLogger.WithPayload(map[string]interface{}{"from": from.String(), "to": to.String()}).Warn("LLM circuit breaker state changed")
			}),
		)))
	}
	llmClient := llm.NewClient(provider, cfg.LLM, serviceLogger, clientOpts...)
	serviceLogger.WithPayload(map[string]interface{}{"llm": llmClient.Config()}).Info("LLM client configured")

	// 任务事件
	serviceOpts := []service.Option{}
	if kc := cfg.Databases.Kafka; len(kc.Brokers) > 0 {
		if err := kafka.EnsureTopics(&kc, kc.EventsTopic); err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Warn("Failed to ensure Kafka topics")
		}
		eventPublisher := publisher.NewEventPublisher(kc.Brokers, kc.EventsTopic, serviceLogger)
		closers = append(closers, eventPublisher)
		serviceOpts = append(serviceOpts, service.WithPublisher(eventPublisher))
		healthChecks["kafka"] = kafka.HealthCheck(&kc)
	}

	taskService := service.NewTaskService(registry, taskStore, llmClient, serviceLogger, serviceOpts...)

	// 会话清理
	sessionService := session.NewService(sessionStore, serviceLogger)
	go sessionService.RunCleanup(ctx, cfg.Session.CleanupInterval, cfg.Session.CleanupDays)

	// Setup HTTP server
	var limiter ratelimiter.Limiter
	if cfg.Middleware.RateLimiter.Enabled {
		limiter, err = ratelimiter.New(cfg.Middleware.RateLimiter)
		if err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Invalid rate limiter configuration")
		}
	}
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	apiHandler := api.NewAPI(taskService, registry, sessionService, api.Config{
		Environment:  cfg.App.Environment,
		CorsOrigin:   cfg.Server.CorsOrigin,
		DefaultLimit: cfg.Server.DefaultLimit,
		AllowReload:  cfg.Agents.AllowReload,
		RateLimiter:  limiter,
	}, serviceLogger)
	for name, check := range healthChecks {
		apiHandler.AddHealthCheck(name, check)
	}

	attempts := time.Duration(cfg.LLM.MaxRetries + 1)
	srv := httpserver.NewServer(api.NewRouter(apiHandler),
		httpserver.WithAddress(cfg.Server.Address),
		httpserver.WithWriteTimeout(attempts*(cfg.LLM.Timeout+cfg.LLM.RetryBackoff*attempts)+10*time.Second),
	)

	// Start server
	go func() {
		logBanner(serviceLogger, cfg, srv.Addr())
		if err := srv.ListenAndServe(); err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("HTTP server failed to start")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	serviceLogger.Info(sig.String() + " signal received: closing HTTP server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Server forced to shutdown")
	}

	cancel()
	for _, c := range closers {
		if err := c.Close(); err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing resource")
		}
	}

	serviceLogger.Info("Server gracefully stopped")
}

// logBanner 输出服务地址和可用的接口列表。
func logBanner(l *logger.Logger, cfg *config.AppConfig, addr string) {
	endpoints := []string{
		"GET  /health",
		"GET  /metrics",
		"GET  /api/agents",
		"GET  /api/agents/:id",
		"POST /api/tasks",
		"GET  /api/tasks/:id",
		"GET  /api/tasks",
		"GET  /api/tasks/stats",
	}
	if cfg.Agents.AllowReload {
		endpoints = append(endpoints, "POST /api/agents/reload")
	}
	l.WithPayload(map[string]interface{}{
		"address":     addr,
		"environment": cfg.App.Environment,
		"model":       cfg.LLM.Model,
		"storage":     cfg.Storage.Driver,
		"endpoints":   strings.Join(endpoints, ", "),
	}).Info("🚀 " + cfg.App.Name + " server starting")
}
