package api

import (
	"AIBoss/backend/go/internal/agent"
	"AIBoss/backend/go/internal/models"
	"AIBoss/backend/go/internal/session"
	"AIBoss/backend/go/internal/task_service/service"
	"AIBoss/backend/go/pkg/logger"
	"AIBoss/backend/go/pkg/ratelimiter"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Config 是 HTTP 层的配置。
type Config struct {
	Environment  string
	CorsOrigin   string
	DefaultLimit int                 // GET /api/tasks 未指定 limit 时的返回数量
	AllowReload  bool                // 是否开放 POST /api/agents/reload
	RateLimiter  ratelimiter.Limiter // 为 nil 时不限流
}

// HealthCheck 检查一个外部依赖是否可用。
type HealthCheck func(ctx context.Context) error

// API provides handlers for the task service.
type API struct {
	tasks    *service.TaskService
	agents   *agent.Registry
	sessions *session.Service
	cfg      Config
	checks   map[string]HealthCheck
	logger   *logger.Logger
}

// NewAPI creates a new API handler.
func NewAPI(tasks *service.TaskService, agents *agent.Registry, sessions *session.Service, cfg Config, logger *logger.Logger) *API {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = service.DefaultTaskLimit
	}
	return &API{
		tasks:    tasks,
		agents:   agents,
		sessions: sessions,
		cfg:      cfg,
		checks:   make(map[string]HealthCheck),
		logger:   logger,
	}
}

// AddHealthCheck 注册一个在 /health 中执行的依赖检查。
func (a *API) AddHealthCheck(name string, check HealthCheck) {
	a.checks[name] = check
}

// submitRequest 是 POST /api/tasks 的请求体。
type submitRequest struct {
	AgentID   string          `json:"agent_id"`
	InputData json.RawMessage `json:"input_data"`
}

// submitResponse 是 POST /api/tasks 的响应体。
type submitResponse struct {
	TaskID        string            `json:"task_id"`
	Status        models.TaskStatus `json:"status"`
	OutputData    json.RawMessage   `json:"output_data"`
	ExecutionTime *int64            `json:"execution_time"`
	CreatedAt     time.Time         `json:"created_at"`
	CompletedAt   *time.Time        `json:"completed_at"`
}

// taskView 是任务详情的对外视图。
type taskView struct {
	ID            string            `json:"id"`
	AgentID       string            `json:"agent_id"`
	InputData     json.RawMessage   `json:"input_data"`
	OutputData    json.RawMessage   `json:"output_data"`
	OutputKind    models.OutputKind `json:"output_kind,omitempty"`
	Status        models.TaskStatus `json:"status"`
	ErrorMessage  *string           `json:"error_message"`
	ExecutionTime *int64            `json:"execution_time"`
	CreatedAt     time.Time         `json:"created_at"`
	CompletedAt   *time.Time        `json:"completed_at"`
}

func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}

func newTaskView(t *models.Task) taskView {
	return taskView{
		ID:            t.ID,
		AgentID:       t.AgentID,
		InputData:     rawJSON(t.InputData),
		OutputData:    rawJSON(t.OutputData),
		OutputKind:    models.ClassifyOutput(t.OutputData),
		Status:        t.Status,
		ErrorMessage:  t.ErrorMessage,
		ExecutionTime: t.ExecutionTime,
		CreatedAt:     t.CreatedAt,
		CompletedAt:   t.CompletedAt,
	}
}

// SubmitTaskHandler 创建并同步执行一个任务。
func (a *API) SubmitTaskHandler(c *gin.Context) {
	var payload submitRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error()}).Warn("Invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}
	if payload.AgentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agent_id is required"})
		return
	}
	input, err := models.ParseInputData(payload.InputData)
	if err != nil {
		msg := "input_data is required and must be an object"
		if errors.Is(err, models.ErrNonScalarValue) {
			msg = "input_data values must be strings, numbers or booleans"
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	task, err := a.tasks.SubmitTask(c.Request.Context(), payload.AgentID, input, c.GetString(SessionIDKey))
	if err != nil {
		resp := errorBody(err)
		if task != nil {
			resp["task_id"] = task.ID
		}
		c.JSON(statusOf(err), resp)
		return
	}

	c.JSON(http.StatusOK, submitResponse{
		TaskID:        task.ID,
		Status:        task.Status,
		OutputData:    rawJSON(task.OutputData),
		ExecutionTime: task.ExecutionTime,
		CreatedAt:     task.CreatedAt,
		CompletedAt:   task.CompletedAt,
	})
}

// GetTaskHandler handles requests to get a single task by its ID.
func (a *API) GetTaskHandler(c *gin.Context) {
	task, err := a.tasks.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskView(task))
}

// GetTasksHandler handles requests to get a list of tasks for the session.
func (a *API) GetTasksHandler(c *gin.Context) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = a.cfg.DefaultLimit
	}

	tasks, err := a.tasks.GetUserTasks(c.Request.Context(), c.GetString(SessionIDKey), limit)
	if err != nil {
		a.logger.WithError(models.NewErrorInfo(err, models.ErrorTypeStorage)).Error("Failed to fetch tasks")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tasks"})
		return
	}
	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, newTaskView(t))
	}
	c.JSON(http.StatusOK, views)
}

// GetTaskStatsHandler 返回当前会话的任务统计。
func (a *API) GetTaskStatsHandler(c *gin.Context) {
	stats, err := a.tasks.GetTaskStats(c.Request.Context(), c.GetString(SessionIDKey))
	if err != nil {
		a.logger.WithError(models.NewErrorInfo(err, models.ErrorTypeStorage)).Error("Failed to fetch task stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetAgentsHandler 返回所有数字员工的公开信息。
func (a *API) GetAgentsHandler(c *gin.Context) {
	all := a.agents.GetAllAgents()
	views := make([]models.PublicAgent, 0, len(all))
	for _, ag := range all {
		views = append(views, ag.Public())
	}
	c.JSON(http.StatusOK, views)
}

// GetAgentHandler 返回单个数字员工的公开信息。
func (a *API) GetAgentHandler(c *gin.Context) {
	ag, ok := a.agents.GetAgentByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Agent not found"})
		return
	}
	c.JSON(http.StatusOK, ag.Public())
}

// ReloadAgentsHandler 重新加载数字员工档案。
func (a *API) ReloadAgentsHandler(c *gin.Context) {
	if !a.cfg.AllowReload {
		c.JSON(http.StatusForbidden, gin.H{"error": "Agent reload is disabled"})
		return
	}
	n := a.agents.Reload()
	a.logger.WithField("loaded", n).Info("Agents reloaded via API")
	c.JSON(http.StatusOK, gin.H{"loaded": n})
}

// HealthHandler 返回服务状态，任一依赖检查失败时返回 503。
func (a *API) HealthHandler(c *gin.Context) {
	resp := gin.H{
		"status":      "ok",
		"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
		"environment": a.cfg.Environment,
	}
	code := http.StatusOK
	if len(a.checks) > 0 {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		results := make(map[string]string, len(a.checks))
		for name, check := range a.checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				resp["status"] = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		resp["checks"] = results
	}
	c.JSON(code, resp)
}

// NotFoundHandler 处理未注册的路由。
func NotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Not Found", "path": c.Request.URL.Path})
}
