package service

import (
	"AIBoss/backend/go/internal/llm"
	"AIBoss/backend/go/internal/metrics"
	"AIBoss/backend/go/internal/models"
	"AIBoss/backend/go/internal/prompt"
	"AIBoss/backend/go/internal/task_service/store"
	"AIBoss/backend/go/pkg/logger"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	// DefaultTaskLimit 是任务列表的默认返回数量。
	DefaultTaskLimit = 20
	// DefaultPublishTimeout 是单个任务事件发布的最长等待时间。
	DefaultPublishTimeout = 3 * time.Second
)

// AgentCatalog 提供按 ID 查找数字员工档案的能力。
type AgentCatalog interface {
	GetAgentByID(id string) (*models.Agent, bool)
}

// Invoker 调用大模型并返回原始文本。
type Invoker interface {
	Invoke(ctx context.Context, prompt string, opts llm.InvokeOptions) (string, error)
	DefaultOptions() llm.InvokeOptions
}

// EventPublisher 发布任务终态事件。
type EventPublisher interface {
	Publish(ctx context.Context, evt models.TaskEvent) error
}

// TaskService provides core business logic for task execution and queries.
type TaskService struct {
	agents    AgentCatalog
	store     store.TaskStore
	llm       Invoker
	publisher EventPublisher
	// 事件发布在任务写入终态之后进行，超时只影响事件本身。
	publishTimeout time.Duration
	logger         *logger.Logger
	now       func() time.Time
	newID     func() string
}

// Option 用于定制 TaskService。
type Option func(*TaskService)

// WithClock 替换时钟，测试中用于固定时间。
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) {
		s.now = now
	}
}

// WithIDGenerator 替换任务 ID 生成器。
func WithIDGenerator(newID func() string) Option {
	return func(s *TaskService) {
		s.newID = newID
	}
}

// WithPublisher 设置任务事件的发布者，未设置时不发送事件。
func WithPublisher(p EventPublisher) Option {
	return func(s *TaskService) {
		s.publisher = p
	}
}

// WithPublishTimeout 设置事件发布的超时时间，d <= 0 时使用默认值。
func WithPublishTimeout(d time.Duration) Option {
	return func(s *TaskService) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

// NewTaskService creates a new TaskService.
func NewTaskService(agents AgentCatalog, store store.TaskStore, invoker Invoker, logger *logger.Logger, opts ...Option) *TaskService {
	s := &TaskService{
		agents:         agents,
		store:          store,
		llm:            invoker,
		logger:         logger,
		publishTimeout: DefaultPublishTimeout,
		now:            time.Now,
		newID:          func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitTask 创建并同步执行一个任务。
//
// 档案不存在返回 *NotFoundError，输入不合法返回 *ValidationError，这两种情况都不会创建任务。
// 之后任务以 processing 状态写入存储，调用大模型并解析结果：
// 成功时任务写为 completed；调用或解析失败时任务写为 failed，并同时返回任务快照和原始错误
// （*llm.ProviderError 或 *llm.ParseError），任务上记录的错误信息与返回的错误一致。
//
// 大模型调用与请求的取消解耦，已经开始的调用会一直执行到完成、超时或重试耗尽。
func (s *TaskService) SubmitTask(ctx context.Context, agentID string, input models.InputData, sessionID string) (*models.Task, error) {
	log := s.logger.WithPayload(map[string]interface{}{"agent_id": agentID, "session_id": sessionID})

	agent, ok := s.agents.GetAgentByID(agentID)
	if !ok {
		metrics.TasksRejected.WithLabelValues("agent_not_found").Inc()
		return nil, &NotFoundError{Resource: "Agent", ID: agentID}
	}

	if result := prompt.Validate(agent, input); !result.Valid {
		metrics.TasksRejected.WithLabelValues("validation").Inc()
		log.WithField("errors", result.Errors).Warn("Task input validation failed")
		return nil, &ValidationError{Errors: result.Errors}
	}

	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode input data: %w", err)
	}

	start := s.now()
	task := &models.Task{
		ID:        s.newID(),
		AgentID:   agentID,
		SessionID: sessionID,
		InputData: datatypes.JSON(inputJSON),
		Status:    models.TaskStatusProcessing,
		CreatedAt: start,
	}
	if err := s.store.Create(ctx, task); err != nil {
		log.WithError(models.NewErrorInfo(err, models.ErrorTypeStorage)).Error("Failed to create task in store")
		return nil, fmt.Errorf("create task: %w", err)
	}
	metrics.TasksSubmitted.WithLabelValues(agentID).Inc()
	metrics.TasksActive.Inc()
	defer metrics.TasksActive.Dec()

	log = log.WithField("task_id", task.ID)
	log.Info("Task created")

	execCtx := context.WithoutCancel(ctx)

	raw, err := s.llm.Invoke(execCtx, prompt.Assemble(agent, input), s.llm.DefaultOptions())
	if err != nil {
		return s.fail(execCtx, log, task, err, models.ErrorTypeProvider)
	}

	output, err := llm.ParseJSONResponse(raw)
	if err != nil {
		return s.fail(execCtx, log, task, err, models.ErrorTypeParse)
	}
	outputJSON, err := json.Marshal(output)
	if err != nil {
		return s.fail(execCtx, log, task, &llm.ParseError{Raw: raw, Cause: err}, models.ErrorTypeParse)
	}

	completedAt := s.now()
	elapsed := completedAt.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	ms := elapsed.Milliseconds()
	task.Status = models.TaskStatusCompleted
	task.OutputData = datatypes.JSON(outputJSON)
	task.CompletedAt = &completedAt
	task.ExecutionTime = &ms
	if err := s.store.Update(execCtx, task); err != nil {
		log.WithError(models.NewErrorInfo(err, models.ErrorTypeStorage)).Error("Failed to persist completed task")
		return nil, fmt.Errorf("persist completed task %s: %w", task.ID, err)
	}

	log.WithField("execution_time_ms", ms).Info("Task completed")
	s.finished(execCtx, log, task, elapsed)
	return task, nil
}

// fail 将任务写为 failed 并返回原始错误。
func (s *TaskService) fail(ctx context.Context, log *logger.Logger, task *models.Task, cause error, errType string) (*models.Task, error) {
	msg := cause.Error()
	at := s.now()
	task.Status = models.TaskStatusFailed
	task.OutputData = nil
	task.ErrorMessage = &msg
	task.CompletedAt = &at
	task.ExecutionTime = nil
	if err := s.store.Update(ctx, task); err != nil {
		log.WithError(models.NewErrorInfo(err, models.ErrorTypeStorage)).Error("Failed to persist failed task")
		return nil, fmt.Errorf("persist failed task %s: %w", task.ID, err)
	}

	log.WithError(models.NewErrorInfo(cause, errType)).Error("Task failed")
	s.finished(ctx, log, task, 0)
	return task, cause
}

// finished 上报指标并发布终态事件，失败只记录日志。
func (s *TaskService) finished(ctx context.Context, log *logger.Logger, task *models.Task, elapsed time.Duration) {
	metrics.ObserveTaskFinished(task.AgentID, string(task.Status), elapsed)
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, models.NewTaskEvent(task)); err != nil {
		log.WithError(models.NewErrorInfo(err, models.ErrorTypeInternal)).Warn("Failed to publish task event")
	}
}

// GetTask 返回任务详情，不存在时返回 *NotFoundError。
func (s *TaskService) GetTask(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.store.GetByID(ctx, id)
	if errors.Is(err, store.ErrTaskNotFound) {
		return nil, &NotFoundError{Resource: "Task", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return task, nil
}

// GetUserTasks 按创建时间倒序返回会话的任务，limit <= 0 时取默认值。
func (s *TaskService) GetUserTasks(ctx context.Context, sessionID string, limit int) ([]*models.Task, error) {
	if limit <= 0 {
		limit = DefaultTaskLimit
	}
	tasks, err := s.store.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	return tasks, nil
}

// GetTaskStats 返回会话的任务统计。
func (s *TaskService) GetTaskStats(ctx context.Context, sessionID string) (*models.TaskStats, error) {
	stats, err := s.store.Stats(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	return stats, nil
}
