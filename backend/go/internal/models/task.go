package models

import (
	"time"

	"gorm.io/datatypes"
)

// TaskStatus 定义了任务的几种可能状态
type TaskStatus string

const (
	// TaskStatusPending 仅作为 schema 占位保留，当前没有任何代码路径会写入该状态。
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal 表示任务已进入终态，之后不再变化。
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Task 代表一个数字员工的任务执行记录。
// OutputData 仅在 completed 时存在；ErrorMessage 仅在 failed 时存在；
// CompletedAt 在两种终态下都存在；ExecutionTime（毫秒）仅在 completed 时存在。
type Task struct {
	ID            string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AgentID       string         `gorm:"type:varchar(64);not null;index" json:"agent_id"`
	SessionID     string         `gorm:"type:varchar(64);not null;index:idx_tasks_session_created,priority:1" json:"session_id"`
	InputData     datatypes.JSON `json:"input_data"`
	OutputData    datatypes.JSON `json:"output_data"`
	Status        TaskStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	ErrorMessage  *string        `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;index:idx_tasks_session_created,priority:2" json:"created_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	ExecutionTime *int64         `json:"execution_time,omitempty"`
}

// TableName 指定表名
func (Task) TableName() string {
	return "tasks"
}

// Clone 返回任务的深拷贝，存储层之间传递快照时使用。
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.InputData != nil {
		c.InputData = append(datatypes.JSON(nil), t.InputData...)
	}
	if t.OutputData != nil {
		c.OutputData = append(datatypes.JSON(nil), t.OutputData...)
	}
	if t.ErrorMessage != nil {
		msg := *t.ErrorMessage
		c.ErrorMessage = &msg
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	if t.ExecutionTime != nil {
		ms := *t.ExecutionTime
		c.ExecutionTime = &ms
	}
	return &c
}

// TaskStats 是某个会话下任务的统计信息。
type TaskStats struct {
	Total            int64   `json:"total"`
	Completed        int64   `json:"completed"`
	Failed           int64   `json:"failed"`
	Pending          int64   `json:"pending"`
	AvgExecutionTime float64 `json:"avgExecutionTime"`
}

// TaskEvent 是任务进入终态时发送到 Kafka 的事件。
type TaskEvent struct {
	TaskID        string     `json:"task_id"`
	AgentID       string     `json:"agent_id"`
	SessionID     string     `json:"session_id"`
	Status        TaskStatus `json:"status"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	ExecutionTime *int64     `json:"execution_time,omitempty"`
	CompletedAt   time.Time  `json:"completed_at"`
}

// NewTaskEvent 根据终态任务构造事件。
func NewTaskEvent(t *Task) TaskEvent {
	evt := TaskEvent{
		TaskID:        t.ID,
		AgentID:       t.AgentID,
		SessionID:     t.SessionID,
		Status:        t.Status,
		ExecutionTime: t.ExecutionTime,
	}
	if t.ErrorMessage != nil {
		evt.ErrorMessage = *t.ErrorMessage
	}
	if t.CompletedAt != nil {
		evt.CompletedAt = *t.CompletedAt
	}
	return evt
}
