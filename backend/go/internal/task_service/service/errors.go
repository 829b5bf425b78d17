package service

import (
	"fmt"
	"strings"
)

// NotFoundError 表示档案或任务不存在。
type NotFoundError struct {
	Resource string // "Agent" 或 "Task"
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ValidationError 表示输入没有通过档案的表单校验，任务不会被创建。
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "输入验证失败: " + strings.Join(e.Errors, ", ")
}
