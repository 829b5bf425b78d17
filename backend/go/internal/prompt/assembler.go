package prompt

import (
	"AIBoss/backend/go/internal/models"
	"fmt"
	"strings"
)

// Assemble 将档案与用户输入组装成发送给大模型的 Prompt。
// 各部分的顺序固定：角色定义、工作流程（可选）、用户输入、输出要求。
// 角色定义和输出要求包在用户输入两侧，模型对输出格式的遵循依赖这个结构。
func Assemble(agent *models.Agent, input models.InputData) string {
	parts := make([]string, 0, 16)

	parts = append(parts, "# 角色定义", agent.SystemPrompt, "")

	if len(agent.WorkflowSteps) > 0 {
		parts = append(parts, "# 工作流程")
		for i, step := range agent.WorkflowSteps {
			parts = append(parts, fmt.Sprintf("%d. %s", i+1, step))
		}
		parts = append(parts, "")
	}

	parts = append(parts, "# 用户输入")
	for _, name := range agent.InputSchema.FieldNames() {
		value, ok := input[name]
		if !ok || !value.Truthy() {
			continue
		}
		field, _ := agent.InputSchema.Field(name)
		parts = append(parts, fmt.Sprintf("**%s**: %s", labelOf(name, field), value.String()))
	}
	parts = append(parts, "")

	parts = append(parts, "# 输出要求", agent.OutputTemplate)

	return strings.Join(parts, "\n")
}
