package prompt

import (
	"AIBoss/backend/go/internal/models"
	"fmt"
	"sort"
	"strings"
)

// ValidationResult 是一次输入校验的结果，Errors 按发现顺序累积。
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Validate 按档案的 input_schema 校验用户输入，不会提前返回，所有问题都会被报告。
//
// 检查顺序：
//  1. 必填字段缺失或为空值：null、空字符串、0、false，以及只包含空白的文本。
//  2. 输入中出现未声明的字段（按字段名排序，保证错误列表稳定）。
//  3. 数字字段的值不是数字，单选字段的值不在选项中。空值视为未填写，不做这类检查。
func Validate(agent *models.Agent, input models.InputData) ValidationResult {
	errs := []string{}
	schema := agent.InputSchema

	for _, name := range schema.Required {
		value, present := input[name]
		field, _ := schema.Field(name)
		if !present || !value.Truthy() || isBlank(field, value) {
			errs = append(errs, fmt.Sprintf("%s 是必填项", labelOf(name, field)))
		}
	}

	names := make([]string, 0, len(input))
	for name := range input {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := input[name]
		field, declared := schema.Field(name)
		if !declared {
			errs = append(errs, fmt.Sprintf("未知字段: %s", name))
			continue
		}
		if !value.Truthy() {
			continue
		}

		switch field.Type {
		case models.FieldTypeNumber:
			if value.Kind != models.KindNumber {
				errs = append(errs, fmt.Sprintf("%s 必须是数字", labelOf(name, field)))
			}
		case models.FieldTypeSelect:
			if value.Kind != models.KindText || !field.HasOption(value.Text) {
				errs = append(errs, fmt.Sprintf("%s 的值必须是: %s", labelOf(name, field), strings.Join(field.Options, ", ")))
			}
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// isBlank 判断文本类字段的值是否为空或只包含空白。
func isBlank(field models.InputField, value models.InputValue) bool {
	if value.Kind != models.KindText {
		return false
	}
	switch field.Type {
	case models.FieldTypeString, models.FieldTypeSelect:
		return strings.TrimSpace(value.Text) == ""
	}
	return false
}

func labelOf(name string, field models.InputField) string {
	if field.Label != "" {
		return field.Label
	}
	return name
}
