package models

import (
	"fmt"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// FieldType 定义了输入字段的类型。
type FieldType string

const (
	FieldTypeString  FieldType = "string"  // 文本
	FieldTypeNumber  FieldType = "number"  // 数字
	FieldTypeBoolean FieldType = "boolean" // 布尔
	FieldTypeSelect  FieldType = "select"  // 单选，取值必须在 Options 中
)

// Valid 判断字段类型是否为已知类型。
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeString, FieldTypeNumber, FieldTypeBoolean, FieldTypeSelect:
		return true
	}
	return false
}

// InputField 描述了表单中的一个输入字段。
type InputField struct {
	Type        FieldType   `json:"type"`
	Label       string      `json:"label"`
	Description string      `json:"description,omitempty"`
	Placeholder string      `json:"placeholder,omitempty"`
	Options     []string    `json:"options,omitempty"`
	Default     interface{} `json:"default,omitempty"`
}

// HasOption 判断 value 是否在字段声明的选项集合中。
func (f InputField) HasOption(value string) bool {
	for _, opt := range f.Options {
		if opt == value {
			return true
		}
	}
	return false
}

// InputSchema 是数字员工的输入表单定义。
// Properties 保留配置文件中的声明顺序，Prompt 中的用户输入按此顺序渲染。
type InputSchema struct {
	Type       string                                     `json:"type"`
	Properties *orderedmap.OrderedMap[string, InputField] `json:"properties"`
	Required   []string                                   `json:"required"`
}

// Field 按名称查找字段定义。
func (s InputSchema) Field(name string) (InputField, bool) {
	if s.Properties == nil {
		return InputField{}, false
	}
	return s.Properties.Get(name)
}

// FieldNames 按声明顺序返回所有字段名。
func (s InputSchema) FieldNames() []string {
	if s.Properties == nil {
		return nil
	}
	names := make([]string, 0, s.Properties.Len())
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// OutputField 描述了输出结果中的一个字段，仅用于文档说明，不做结构校验。
type OutputField struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// OutputSchema 是输出结果的文档化描述。
type OutputSchema struct {
	Type       string                 `json:"type"`
	Properties map[string]OutputField `json:"properties"`
}

// Agent 是一个数字员工（能力档案）的完整定义，加载后不可变。
type Agent struct {
	ID                  string       `json:"id"`
	Name                string       `json:"name"`
	Avatar              string       `json:"avatar"`
	Description         string       `json:"description"`
	SuitableScenarios   []string     `json:"suitable_scenarios"`
	UnsuitableScenarios []string     `json:"unsuitable_scenarios"`
	SystemPrompt        string       `json:"system_prompt"`
	WorkflowSteps       []string     `json:"workflow_steps"`
	InputSchema         InputSchema  `json:"input_schema"`
	OutputSchema        OutputSchema `json:"output_schema"`
	OutputTemplate      string       `json:"output_template"`
	PriceLabel          string       `json:"price_label"`
	EstimatedTime       string       `json:"estimated_time"`
	CreatedAt           time.Time    `json:"created_at"`
}

// Check 校验档案自身的不变量：必填字段必须在 properties 中声明，select 字段必须声明选项。
func (a *Agent) Check() error {
	if a.ID == "" {
		return fmt.Errorf("agent id is empty")
	}
	for _, name := range a.InputSchema.FieldNames() {
		field, _ := a.InputSchema.Field(name)
		if !field.Type.Valid() {
			return fmt.Errorf("agent %s: field %q has unknown type %q", a.ID, name, field.Type)
		}
		if field.Type == FieldTypeSelect && len(field.Options) == 0 {
			return fmt.Errorf("agent %s: select field %q declares no options", a.ID, name)
		}
	}
	for _, name := range a.InputSchema.Required {
		if _, ok := a.InputSchema.Field(name); !ok {
			return fmt.Errorf("agent %s: required field %q is not declared in input_schema", a.ID, name)
		}
	}
	return nil
}

// PublicAgent 是对外暴露的档案视图，不包含 system_prompt 与 output_template 等内部信息。
type PublicAgent struct {
	ID                  string      `json:"id"`
	Name                string      `json:"name"`
	Avatar              string      `json:"avatar"`
	Description         string      `json:"description"`
	SuitableScenarios   []string    `json:"suitable_scenarios"`
	UnsuitableScenarios []string    `json:"unsuitable_scenarios"`
	InputSchema         InputSchema `json:"input_schema"`
	PriceLabel          string      `json:"price_label"`
	EstimatedTime       string      `json:"estimated_time"`
}

// Public 返回档案的公开视图。
func (a *Agent) Public() PublicAgent {
	return PublicAgent{
		ID:                  a.ID,
		Name:                a.Name,
		Avatar:              a.Avatar,
		Description:         a.Description,
		SuitableScenarios:   a.SuitableScenarios,
		UnsuitableScenarios: a.UnsuitableScenarios,
		InputSchema:         a.InputSchema,
		PriceLabel:          a.PriceLabel,
		EstimatedTime:       a.EstimatedTime,
	}
}
