package models

import (
	"bytes"
	"encoding/json"
)

// OutputKind 标识已知的输出结构，前端据此选择渲染方式。
type OutputKind string

const (
	OutputBusinessAnalysis OutputKind = "business_analysis" // summary + problems + opportunities ...
	OutputCopywriting      OutputKind = "copywriting"       // copies[]
	OutputProjectPlan      OutputKind = "project_plan"      // tasks[] + milestones
	OutputJSON             OutputKind = "json"              // 其他任意 JSON
)

// ClassifyOutput 根据顶层键判断输出属于哪一种已知结构，无法识别时返回 OutputJSON。
// raw 为空或为 null 时返回空字符串。
func ClassifyOutput(raw []byte) OutputKind {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return OutputJSON
	}
	switch {
	case has(obj, "summary") && isArray(obj["problems"]):
		return OutputBusinessAnalysis
	case isArray(obj["copies"]):
		return OutputCopywriting
	case isArray(obj["tasks"]):
		return OutputProjectPlan
	}
	return OutputJSON
}

func has(obj map[string]json.RawMessage, key string) bool {
	v, ok := obj[key]
	return ok && string(v) != "null"
}

func isArray(v json.RawMessage) bool {
	for _, c := range v {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case '[':
			return true
		}
		return false
	}
	return false
}
