package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrNonScalarValue 表示输入值是对象或数组。
var ErrNonScalarValue = errors.New("input value must be a string, number or boolean")

// ValueKind 标识输入值的标量类型。零值表示未提供（JSON null）。
type ValueKind string

const (
	KindNull    ValueKind = ""
	KindText    ValueKind = "text"
	KindNumber  ValueKind = "number"
	KindBoolean ValueKind = "boolean"
)

// InputValue 是用户提交的单个表单值，只允许文本、数字、布尔三种标量。
type InputValue struct {
	Kind   ValueKind
	Text   string
	Number float64
	Bool   bool
}

// Text 构造文本值。
func Text(s string) InputValue { return InputValue{Kind: KindText, Text: s} }

// Number 构造数字值。
func Number(n float64) InputValue { return InputValue{Kind: KindNumber, Number: n} }

// Bool 构造布尔值。
func Bool(b bool) InputValue { return InputValue{Kind: KindBoolean, Bool: b} }

// IsNull 表示该值未提供。
func (v InputValue) IsNull() bool {
	return v.Kind == KindNull
}

// Truthy 判断值是否"非空"：非空文本、非零数字、true。
func (v InputValue) Truthy() bool {
	switch v.Kind {
	case KindText:
		return v.Text != ""
	case KindNumber:
		return v.Number != 0
	case KindBoolean:
		return v.Bool
	}
	return false
}

// String 返回值在 Prompt 中的文本形式。
func (v InputValue) String() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.Bool)
	}
	return ""
}

// MarshalJSON 将值还原为 JSON 标量。
func (v InputValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindText:
		return json.Marshal(v.Text)
	case KindNumber:
		return json.Marshal(v.Number)
	case KindBoolean:
		return json.Marshal(v.Bool)
	}
	return []byte("null"), nil
}

// UnmarshalJSON 只接受字符串、数字、布尔和 null，对象或数组会返回错误。
func (v *InputValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty input value")
	}
	switch data[0] {
	case 'n':
		*v = InputValue{}
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
		return nil
	case '{', '[':
		return ErrNonScalarValue
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = Number(n)
	return nil
}

// InputData 是一次任务提交的全部表单值，键为字段名。
type InputData map[string]InputValue

// ParseInputData 解析 input_data 的原始 JSON，要求顶层必须是对象。
func ParseInputData(raw []byte) (InputData, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, fmt.Errorf("input_data must be an object")
	}
	var data InputData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	if data == nil {
		data = InputData{}
	}
	return data, nil
}
