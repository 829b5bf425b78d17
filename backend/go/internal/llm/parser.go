package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"regexp"
)

// fencedJSON 匹配第一个 ```json 代码块。
var fencedJSON = regexp.MustCompile("```json\\s*([\\s\\S]*?)\\s*```")

// ParseError 表示模型返回的内容无法解析为 JSON。Raw 保留原始文本便于排查。
type ParseError struct {
	Raw   string
	Cause error
}

func (e *ParseError) Error() string {
	return "LLM 返回的内容不是有效的 JSON 格式"
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ParseJSONResponse 从模型输出中提取 JSON。
// 存在 ```json 代码块时只解析第一个代码块，没有代码块时才解析整段文本。
// 解码结果为 null 也视为失败，完成的任务必须带有输出。
func ParseJSONResponse(raw string) (interface{}, error) {
	text := raw
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		text = m[1]
	}

	v, err := decodeJSON(text)
	if err != nil {
		return nil, &ParseError{Raw: raw, Cause: err}
	}
	return v, nil
}

// decodeJSON 解码恰好一个 JSON 值，数字保留原始精度。
func decodeJSON(s string) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	if v == nil {
		return nil, errors.New("JSON value is null")
	}
	return v, nil
}
