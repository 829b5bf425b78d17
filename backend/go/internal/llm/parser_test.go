package llm

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFencedBlock(t *testing.T) {
	v, err := ParseJSONResponse("```json\n{\"a\":1}\n```")
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"a": json.Number("1")}, v)
}

func TestParseFencedBlockInsideProse(t *testing.T) {
	raw := "好的，以下是结果：\n```json\n{\"summary\": \"ok\", \"problems\": [\"p1\"]}\n```\n希望对你有帮助。"
	v, err := ParseJSONResponse(raw)
	require.NoError(t, err)
	obj := v.(map[string]interface{})
	require.Equal(t, "ok", obj["summary"])
	require.Equal(t, []interface{}{"p1"}, obj["problems"])
}

func TestParseWholeText(t *testing.T) {
	v, err := ParseJSONResponse(`{"a":1}`)
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"a": json.Number("1")}, v)
}

func TestParseFailures(t *testing.T) {
	for _, raw := range []string{
		"not json",
		"",
		"null",
		"{\"a\":1} trailing",
		"```json\n{broken\n```",
	} {
		_, err := ParseJSONResponse(raw)
		var parseErr *ParseError
		require.True(t, errors.As(err, &parseErr), "input %q", raw)
		require.Equal(t, raw, parseErr.Raw)
		require.Equal(t, "LLM 返回的内容不是有效的 JSON 格式", err.Error())
	}
}

func TestParseUsesFirstFencedBlock(t *testing.T) {
	v, err := ParseJSONResponse("```json\n[1]\n```\n```json\n[2]\n```")
	require.NoError(t, err)
	require.Equal(t, []interface{}{json.Number("1")}, v)
}

func TestParseBrokenFencedBlockDoesNotFallBack(t *testing.T) {
	// 整段文本本身是合法的 JSON 字符串，但其中的代码块无法解析
	raw := "\"```json\\n{broken\\n```\""
	_, err := ParseJSONResponse(raw)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, raw, parseErr.Raw)
}
