package prompt

import (
	"AIBoss/backend/go/internal/models"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

func testAgent() *models.Agent {
	props := orderedmap.New[string, models.InputField]()
	props.Set("product", models.InputField{Type: models.FieldTypeString, Label: "产品名称"})
	props.Set("count", models.InputField{Type: models.FieldTypeNumber, Label: "数量"})
	props.Set("tone", models.InputField{Type: models.FieldTypeSelect, Label: "风格", Options: []string{"专业", "活泼"}})
	props.Set("urgent", models.InputField{Type: models.FieldTypeBoolean})

	return &models.Agent{
		ID:             "copywriter",
		SystemPrompt:   "你是文案专家",
		WorkflowSteps:  []string{"分析卖点", "撰写文案"},
		InputSchema:    models.InputSchema{Type: "object", Properties: props, Required: []string{"product", "tone"}},
		OutputTemplate: "输出 JSON",
	}
}

func TestValidateAcceptsConformingInput(t *testing.T) {
	res := Validate(testAgent(), models.InputData{
		"product": models.Text("咖啡机"),
		"count":   models.Number(3),
		"tone":    models.Text("专业"),
		"urgent":  models.Bool(true),
	})
	require.True(t, res.Valid)
	require.Empty(t, res.Errors)
}

func TestValidateMissingRequired(t *testing.T) {
	res := Validate(testAgent(), models.InputData{"tone": models.Text("专业")})
	require.False(t, res.Valid)
	require.Equal(t, []string{"产品名称 是必填项"}, res.Errors)
}

func TestValidateBlankAndNullRequired(t *testing.T) {
	res := Validate(testAgent(), models.InputData{
		"product": models.Text("   "),
		"tone":    {},
	})
	require.False(t, res.Valid)
	require.Equal(t, []string{"产品名称 是必填项", "风格 是必填项"}, res.Errors)
}

func TestValidateAccumulatesErrors(t *testing.T) {
	res := Validate(testAgent(), models.InputData{
		"product": models.Text("咖啡机"),
		"count":   models.Text("三"),
		"tone":    models.Text("严肃"),
		"extra":   models.Text("x"),
	})
	require.False(t, res.Valid)
	require.Equal(t, []string{
		"数量 必须是数字",
		"未知字段: extra",
		"风格 的值必须是: 专业, 活泼",
	}, res.Errors)
}

func TestValidateSkipsEmptyOptionalValues(t *testing.T) {
	res := Validate(testAgent(), models.InputData{
		"product": models.Text("咖啡机"),
		"tone":    models.Text("活泼"),
		"count":   models.Text(""),
	})
	require.True(t, res.Valid)
}

func TestValidateRequiredNumberEmpty(t *testing.T) {
	ag := testAgent()
	ag.InputSchema.Required = []string{"count", "urgent"}

	for _, tc := range []struct {
		name  string
		count models.InputValue
		want  []string
	}{
		{"empty text", models.Text(""), []string{"数量 是必填项", "urgent 是必填项"}},
		{"zero", models.Number(0), []string{"数量 是必填项", "urgent 是必填项"}},
		{"blank text", models.Text("   "), []string{"urgent 是必填项", "数量 必须是数字"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res := Validate(ag, models.InputData{"count": tc.count, "urgent": models.Bool(false)})
			require.False(t, res.Valid)
			require.Equal(t, tc.want, res.Errors)
		})
	}

	res := Validate(ag, models.InputData{"count": models.Number(2), "urgent": models.Bool(true)})
	require.True(t, res.Valid)
}

func TestAssembleSectionOrder(t *testing.T) {
	got := Assemble(testAgent(), models.InputData{
		"tone":    models.Text("专业"),
		"product": models.Text("咖啡机"),
		"count":   models.Number(2.5),
		"urgent":  models.Bool(true),
	})
	want := strings.Join([]string{
		"# 角色定义",
		"你是文案专家",
		"",
		"# 工作流程",
		"1. 分析卖点",
		"2. 撰写文案",
		"",
		"# 用户输入",
		"**产品名称**: 咖啡机",
		"**数量**: 2.5",
		"**风格**: 专业",
		"**urgent**: true",
		"",
		"# 输出要求",
		"输出 JSON",
	}, "\n")
	require.Equal(t, want, got)
}

func TestAssembleOmitsFalsyValuesAndEmptyWorkflow(t *testing.T) {
	agent := testAgent()
	agent.WorkflowSteps = nil

	got := Assemble(agent, models.InputData{
		"product": models.Text("咖啡机"),
		"count":   models.Number(0),
		"tone":    models.Text(""),
		"urgent":  models.Bool(false),
	})
	require.Equal(t, "# 角色定义\n你是文案专家\n\n# 用户输入\n**产品名称**: 咖啡机\n\n# 输出要求\n输出 JSON", got)
	require.NotContains(t, got, "数量")
	require.NotContains(t, got, "# 工作流程")
}

func TestAssembleIsDeterministic(t *testing.T) {
	input := models.InputData{
		"product": models.Text("咖啡机"),
		"count":   models.Number(3),
		"tone":    models.Text("活泼"),
	}
	first := Assemble(testAgent(), input)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, Assemble(testAgent(), input))
	}
}
