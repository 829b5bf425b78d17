package cmd

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var (
	inputPairs []string
	inputFile  string
	listLimit  int
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Submit and review tasks",
}

var tasksSubmitCmd = &cobra.Command{
	Use:   "submit [agent-id]",
	Short: "Submit a task and wait for the result",
	Example: `  aiboss-cli tasks submit copywriter --input product_name=便携咖啡机 --input selling_points="30 秒出杯" --input tone=活泼
  aiboss-cli tasks submit business-analyst --input-file input.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := buildInput(inputFile, inputPairs)
		if err != nil {
			return err
		}
		body := map[string]interface{}{"agent_id": args[0], "input_data": input}
		return call(cmd.Context(), cmd.OutOrStdout(), http.MethodPost, "/api/tasks", body)
	},
}

var tasksGetCmd = &cobra.Command{
	Use:   "get [task-id]",
	Short: "Show a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, "/api/tasks/"+url.PathEscape(args[0]), nil)
	},
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your most recent tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/api/tasks"
		if listLimit > 0 {
			path += "?limit=" + strconv.Itoa(listLimit)
		}
		return call(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, path, nil)
	},
}

var tasksStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show task statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, "/api/tasks/stats", nil)
	},
}

// buildInput 合并输入文件和 key=value 参数，参数中的值覆盖文件中的同名字段。
// 值为 true/false 时按布尔处理，能解析为数字时按数字处理，其余为文本。
func buildInput(file string, pairs []string) (map[string]interface{}, error) {
	input := map[string]interface{}{}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read input file: %w", err)
		}
		if err := json.Unmarshal(data, &input); err != nil {
			return nil, fmt.Errorf("input file must contain a JSON object: %w", err)
		}
	}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --input %q, expected key=value", pair)
		}
		input[key] = parseScalar(value)
	}
	return input, nil
}

func parseScalar(s string) interface{} {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(n, 0) && !math.IsNaN(n) {
		return n
	}
	return s
}

func init() {
	rootCmd.AddCommand(tasksCmd)
	tasksCmd.AddCommand(tasksSubmitCmd, tasksGetCmd, tasksListCmd, tasksStatsCmd)

	tasksSubmitCmd.Flags().StringArrayVarP(&inputPairs, "input", "i", nil, "input field as key=value (repeatable)")
	tasksSubmitCmd.Flags().StringVarP(&inputFile, "input-file", "f", "", "JSON file with the input fields")
	tasksListCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "maximum number of tasks (server default 20)")
}
