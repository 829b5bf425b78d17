package cmd

import (
	"AIBoss/backend/go/pkg/circuitbreaker"
	httpclient "AIBoss/backend/go/pkg/http"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "aiboss-cli",
	Short:         "A CLI client to interact with the AI Boss task service",
	Long:          `A command-line interface for browsing digital workers, submitting tasks and reviewing task history.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	defaultServer := os.Getenv("AIBOSS_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:3001"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer, "AI Boss server address (env AIBOSS_SERVER)")
	// 提交任务会同步等待大模型返回
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "request timeout")
}

func newClient() *httpclient.Client {
	return httpclient.NewClient(timeout, httpclient.WithCircuitBreaker(circuitbreaker.New(3, 1, 30*time.Second)))
}

func endpoint(path string) string {
	return strings.TrimRight(serverURL, "/") + path
}

// call 请求服务端并把 JSON 响应缩进后写到 out。
func call(ctx context.Context, out io.Writer, method, path string, body interface{}) error {
	var raw json.RawMessage
	if err := newClient().DoJSON(ctx, method, endpoint(path), body, &raw); err != nil {
		return err
	}
	return printJSON(out, raw)
}

func printJSON(out io.Writer, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("format response: %w", err)
	}
	buf.WriteByte('\n')
	_, err := out.Write(buf.Bytes())
	return err
}
