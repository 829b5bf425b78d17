package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]interface{}
}

func newTestServer(t *testing.T, status int, reply string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var reqs []recordedRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			require.NoError(t, json.Unmarshal(data, &rec.Body))
		}
		reqs = append(reqs, rec)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(ts.Close)
	return ts, &reqs
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	inputPairs, inputFile, listLimit = nil, "", 0
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAgentsList(t *testing.T) {
	ts, reqs := newTestServer(t, http.StatusOK, `[{"id":"copywriter","name":"文案助理","price_label":"免费","estimated_time":"约 30 秒"}]`)

	out, err := run(t, "--server", ts.URL, "agents", "list")
	require.NoError(t, err)
	require.Contains(t, out, "ID")
	require.Contains(t, out, "copywriter")
	require.Contains(t, out, "文案助理")
	require.Equal(t, "/api/agents", (*reqs)[0].Path)
}

func TestAgentsShowNotFound(t *testing.T) {
	ts, _ := newTestServer(t, http.StatusNotFound, `{"error":"Agent not found"}`)

	_, err := run(t, "--server", ts.URL, "agents", "show", "ghost")
	require.ErrorContains(t, err, "Agent not found")
}

func TestTasksSubmitBuildsInput(t *testing.T) {
	ts, reqs := newTestServer(t, http.StatusOK, `{"task_id":"t-1","status":"completed","output_data":{"copies":[]}}`)

	dir := t.TempDir()
	file := filepath.Join(dir, "input.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"product_name":"旧名字","selling_points":"轻"}`), 0o644))

	out, err := run(t, "--server", ts.URL, "tasks", "submit", "copywriter",
		"--input-file", file,
		"-i", "product_name=便携咖啡机",
		"-i", "copy_count=2",
		"-i", "urgent=true",
	)
	require.NoError(t, err)
	require.Contains(t, out, `"status": "completed"`)

	req := (*reqs)[0]
	require.Equal(t, http.MethodPost, req.Method)
	require.Equal(t, "/api/tasks", req.Path)
	require.Equal(t, "copywriter", req.Body["agent_id"])
	require.Equal(t, map[string]interface{}{
		"product_name":   "便携咖啡机",
		"selling_points": "轻",
		"copy_count":     float64(2),
		"urgent":         true,
	}, req.Body["input_data"])
}

func TestTasksSubmitRejectsBadPair(t *testing.T) {
	_, err := run(t, "--server", "http://127.0.0.1:0", "tasks", "submit", "copywriter", "-i", "novalue")
	require.ErrorContains(t, err, "expected key=value")
}

func TestTasksListAndStats(t *testing.T) {
	ts, reqs := newTestServer(t, http.StatusOK, `[]`)

	_, err := run(t, "--server", ts.URL, "tasks", "list", "--limit", "5")
	require.NoError(t, err)
	require.Equal(t, "/api/tasks", (*reqs)[0].Path)
	require.Equal(t, "limit=5", (*reqs)[0].Query)

	_, err = run(t, "--server", ts.URL, "tasks", "stats")
	require.NoError(t, err)
	require.Equal(t, "/api/tasks/stats", (*reqs)[1].Path)

	_, err = run(t, "--server", ts.URL, "tasks", "get", "t-1")
	require.NoError(t, err)
	require.Equal(t, "/api/tasks/t-1", (*reqs)[2].Path)
}

func TestParseScalar(t *testing.T) {
	require.Equal(t, true, parseScalar("true"))
	require.Equal(t, 3.5, parseScalar("3.5"))
	require.Equal(t, "NaN", parseScalar("NaN"))
	require.Equal(t, "30 秒出杯", parseScalar("30 秒出杯"))
}
