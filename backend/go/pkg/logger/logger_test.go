package logger

import (
	"AIBoss/backend/go/internal/models"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesJSONWithServiceFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput(logrus.InfoLevel, &buf)
	t.Cleanup(func() { Init(logrus.InfoLevel) })

	base := New("TaskService", "trace-1", "")
	base.WithError(models.ErrorInfo{Message: "boom", Type: models.ErrorTypeProvider}).
		WithPayload(map[string]interface{}{"task_id": "t-1"}).
		Error("Task failed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "Task failed", line["message"])
	require.Equal(t, "error", line["level"])
	require.Equal(t, "TaskService", line["service_name"])
	require.Equal(t, "trace-1", line["trace_id"])
	require.NotContains(t, line, "user_id")
	require.Contains(t, line, "timestamp")

	errField, ok := line["error"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "boom", errField["message"])
}

func TestWithFieldDoesNotMutateBase(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput(logrus.InfoLevel, &buf)
	t.Cleanup(func() { Init(logrus.InfoLevel) })

	base := New("TaskService", "", "")
	base.WithField("task_id", "t-1").Info("first")
	buf.Reset()
	base.Info("second")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "second", line["message"])
	require.NotContains(t, line, "task_id")
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput(logrus.InfoLevel, &buf)
	t.Cleanup(func() { Init(logrus.InfoLevel) })

	New("svc", "", "").Debug("hidden")
	require.Zero(t, buf.Len())
}
