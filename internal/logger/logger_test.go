package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		Setup("info", "production")
	})
	return &buf
}

func TestForResource_CarriesRunID(t *testing.T) {
	buf := capture(t)
	Setup("info", "production")

	ctx := WithRunID(context.Background(), "run-1")
	ForResource(ctx, "shop.staging").Info("Autosync disabled for shop.staging")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "shop.staging", entry["resource"])
	assert.Equal(t, "Autosync disabled for shop.staging", entry["msg"])
}

func TestRunIDFromContext_Missing(t *testing.T) {
	assert.Empty(t, RunIDFromContext(context.Background()))
}

func TestSetup_Level(t *testing.T) {
	tests := []struct {
		level string
		want  logrus.Level
	}{
		{"warn", logrus.WarnLevel},
		{"ERROR", logrus.ErrorLevel},
		{"chatty", logrus.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			capture(t)
			Setup(tt.level, "production")
			assert.Equal(t, tt.want, log.GetLevel())
		})
	}
}

func TestInfoCtx_BelowLevelIsDropped(t *testing.T) {
	buf := capture(t)
	Setup("warn", "production")

	InfoCtx(context.Background(), "quiet")
	WarnCtx(context.Background(), "loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}
