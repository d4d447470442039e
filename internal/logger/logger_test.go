package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultWriter(t *testing.T) {
	logger := New(Config{Level: slog.LevelInfo, Format: "json"})
	assert.NotNil(t, logger)
	assert.NotNil(t, logger.Logger)
}

func TestNew_FormatAutoDetection(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		wantJSON    bool
	}{
		{name: "production uses json", environment: "production", wantJSON: true},
		{name: "development uses pretty", environment: "development", wantJSON: false},
		{name: "empty uses pretty", environment: "", wantJSON: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(Config{Level: slog.LevelInfo, Environment: tt.environment, Writer: &buf})
			logger.Info("test")

			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"test"`)
			} else {
				assert.Contains(t, buf.String(), colorBold+"test"+colorReset)
			}
		})
	}
}

func TestNew_ExplicitFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Environment: "development", Writer: &buf})
	logger.Info("test")

	assert.Contains(t, buf.String(), `"msg":"test"`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestPrettyHandler_Enabled(t *testing.T) {
	debug := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})
	info := NewPrettyHandler(&bytes.Buffer{}, nil)

	assert.True(t, debug.Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, info.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, info.Enabled(context.Background(), slog.LevelError))
}

func TestPrettyHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	logger.Info("test message", "key1", "value1", "key2", 42, "spaced", "a b")

	output := buf.String()
	assert.Contains(t, output, "test message")
	assert.Contains(t, output, "key1=value1")
	assert.Contains(t, output, "key2=42")
	assert.Contains(t, output, `spaced="a b"`)
	assert.Contains(t, output, "INF")
	assert.True(t, strings.HasSuffix(output, "\n"))
}

type pathValue struct {
	kind string
	path string
}

func (p pathValue) LogValue() slog.Value {
	return slog.GroupValue(slog.String("kind", p.kind), slog.String("path", p.path))
}

func TestPrettyHandler_FlattensGroupsAndLogValuers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyHandler(&buf, nil))

	logger.Info("recorded", "event", pathValue{kind: "created", path: "/tmp/a"})

	output := buf.String()
	assert.Contains(t, output, "event.kind=created")
	assert.Contains(t, output, "event.path=/tmp/a")
}

func TestPrettyHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	handler := NewPrettyHandler(&buf, nil)

	assert.Same(t, handler, handler.WithGroup(""))

	logger := slog.New(handler).With("root", "/r").WithGroup("notifier").With("mode", "tree")
	logger.Info("attached", "indexed", 3)

	output := buf.String()
	assert.Contains(t, output, " root=/r")
	assert.Contains(t, output, "notifier.mode=tree")
	assert.Contains(t, output, "notifier.indexed=3")
}

func TestPrettyHandler_WithAttrsDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(NewPrettyHandler(&buf, nil)).With("shared", 1)

	a := base.With("a", 1)
	b := base.With("b", 2)
	a.Info("first")
	b.Info("second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "a=1")
	assert.NotContains(t, lines[0], "b=2")
	assert.Contains(t, lines[1], "b=2")
	assert.NotContains(t, lines[1], "a=1")
}

func TestFormatValue(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		value slog.Value
		want  string
	}{
		{name: "string", value: slog.StringValue("test"), want: "test"},
		{name: "empty string", value: slog.StringValue(""), want: `""`},
		{name: "time", value: slog.TimeValue(now), want: now.Format(time.RFC3339)},
		{name: "duration", value: slog.DurationValue(5 * time.Second), want: "5s"},
		{name: "int", value: slog.IntValue(42), want: "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(tt.value))
		})
	}
}

func TestLogger_Helpers(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Writer: &buf})

	logger.WithComponent("file_watcher").
		WithError(errors.New("boom")).
		WithField("root", "/r").
		WithFields(map[string]any{"events": 2}).
		Info("stopped")

	output := buf.String()
	assert.Contains(t, output, `"component":"file_watcher"`)
	assert.Contains(t, output, `"error":"boom"`)
	assert.Contains(t, output, `"root":"/r"`)
	assert.Contains(t, output, `"events":2`)
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Format: "json", Writer: &buf})

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
