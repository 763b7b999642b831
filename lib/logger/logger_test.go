package logger

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New("FETCH", &buf, WARNING)

	l.Debug("debug %d", 1)
	l.Info("info %d", 2)
	l.Warning("warn %d", 3)
	l.Error("error %d", 4)

	out := buf.String()
	assert.Equal(t, false, strings.Contains(out, "debug 1"))
	assert.Equal(t, false, strings.Contains(out, "info 2"))
	assert.Equal(t, true, strings.Contains(out, "[WARNING] [FETCH] "))
	assert.Equal(t, true, strings.Contains(out, "error 4"))
}

func TestModuleSharesWriter(t *testing.T) {
	var buf bytes.Buffer
	l := New("ROOT", &buf, INFO).Module("DIGEST")
	l.Info("hello")
	assert.Equal(t, true, strings.Contains(buf.String(), "[INFO] [DIGEST] hello"))
}

func TestGetLogLevelFromString(t *testing.T) {
	assert.Equal(t, DEBUG, GetLogLevelFromString("debug"))
	assert.Equal(t, WARNING, GetLogLevelFromString("WARN"))
	assert.Equal(t, ERROR, GetLogLevelFromString("ERROR"))
	assert.Equal(t, INFO, GetLogLevelFromString("nonsense"))
}

func TestNewLoggerCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "digest.log")
	l, err := NewLogger("RUN", Options{Path: path, MaxSize: 1, MaxBackups: 1, MaxAge: 1, MinLevel: INFO})
	assert.Equal(t, nil, err)
	assert.NotEqual(t, nil, l)
}
