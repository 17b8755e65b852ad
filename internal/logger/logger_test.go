package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Format: "json", Out: &buf})

	l.Info().Msg("被过滤")
	l.Warn().Str("slug", "heat-1995").Msg("保留")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var m map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &m))
	assert.Equal(t, "warn", m["level"])
	assert.Equal(t, "heat-1995", m["slug"])
	assert.Contains(t, m, "time")
}

func TestNew_WritesRotatingFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var buf bytes.Buffer
	l := New(Config{Format: "json", Path: dir, Out: &buf})
	l.Info().Msg("落盘")
	require.NoError(t, l.Close())

	b, err := os.ReadFile(filepath.Join(dir, fileName))
	require.NoError(t, err)
	assert.Contains(t, string(b), "落盘")
	assert.Contains(t, buf.String(), "落盘")
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "json", Out: &buf})
	ctx := l.WithContext(context.Background())

	zerolog.Ctx(ctx).Info().Msg("ctx")
	assert.Contains(t, buf.String(), `"message":"ctx"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, zerolog.Disabled, ParseLevel("off"))
	assert.True(t, ValidLevel(""))
	assert.False(t, ValidLevel("verbose"))
}
