package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLogger_FieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(&buf, zerolog.InfoLevel)

	log.Debug(context.Background(), "hidden")
	log.With("user", "u1").Warn(context.Background(), "entry failed", "entry", 7, "err", errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, "warn", got["level"])
	assert.Equal(t, "entry failed", got["message"])
	assert.Equal(t, "u1", got["user"])
	assert.Equal(t, float64(7), got["entry"])
	assert.Equal(t, "boom", got["err"])
	assert.Contains(t, got, "time")
}

func TestPairs_OddAndBadKeys(t *testing.T) {
	assert.Equal(t, []any{"a", 1, "b", nil}, pairs([]any{"a", 1, "b"}))
	assert.Equal(t, []any{"!BADKEY", "x"}, pairs([]any{42, "x"}))
}

func TestNew_Backends(t *testing.T) {
	var buf bytes.Buffer

	l, c, err := New(Options{Backend: "zerolog", Level: "debug", Output: &buf})
	require.NoError(t, err)
	l.Debug(context.Background(), "z")
	require.NoError(t, c.Close())
	assert.Contains(t, buf.String(), `"message":"z"`)

	buf.Reset()
	l, _, err = New(Options{Output: &buf})
	require.NoError(t, err)
	l.Info(context.Background(), "s")
	assert.Contains(t, buf.String(), `"msg":"s"`)

	_, _, err = New(Options{Backend: "logrus"})
	assert.Error(t, err)

	_, _, err = New(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestNew_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.log")

	l, c, err := New(Options{File: path, MaxSizeMB: 1})
	require.NoError(t, err)
	l.Info(context.Background(), "to file")
	require.NoError(t, c.Close())

	assert.FileExists(t, path)
}

func TestZerologLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(&buf, zerolog.DebugLevel)

	ctx := ContextWith(context.Background(), "request_id", "r1")
	log.Info(ctx, "hello", "k", "v")

	var got map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &got))
	assert.Equal(t, "r1", got["request_id"])
	assert.Equal(t, "v", got["k"])
}

func TestContextWith_DoesNotLeakIntoParent(t *testing.T) {
	parent := ContextWith(context.Background(), "a", 1)
	child := ContextWith(parent, "b", 2)

	assert.Equal(t, []any{"a", 1}, contextFields(parent))
	assert.Equal(t, []any{"a", 1, "b", 2}, contextFields(child))
	assert.Same(t, parent, ContextWith(parent))
}
