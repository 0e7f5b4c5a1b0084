package logging

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestSetupCapturesWarnings(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, slog.LevelDebug)
	before := len(Entries())

	l.With("execution", "e1").Warn("step failed", "status", 500)
	l.Debug("noise")

	assert.Contains(t, buf.String(), "step failed")
	assert.Contains(t, buf.String(), "noise")
	entries := Entries()
	require.Len(t, entries, before+1)
	last := entries[len(entries)-1]
	assert.Equal(t, "step failed", last.Message)
	assert.Equal(t, "e1", last.Attrs["execution"])
	assert.Equal(t, "500", last.Attrs["status"])
}

func TestToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "stepwise.log")
	l, closer, err := ToFile(path, slog.LevelInfo)
	require.NoError(t, err)
	l.Info("hello")
	require.NoError(t, closer.Close())
	assert.FileExists(t, path)
}
