package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		app     string
		want    string
	}{
		{
			name:    "basic path",
			logsDir: "logs",
			app:     "monreader",
			want:    filepath.Join("logs", "monreader.20260212_213836.log"),
		},
		{
			name:    "relative path with dot",
			logsDir: "./logs",
			app:     "monreader",
			want:    filepath.Join(".", "logs", "monreader.20260212_213836.log"),
		},
		{
			name:    "absolute path",
			logsDir: filepath.Join("/var", "log", "monreader"),
			app:     "monreader",
			want:    filepath.Join("/var", "log", "monreader", "monreader.20260212_213836.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LogFilePath(tt.logsDir, tt.app, sessionStart)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewZerolog_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, "warn")

	log.Info().Msg("hidden")
	log.Warn().Str("backend", "postgres").Msg("falling back")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "falling back")
	assert.Contains(t, out, "backend=postgres")
}

func TestCreateLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	started := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	f, err := CreateLogFile(dir, "monreader", started)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, LogFilePath(dir, "monreader", started), f.Name())
}

func TestPruneLogFiles(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var paths []string
	for i := 0; i < 5; i++ {
		p := LogFilePath(dir, "monreader", start.Add(time.Duration(i)*time.Hour))
		require.NoError(t, os.WriteFile(p, nil, 0o644))
		paths = append(paths, p)
	}
	other := filepath.Join(dir, "status.txt")
	require.NoError(t, os.WriteFile(other, nil, 0o644))

	removed, err := PruneLogFiles(dir, "monreader", 3)
	require.NoError(t, err)
	assert.Equal(t, paths[:2], removed)

	left, err := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, err)
	assert.ElementsMatch(t, append(paths[2:], other), left)
}

func TestPruneLogFiles_KeepAll(t *testing.T) {
	dir := t.TempDir()
	p := LogFilePath(dir, "monreader", time.Now())
	require.NoError(t, os.WriteFile(p, nil, 0o644))

	for _, keep := range []int{0, -1, 1, 5} {
		removed, err := PruneLogFiles(dir, "monreader", keep)
		require.NoError(t, err)
		assert.Empty(t, removed)
	}
	assert.FileExists(t, p)
}
