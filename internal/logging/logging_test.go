package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simulative/grade-ingestion-service/internal/config"
)

func TestFileName(t *testing.T) {
	now := time.Date(2023, 4, 5, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "grades_20230405.log", FileName(now))
}

func TestSetup_CreatesDailyFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	now := time.Date(2023, 4, 5, 10, 0, 0, 0, time.UTC)
	prev := log.Logger
	defer func() { log.Logger = prev }()

	closer, err := Setup(config.LogConfig{Level: "debug", Dir: dir}, now)
	require.NoError(t, err)
	defer closer.Close()

	assert.FileExists(t, filepath.Join(dir, "grades_20230405.log"))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func TestPrune_RemovesOnlyOldLogFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	oldLog := filepath.Join(dir, "grades_20230101.log")
	freshLog := filepath.Join(dir, "grades_today.log")
	oldOther := filepath.Join(dir, "notes.txt")
	for _, p := range []string{oldLog, freshLog, oldOther} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	old := now.Add(-4 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(oldLog, old, old))
	require.NoError(t, os.Chtimes(oldOther, old, old))

	removed, err := Prune(dir, 72*time.Hour, now)
	require.NoError(t, err)

	assert.Equal(t, []string{oldLog}, removed)
	assert.NoFileExists(t, oldLog)
	assert.FileExists(t, freshLog)
	assert.FileExists(t, oldOther)
}

func TestPrune_MissingDirectory(t *testing.T) {
	_, err := Prune(filepath.Join(t.TempDir(), "absent"), time.Hour, time.Now())
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("Debug"))
	assert.Equal(t, zerolog.Disabled, ParseLevel("disabled"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("bogus"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
}
