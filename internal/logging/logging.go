// Package logging configures the global zerolog logger and the daily log
// files it writes to.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/simulative/grade-ingestion-service/internal/config"
)

const filePrefix = "grades_"

// Setup points the global logger at stderr and at today's log file in
// cfg.Dir. The returned closer closes the file.
func Setup(cfg config.LogConfig, now time.Time) (io.Closer, error) {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory %s: %w", cfg.Dir, err)
	}

	logPath := filepath.Join(cfg.Dir, FileName(now))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", logPath, err)
	}

	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}
	multi := zerolog.MultiLevelWriter(console, logFile)
	log.Logger = zerolog.New(multi).With().Timestamp().Str("service", "grades").Logger()

	return logFile, nil
}

// FileName returns the log file name for the day of now.
func FileName(now time.Time) string {
	return filePrefix + now.Format("20060102") + ".log"
}

// Prune deletes *.log files under dir whose modification time is older
// than maxAge. It returns the paths it removed.
func Prune(dir string, maxAge time.Duration, now time.Time) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("log directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var removed []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".log") {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		if now.Sub(fi.ModTime()) <= maxAge {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", path, err)
		}
		log.Info().Str("file", path).Msg("old log file removed")
		removed = append(removed, path)
		return nil
	})
	if err != nil {
		return removed, err
	}
	return removed, nil
}

// ParseLevel converts a string log level to a zerolog.Level. Unknown or
// empty levels fall back to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
