package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const logTimeLayout = "20060102_150405"

// LogFilePath builds a log file path using OS-appropriate path separators.
func LogFilePath(logsDir, appName string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", appName, sessionStart.Format(logTimeLayout)),
	)
}

// CreateLogFile creates logsDir if needed and opens a new log file named
// for started.
func CreateLogFile(logsDir, appName string, started time.Time) (*os.File, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating logs dir: %w", err)
	}
	f, err := os.Create(LogFilePath(logsDir, appName, started))
	if err != nil {
		return nil, fmt.Errorf("creating log file: %w", err)
	}
	return f, nil
}

// PruneLogFiles deletes the oldest log files of appName in logsDir so that
// at most keep remain, and returns the deleted paths. keep <= 0 keeps all.
func PruneLogFiles(logsDir, appName string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	files, err := filepath.Glob(filepath.Join(logsDir, appName+".*.log"))
	if err != nil {
		return nil, err
	}
	if len(files) <= keep {
		return nil, nil
	}
	// the timestamp layout sorts chronologically
	sort.Strings(files)
	stale := files[:len(files)-keep]

	var removed []string
	var errs []error
	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, path)
	}
	return removed, errors.Join(errs...)
}
