// Package tasks scaffolds the standard folder layout for a GIS task.
package tasks

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultSubfolders is the standard task folder layout.
var DefaultSubfolders = []string{"Deliverables", "Incoming", "Working"}

// Scaffold creates <base>/<year>/<taskNumber> plus the given subfolders
// (DefaultSubfolders when nil). Existing folders are left alone, so the call
// is safe to repeat. Returns the task folder path.
func Scaffold(base string, year int, taskNumber string, subfolders []string) (string, error) {
	taskNumber = strings.TrimSpace(taskNumber)
	if taskNumber == "" {
		return "", eris.New("tasks: empty task number")
	}
	// The task number becomes a single directory name; anything that would
	// escape the year folder is rejected.
	if taskNumber != filepath.Base(taskNumber) || taskNumber == ".." || taskNumber == "." {
		return "", eris.Errorf("tasks: invalid task number %q", taskNumber)
	}
	if year < 2000 || year > 2100 {
		return "", eris.Errorf("tasks: implausible year %d", year)
	}

	if subfolders == nil {
		subfolders = DefaultSubfolders
	}

	taskPath := filepath.Join(base, strconv.Itoa(year), taskNumber)
	if err := os.MkdirAll(taskPath, 0o755); err != nil {
		return "", eris.Wrapf(err, "tasks: create %s", taskPath)
	}

	for _, sub := range subfolders {
		subPath := filepath.Join(taskPath, sub)
		if err := os.MkdirAll(subPath, 0o755); err != nil {
			return "", eris.Wrapf(err, "tasks: create %s", subPath)
		}
	}

	zap.L().Info("tasks: scaffolded task folder",
		zap.String("path", taskPath),
		zap.Strings("subfolders", subfolders),
	)
	return taskPath, nil
}
