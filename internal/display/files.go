package display

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/harrison/uciharness/internal/parser"
)

// IgnoredFiles returns the basenames of regular, non-hidden files in dir that
// are not suite files. Only the immediate directory is scanned.
func IgnoredFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var ignored []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if parser.DetectFormat(name) == parser.FormatUnknown {
			ignored = append(ignored, name)
		}
	}
	sort.Strings(ignored)
	return ignored, nil
}
