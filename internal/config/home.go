package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HomeDirName is the per-project directory holding config, logs and history.
const HomeDirName = ".uciharness"

// HomeEnv overrides home directory discovery when set.
const HomeEnv = "UCIHARNESS_HOME"

// GetHome returns the harness home directory
// Priority order:
//  1. UCIHARNESS_HOME environment variable (if set)
//  2. The nearest ancestor of the working directory that contains .uciharness
//  3. .uciharness in the current working directory (fallback)
//
// The directory is not created; callers that write into it create what they need.
func GetHome() (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return home, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	if root, ok := findProjectRoot(cwd); ok {
		return filepath.Join(root, HomeDirName), nil
	}
	return filepath.Join(cwd, HomeDirName), nil
}

// findProjectRoot walks up from dir looking for a .uciharness directory
func findProjectRoot(dir string) (string, bool) {
	current := dir
	for {
		info, err := os.Stat(filepath.Join(current, HomeDirName))
		if err == nil && info.IsDir() {
			return current, true
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// DefaultConfigPath returns the config file inside the harness home
func DefaultConfigPath() (string, error) {
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config.yaml"), nil
}

// ResolvePath anchors a relative path that starts with the home directory
// name at the discovered project root, so commands behave the same from
// any subdirectory. Other paths are returned unchanged.
func ResolvePath(p string) (string, error) {
	if p == "" || filepath.IsAbs(p) {
		return p, nil
	}
	first := strings.SplitN(filepath.ToSlash(filepath.Clean(p)), "/", 2)[0]
	if first != HomeDirName {
		return p, nil
	}
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(HomeDirName, p)
	if err != nil {
		return "", err
	}
	return filepath.Join(home, rel), nil
}
