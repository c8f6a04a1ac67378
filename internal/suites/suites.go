// Package suites holds the test suites compiled into the harness binary.
package suites

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/harrison/uciharness/internal/models"
	"github.com/harrison/uciharness/internal/parser"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

const builtinDir = "builtin"

// Names returns the names of the built-in suites, sorted.
func Names() []string {
	entries, err := fs.ReadDir(builtinFS, builtinDir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is a built-in suite.
func Has(name string) bool {
	_, err := fs.Stat(builtinFS, path.Join(builtinDir, name+".yaml"))
	return err == nil
}

// Load parses the named built-in suite.
func Load(name string) (*models.Suite, error) {
	data, err := builtinFS.ReadFile(path.Join(builtinDir, name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("unknown built-in suite %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	suite, err := parser.NewYAMLParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("built-in suite %s: %w", name, err)
	}
	if suite.Name == "" {
		suite.Name = name
	}
	return suite, nil
}

// All loads every built-in suite in name order.
func All() ([]*models.Suite, error) {
	var out []*models.Suite
	for _, name := range Names() {
		s, err := Load(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Resolve returns the built-in suite called ref, or parses ref as a suite
// file or directory on disk.
func Resolve(ref string) (*models.Suite, error) {
	if Has(ref) {
		return Load(ref)
	}
	return parser.ParseFile(ref)
}
