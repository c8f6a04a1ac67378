package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/harrison/uciharness/internal/models"
)

// Format represents the format of a suite file
type Format int

const (
	// FormatUnknown represents an unknown or unsupported file format
	FormatUnknown Format = iota
	// FormatMarkdown represents a Markdown (.md, .markdown) suite file
	FormatMarkdown
	// FormatYAML represents a YAML (.yaml, .yml) suite file
	FormatYAML
)

// String returns the string representation of the Format
func (f Format) String() string {
	switch f {
	case FormatMarkdown:
		return "markdown"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// Parser is the interface that all suite parsers must implement
type Parser interface {
	// Parse reads from an io.Reader and returns a parsed Suite
	Parse(r io.Reader) (*models.Suite, error)
}

// DetectFormat automatically detects the suite format based on file extension
// Supported extensions:
//   - .md, .markdown -> FormatMarkdown
//   - .yaml, .yml -> FormatYAML
//   - all others -> FormatUnknown
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".md", ".markdown":
		return FormatMarkdown
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatUnknown
	}
}

// NewParser creates a new parser instance for the specified format
// Returns an error if the format is unknown or unsupported
func NewParser(format Format) (Parser, error) {
	switch format {
	case FormatMarkdown:
		return NewMarkdownParser(), nil
	case FormatYAML:
		return NewYAMLParser(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %v", format)
	}
}

// ParseFile is a convenience function that:
//  1. Detects if input is a directory of suite files or a single file
//  2. For directories, calls ParseDirectory to merge every suite file
//  3. For files, auto-detects format, opens it, and parses
//  4. Stores the absolute file path in suite.FilePath and each case's SourceFile
//
// This is the recommended way to parse suite files from disk.
func ParseFile(path string) (*models.Suite, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}
	if info.IsDir() {
		return ParseDirectory(path)
	}
	return parseFile(path)
}

func parseFile(path string) (*models.Suite, error) {
	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unknown file format: %s (supported: .md, .markdown, .yaml, .yml)", path)
	}

	parser, err := NewParser(format)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	suite, err := parser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse suite %s: %w", path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		// If we can't get absolute path, use the original
		absPath = path
	}
	suite.FilePath = absPath
	if suite.Name == "" {
		suite.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	for i := range suite.Cases {
		suite.Cases[i].SourceFile = absPath
	}
	return suite, nil
}

// ParseDirectory loads every suite file in a directory, in file name order,
// and merges them into a single suite named after the directory.
func ParseDirectory(dirname string) (*models.Suite, error) {
	entries, err := os.ReadDir(dirname)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if DetectFormat(entry.Name()) == FormatUnknown {
			continue
		}
		files = append(files, filepath.Join(dirname, entry.Name()))
	}
	sort.Strings(files)

	merged := &models.Suite{Name: filepath.Base(dirname)}
	if abs, err := filepath.Abs(dirname); err == nil {
		merged.FilePath = abs
	}
	for _, f := range files {
		suite, err := parseFile(f)
		if err != nil {
			return nil, err
		}
		merged.Cases = append(merged.Cases, suite.Cases...)
	}
	return merged, nil
}
