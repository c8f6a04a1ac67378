package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Files      []string // Related files (optional)
	Suggestion string   // Action to take (optional)
}

// Display shows a formatted warning in yellow
func (w Warning) Display(out io.Writer) {
	var b strings.Builder

	b.WriteString("⚠️  Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		for _, line := range strings.Split(w.Message, "\n") {
			b.WriteString("    ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	if len(w.Files) > 0 {
		if len(w.Files) == 1 {
			b.WriteString("    Affected file:\n")
		} else {
			b.WriteString("    Affected files:\n")
		}
		for i, file := range w.Files {
			fmt.Fprintf(&b, "      %d. %s\n", i+1, file)
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	color.New(color.FgYellow).Fprint(out, b.String())
}

// WarnIgnoredFiles creates a warning for files a suite directory skipped
func WarnIgnoredFiles(dir string, files []string) Warning {
	return Warning{
		Title:      "Files Ignored in " + dir,
		Files:      files,
		Suggestion: "Suite files must end in .yaml, .yml, .md or .markdown",
	}
}

// WarnAnomalies creates a warning listing classifier anomalies seen in a case
func WarnAnomalies(caseName string, anomalies []string) Warning {
	return Warning{
		Title:   fmt.Sprintf("Unusual engine output in %q", caseName),
		Message: strings.Join(anomalies, "\n"),
	}
}
