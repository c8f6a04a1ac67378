package display

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
)

// ProgressIndicator reports suite loading one step at a time
type ProgressIndicator struct {
	writer  io.Writer
	total   int
	current int
}

// NewProgressIndicator creates a new progress indicator
func NewProgressIndicator(w io.Writer, total int) *ProgressIndicator {
	return &ProgressIndicator{
		writer: w,
		total:  total,
	}
}

// Start displays the header message
func (p *ProgressIndicator) Start() {
	fmt.Fprintf(p.writer, "Loading suites:\n")
}

// Step displays progress for the current suite: [N/Total] name (cyan)
func (p *ProgressIndicator) Step(ref string) {
	p.current++
	fmt.Fprintln(p.writer, color.New(color.FgCyan).Sprintf("  [%d/%d] %s", p.current, p.total, filepath.Base(ref)))
}

// Complete displays the success line with the number of cases loaded
func (p *ProgressIndicator) Complete(cases int) {
	fmt.Fprintf(p.writer, "%s Loaded %d suite(s), %d case(s)\n", color.New(color.FgGreen).Sprint("✓"), p.current, cases)
}

// DisplaySingleSuite shows a simple loading message for one suite
func DisplaySingleSuite(w io.Writer, ref string) {
	fmt.Fprintf(w, "Loading suite %s...\n", ref)
}
