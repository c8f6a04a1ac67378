// Package display provides terminal output helpers for the harness CLI.
//
// # Progress Indicators
//
// Use ProgressIndicator while loading several suites:
//
//	progress := display.NewProgressIndicator(os.Stdout, len(refs))
//	progress.Start()
//	for _, ref := range refs {
//	    progress.Step(ref)
//	    // ... load suite ...
//	}
//	progress.Complete(totalCases)
//
// # Warning Messages
//
// Warnings carry a title and optional message, files and suggestion:
//
//	warning := display.Warning{
//	    Title:      "Files Ignored",
//	    Files:      ignored,
//	    Suggestion: "Rename suite files to .yaml or .md",
//	}
//	warning.Display(os.Stderr)
//
// WarnAnomalies builds the warning shown when the output classifier flagged
// malformed board dumps or ambiguous turn lines during a case.
//
// All functions accept io.Writer interfaces for testability.
package display
