package logger

import (
	"strings"

	"github.com/fatih/color"

	"github.com/harrison/uciharness/internal/models"
)

// colorScheme defines consistent colors for console output.
// Green: passing verdicts
// Red: failing verdicts
// Yellow: warnings and engine-reported errors
// Cyan: case names
type colorScheme struct {
	success *color.Color
	failure *color.Color
	warn    *color.Color
	label   *color.Color
	muted   *color.Color
}

func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		muted:   color.New(color.FgHiBlack),
	}
}

// level colours a level tag.
func (s *colorScheme) level(level string) string {
	switch strings.ToUpper(level) {
	case "TRACE":
		return s.muted.Sprint(level)
	case "DEBUG":
		return s.label.Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return s.warn.Sprint(level)
	case "ERROR":
		return s.failure.Sprint(level)
	default:
		return level
	}
}

// verdict colours a verdict by whether the case got the verdict it wanted.
// A wanted timeout or launch failure is green; an unwanted one is red.
func (s *colorScheme) verdict(v models.Verdict, passed bool) string {
	text := strings.ToUpper(string(v))
	if passed {
		return s.success.Sprint(text)
	}
	if v == models.VerdictTimeout {
		return s.warn.Sprint(text)
	}
	return s.failure.Sprint(text)
}
