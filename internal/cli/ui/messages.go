package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level represents the severity of a message
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// MessageOptions configures message formatting
type MessageOptions struct {
	Level       Level
	Context     string
	Problem     string
	Suggestions []string
	NoColor     bool
}

// FormatMessage creates a standardized message with optional suggestions
//
// Example output:
//
//	❌ LOAD FAILED
//	   ./policies: package example.com/acme/policies: undefined: mediation
//
//	   → Check the sources compile: go build ./...
func FormatMessage(opts MessageOptions) string {
	var b strings.Builder

	var headerColor, bodyColor *color.Color
	var symbol string

	switch opts.Level {
	case LevelWarning:
		headerColor = color.New(color.FgYellow, color.Bold)
		bodyColor = color.New(color.FgYellow)
		symbol = "⚠️"
	case LevelInfo:
		headerColor = color.New(color.FgCyan, color.Bold)
		bodyColor = color.New(color.FgCyan)
		symbol = "ℹ️"
	default:
		headerColor = color.New(color.FgRed, color.Bold)
		bodyColor = color.New(color.FgRed)
		symbol = "❌"
	}

	if opts.NoColor {
		headerColor.DisableColor()
		bodyColor.DisableColor()
	}

	if opts.Context != "" {
		headerColor.Fprintf(&b, "%s %s\n", symbol, strings.ToUpper(opts.Context))
		if opts.Problem != "" {
			bodyColor.Fprintf(&b, "   %s\n", opts.Problem)
		}
	} else {
		headerColor.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		cyan := color.New(color.FgCyan)
		if opts.NoColor {
			cyan.DisableColor()
		}
		for _, s := range opts.Suggestions {
			cyan.Fprintf(&b, "   → %s\n", s)
		}
	}

	return b.String()
}

// WriteMessage writes a formatted message to the writer
func WriteMessage(w io.Writer, opts MessageOptions) {
	fmt.Fprint(w, FormatMessage(opts))
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to the writer
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// LoadError reports a symbol model that could not be loaded
func LoadError(source string, err error, noColor bool) string {
	return FormatMessage(MessageOptions{
		Level:   LevelError,
		Context: "load failed",
		Problem: fmt.Sprintf("%s: %v", source, err),
		Suggestions: []string{
			"Check the sources compile: go build ./...",
			"Or pass a model dump: policy-validator validate --model model.yaml",
		},
		NoColor: noColor,
	})
}

// ConfigError reports an invalid configuration
func ConfigError(err error, noColor bool) string {
	return FormatMessage(MessageOptions{
		Level:   LevelError,
		Context: "configuration error",
		Problem: err.Error(),
		Suggestions: []string{
			"View config: cat policy-validator.yaml",
			"Get help: policy-validator --help",
		},
		NoColor: noColor,
	})
}

// Warning creates a standardized warning message
func Warning(message string, noColor bool) string {
	return FormatMessage(MessageOptions{Level: LevelWarning, Problem: message, NoColor: noColor})
}

// Info creates a standardized info message
func Info(message string, noColor bool) string {
	return FormatMessage(MessageOptions{Level: LevelInfo, Problem: message, NoColor: noColor})
}
