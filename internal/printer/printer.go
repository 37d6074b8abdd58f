// Package printer writes the CLI's human-facing output: coloured status
// lines on stdout and structured, suggestion-bearing errors on stderr.
package printer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
)

func init() {
	// NO_COLOR still disables colour when set.
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// SetOutput redirects printer output. Nil arguments restore the process
// streams.
func SetOutput(out, errOut io.Writer) {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	stdout, stderr = out, errOut
}

// Success prints a green line prefixed with a checkmark.
func Success(format string, a ...any) {
	green.Fprint(stdout, withPrefix("✓ ", fmt.Sprintf(format, a...)))
}

// Info prints an uncoloured message.
func Info(format string, a ...any) {
	fmt.Fprintf(stdout, format, a...)
}

// Warning prints a yellow message prefixed with a warning sign.
func Warning(format string, a ...any) {
	yellow.Fprint(stdout, withPrefix("⚠️  ", fmt.Sprintf(format, a...)))
}

// Step prints one step of a multi-step operation.
func Step(format string, a ...any) {
	cyan.Fprint(stdout, withPrefix("→ ", fmt.Sprintf(format, a...)))
}

// Println prints a plain line.
func Println(a ...any) {
	fmt.Fprintln(stdout, a...)
}

// Printf prints plain formatted output.
func Printf(format string, a ...any) {
	fmt.Fprintf(stdout, format, a...)
}

func withPrefix(prefix, msg string) string {
	if strings.HasPrefix(msg, strings.TrimSpace(prefix)) {
		return msg
	}
	return prefix + msg
}

// Error prints a red title, an explanation and suggestions to stderr. The
// returned error carries only the title; commands run with SilenceErrors so
// cobra does not print it again.
func Error(title string, explanation string, suggestions []string) error {
	return ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext is Error with key/value details, printed in key order.
func ErrorWithContext(title string, explanation string, context map[string]string, suggestions []string) error {
	red.Fprintf(stderr, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(stderr, "%s\n", explanation)
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintln(stderr)
		for _, k := range keys {
			fmt.Fprintf(stderr, "  %s: %s\n", k, context[k])
		}
	}

	writeSuggestions(stderr, suggestions)
	return fmt.Errorf("%s", title)
}

func writeSuggestions(w io.Writer, suggestions []string) {
	switch len(suggestions) {
	case 0:
		return
	case 1:
		fmt.Fprintf(w, "\n%s\n", suggestions[0])
	default:
		fmt.Fprintf(w, "\nEither:\n")
		for i, s := range suggestions {
			fmt.Fprintf(w, "  %d. %s\n", i+1, s)
		}
	}
}
