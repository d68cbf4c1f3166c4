package log

import (
	"fmt"
	"os"
	"strings"

	"github.com/starkandwayne/goutils/ansi"
)

// DebugOn enables DEBUG output to stderr.
var DebugOn = false

// TraceOn enables TRACE output to stderr (implies a lot of noise).
var TraceOn = false

// DEBUG ...
func DEBUG(format string, args ...interface{}) {
	if DebugOn {
		content := fmt.Sprintf(format, args...)
		lines := strings.Split(content, "\n")
		for i, line := range lines {
			lines[i] = "DEBUG> " + line
		}
		content = strings.Join(lines, "\n")
		fmt.Fprintf(os.Stderr, "%s\n", content)
	}
}

// TRACE ...
func TRACE(format string, args ...interface{}) {
	if TraceOn {
		content := fmt.Sprintf(format, args...)
		lines := strings.Split(content, "\n")
		for i, line := range lines {
			lines[i] = "TRACE> " + line
		}
		content = strings.Join(lines, "\n")
		fmt.Fprintf(os.Stderr, "%s\n", content)
	}
}

// PrintfStdErr formats (with ansi color codes) to stderr.
func PrintfStdErr(format string, args ...interface{}) {
	fmt.Fprint(os.Stderr, ansi.Sprintf(format, args...))
}
