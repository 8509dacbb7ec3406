package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Logger writes human-readable CLI feedback. In JSON mode every method is
// a no-op so the only bytes on stdout are the final machine-readable
// report.
type Logger struct {
	out      io.Writer
	errOut   io.Writer
	noColor  bool
	verbose  bool
	jsonMode bool
}

// NewLogger returns a Logger bound to stdout/stderr.
func NewLogger() *Logger {
	return NewLoggerWithWriters(os.Stdout, os.Stderr)
}

// NewLoggerWithWriters returns a Logger bound to the given writers. Tests
// use this to capture output.
func NewLoggerWithWriters(out, errOut io.Writer) *Logger {
	return &Logger{out: out, errOut: errOut}
}

// SetNoColor disables colored output.
func (l *Logger) SetNoColor(noColor bool) {
	l.noColor = noColor
	color.NoColor = noColor
}

// SetVerbose enables debug output.
func (l *Logger) SetVerbose(verbose bool) {
	l.verbose = verbose
}

// SetJSONMode suppresses all text output.
func (l *Logger) SetJSONMode(jsonMode bool) {
	l.jsonMode = jsonMode
}

// JSONMode reports whether text output is suppressed.
func (l *Logger) JSONMode() bool {
	return l.jsonMode
}

func (l *Logger) emit(w io.Writer, c *color.Color, prefix, format string, args ...interface{}) {
	if l.jsonMode {
		return
	}
	if c == nil {
		fmt.Fprintf(w, prefix+format+"\n", args...)
		return
	}
	c.Fprintf(w, prefix+format+"\n", args...)
}

// Info prints an informational message in default color.
func (l *Logger) Info(format string, args ...interface{}) {
	l.emit(l.out, nil, "", format, args...)
}

// Warn prints a warning message in yellow on stderr.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.emit(l.errOut, color.New(color.FgYellow), "Warning: ", format, args...)
}

// Error prints an error message in red on stderr.
func (l *Logger) Error(format string, args ...interface{}) {
	l.emit(l.errOut, color.New(color.FgRed), "Error: ", format, args...)
}

// Success prints a green checkmarked message.
func (l *Logger) Success(format string, args ...interface{}) {
	l.emit(l.out, color.New(color.FgGreen), "✓ ", format, args...)
}

// Failure prints a red cross-marked message. Unlike Error it goes to
// stdout, alongside the stage lines it concludes.
func (l *Logger) Failure(format string, args ...interface{}) {
	l.emit(l.out, color.New(color.FgRed), "✗ ", format, args...)
}

// Step prints a numbered stage header, e.g. "[3/8] Checking account".
func (l *Logger) Step(n, total int, format string, args ...interface{}) {
	if l.jsonMode {
		return
	}
	fmt.Fprintf(l.out, "%s ", color.CyanString("[%d/%d]", n, total))
	fmt.Fprintf(l.out, format+"\n", args...)
}

// Debug prints a gray diagnostic message when verbose mode is on.
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.emit(l.out, color.New(color.FgHiBlack), "[DEBUG] ", format, args...)
}

// Bold prints a bold message.
func (l *Logger) Bold(format string, args ...interface{}) {
	l.emit(l.out, color.New(color.Bold), "", format, args...)
}

// Print prints a plain message without a trailing newline.
func (l *Logger) Print(format string, args ...interface{}) {
	if l.jsonMode {
		return
	}
	fmt.Fprintf(l.out, format, args...)
}

// Println prints a plain message with a trailing newline.
func (l *Logger) Println(format string, args ...interface{}) {
	l.emit(l.out, nil, "", format, args...)
}

// DefaultLogger is the package-level logger the commands configure at
// startup.
var DefaultLogger = NewLogger()

// Info prints an informational message using the default logger.
func Info(format string, args ...interface{}) {
	DefaultLogger.Info(format, args...)
}

// Warn prints a warning message using the default logger.
func Warn(format string, args ...interface{}) {
	DefaultLogger.Warn(format, args...)
}

// Error prints an error message using the default logger.
func Error(format string, args ...interface{}) {
	DefaultLogger.Error(format, args...)
}

// Success prints a success message using the default logger.
func Success(format string, args ...interface{}) {
	DefaultLogger.Success(format, args...)
}

// Debug prints a debug message using the default logger.
func Debug(format string, args ...interface{}) {
	DefaultLogger.Debug(format, args...)
}

// Bold prints a bold message using the default logger.
func Bold(format string, args ...interface{}) {
	DefaultLogger.Bold(format, args...)
}
