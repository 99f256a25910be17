// Package console renders styled terminal output for the pipeline:
// leveled labels, section headers, and same-line progress updates.
// Colors follow NO_COLOR and TTY detection.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Style is an ANSI style code.
type Style string

const (
	Bold    Style = "1"
	Dim     Style = "2"
	Red     Style = "31"
	Green   Style = "32"
	Yellow  Style = "33"
	Blue    Style = "34"
	Magenta Style = "35"
	Cyan    Style = "36"
	Gray    Style = "90"
)

const reset = "\x1b[0m"

// Console writes leveled, optionally colored messages. Out receives
// normal output, Err receives errors; both default to the process
// streams.
type Console struct {
	out           io.Writer
	err           io.Writer
	colorsEnabled bool
}

// New detects color support: colors are on when NO_COLOR is unset and
// stdout is a terminal.
func New() *Console {
	_, noColor := os.LookupEnv("NO_COLOR")
	enabled := !noColor &&
		(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))
	return &Console{out: os.Stdout, err: os.Stderr, colorsEnabled: enabled}
}

// WithColors forces colors on or off, for tests and --no-color flags.
func WithColors(enabled bool) *Console {
	return &Console{out: os.Stdout, err: os.Stderr, colorsEnabled: enabled}
}

// WithWriters redirects output, keeping the current color setting.
func (c *Console) WithWriters(out, err io.Writer) *Console {
	return &Console{out: out, err: err, colorsEnabled: c.colorsEnabled}
}

// Styled wraps text in the given ANSI styles when colors are enabled.
func (c *Console) Styled(text string, styles ...Style) string {
	if !c.colorsEnabled || len(styles) == 0 {
		return text
	}
	codes := make([]string, len(styles))
	for i, s := range styles {
		codes[i] = string(s)
	}
	return fmt.Sprintf("\x1b[%sm%s%s", strings.Join(codes, ";"), text, reset)
}

// Label renders a bracketed, bold, colored label like [INFO].
func (c *Console) Label(label string, color Style) string {
	return "[" + c.Styled(label, color, Bold) + "]"
}

func (c *Console) Info(format string, args ...interface{}) {
	fmt.Fprintf(c.out, "%s %s\n", c.Label("INFO", Blue), fmt.Sprintf(format, args...))
}

func (c *Console) Success(format string, args ...interface{}) {
	fmt.Fprintf(c.out, "%s %s\n", c.Label("OK", Green), fmt.Sprintf(format, args...))
}

func (c *Console) Warning(format string, args ...interface{}) {
	fmt.Fprintf(c.out, "%s %s\n", c.Label("WARN", Yellow), fmt.Sprintf(format, args...))
}

func (c *Console) Error(format string, args ...interface{}) {
	fmt.Fprintf(c.err, "%s %s\n", c.Label("ERROR", Red), fmt.Sprintf(format, args...))
}

func (c *Console) Step(format string, args ...interface{}) {
	fmt.Fprintf(c.out, "%s %s\n", c.Label("STEP", Cyan), fmt.Sprintf(format, args...))
}

// Section prints a blank line and a highlighted header.
func (c *Console) Section(title string) {
	fmt.Fprintf(c.out, "\n%s\n", c.Styled(title, Magenta, Bold))
}

// Muted returns text styled as dim gray.
func (c *Console) Muted(text string) string {
	return c.Styled(text, Gray, Dim)
}

// ClearLine erases the current line for in-place progress rendering.
// Without color support there is no cursor control either, so it is a
// no-op there.
func (c *Console) ClearLine() {
	if c.colorsEnabled {
		fmt.Fprint(c.out, "\r\x1b[2K")
	}
}

// ProgressUpdate redraws a progress message on the current line.
func (c *Console) ProgressUpdate(format string, args ...interface{}) {
	c.ClearLine()
	fmt.Fprintf(c.out, "%s %s", c.Label("..", Cyan), fmt.Sprintf(format, args...))
}

// Count formats a character count for progress lines.
func (c *Console) Count(n int) string {
	return c.Styled(fmt.Sprintf("%d", n), Green, Bold)
}

// Speed formats a characters-per-second rate for progress lines.
func (c *Console) Speed(charsPerSec float64) string {
	return c.Styled(fmt.Sprintf("%.0f/sec", charsPerSec), Yellow, Bold)
}

// ChunkInfo formats the chapter/chunk position for progress lines.
func (c *Console) ChunkInfo(chapter, chunk, totalChunks int) string {
	return c.Styled(fmt.Sprintf("[Chapter %d, Chunk %d/%d]", chapter, chunk, totalChunks), Cyan, Bold)
}
