// Package ui provides terminal output for the compressor CLI.
package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spherical/pdf-compressor/internal/domain"
)

// loadedPercent is the progress value reported once the input is parsed.
const loadedPercent = 5

// Progress renders pipeline events: a spinner while the input loads, then a
// percentage bar. In verbose mode every event is printed on its own line.
type Progress struct {
	out     io.Writer
	spinner *spinner.Spinner
	bar     *progressbar.ProgressBar
	verbose bool
}

// NewProgress creates a progress display writing to stderr.
func NewProgress(verbose bool) *Progress {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Writer = os.Stderr
	return &Progress{out: os.Stderr, spinner: s, verbose: verbose}
}

// Handle consumes one event. Events must arrive in order.
func (p *Progress) Handle(ev domain.ProgressEvent) {
	if p.verbose {
		fmt.Fprintf(p.out, "[%3d%%] %s\n", ev.Percent, ev.Message)
		return
	}

	if ev.Percent < loadedPercent {
		p.spinner.Suffix = " " + ev.Message
		p.spinner.Start()
		return
	}

	if p.bar == nil {
		p.spinner.Stop()
		p.bar = newBar(p.out)
	}

	p.bar.Describe(ev.Message)
	_ = p.bar.Set(ev.Percent)
}

// Stop clears any running spinner or bar.
func (p *Progress) Stop() {
	p.spinner.Stop()
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

func newBar(out io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(100,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(out, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
)

// SetColor enables or disables colored output.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}

// Success displays a success message.
func Success(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, "%s %s\n", green("✓"), fmt.Sprintf(format, args...))
}

// Error displays an error message to stderr.
func Error(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", red("✗"), fmt.Sprintf(format, args...))
}

// Warning displays a warning message.
func Warning(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, "%s %s\n", yellow("⚠"), fmt.Sprintf(format, args...))
}

// Info displays an informational message.
func Info(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, "%s %s\n", cyan("ℹ"), fmt.Sprintf(format, args...))
}

// Summary prints the outcome of a run.
func Summary(result *domain.ProcessingResult, outputPath string) {
	Success("Wrote %s (%d pages)", outputPath, result.PageCount)
	fmt.Fprintf(os.Stdout, "  Original:   %s\n", formatMB(result.OriginalSize))
	fmt.Fprintf(os.Stdout, "  Compressed: %s\n", formatMB(result.CompressedSize))
	fmt.Fprintf(os.Stdout, "  Reduction:  %d%%\n", result.ReductionPercent)
	fmt.Fprintf(os.Stdout, "  Time:       %v\n", result.Duration.Round(time.Millisecond))
}

func formatMB(size int64) string {
	return fmt.Sprintf("%.2f MB", float64(size)/1024/1024)
}
