package utils

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// Verbose controls whether timing statistics and info logs are printed.
// Set to false to suppress output.
var Verbose = true

// Output is the writer where timing statistics and logs are printed.
// Defaults to os.Stdout.
var Output io.Writer = os.Stdout

// Logger returns a text logger writing to Output. Info records are only
// emitted when Verbose is set; warnings and errors always are.
func Logger() *slog.Logger {
	level := slog.LevelWarn
	if Verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(Output, &slog.HandlerOptions{Level: level}))
}

// TimingStats holds timing information for the stages of a plotting run
type TimingStats struct {
	TotalTime  time.Duration
	LoadTime   time.Duration
	EncodeTime time.Duration
	EmbedTime  time.Duration
	RenderTime time.Duration
}

// PrintTimingStats prints the stage breakdown of a run that wrote files images.
// Respects the Verbose flag - does nothing if Verbose is false.
func PrintTimingStats(stats *TimingStats, files int) {
	if !Verbose || stats.TotalTime <= 0 {
		return
	}
	pct := func(d time.Duration) float64 {
		return float64(d) / float64(stats.TotalTime) * 100
	}
	fmt.Fprintln(Output, "\n=== TIMING STATISTICS ===")
	fmt.Fprintf(Output, "Total time: %v\n", stats.TotalTime)
	fmt.Fprintf(Output, "Files written: %d\n", files)
	fmt.Fprintln(Output, "\nBreakdown by stage:")
	fmt.Fprintf(Output, "  Data loading: %v (%.1f%%)\n", stats.LoadTime, pct(stats.LoadTime))
	fmt.Fprintf(Output, "  Encoding: %v (%.1f%%)\n", stats.EncodeTime, pct(stats.EncodeTime))
	fmt.Fprintf(Output, "  Embedding: %v (%.1f%%)\n", stats.EmbedTime, pct(stats.EmbedTime))
	fmt.Fprintf(Output, "  Rendering: %v (%.1f%%)\n", stats.RenderTime, pct(stats.RenderTime))
	if files > 0 {
		fmt.Fprintf(Output, "  Average render time per file: %v\n", stats.RenderTime/time.Duration(files))
	}
}

// DurationUS converts any time.Duration to micro-seconds as float64
func DurationUS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000.0
}
