package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Important info (session, counters)
	LevelLive    = 2 // Live info (cycle stages, motor runs, captures)
	LevelVerbose = 3 // Verbose (request/response details)
	LevelTrace   = 4 // Trace (GPIO, very low level)
)

var (
	level  int
	logger *log.Logger
)

// Init initializes the debug system with a level (0-4).
// 0 = no output
// 1 = important info (session lifecycle, counters)
// 2 = live info (cycle stages, captures, motor activations)
// 3 = verbose (payloads, probe attempts, timings)
// 4 = trace (GPIO, very low level)
func Init(debugLevel int) {
	level = debugLevel
	if level > LevelOff {
		logger = log.New(os.Stdout, "[sorter] ", log.LstdFlags|log.Lmicroseconds)
	}
}

// SetOutput redirects debug output (tests, multi-writers).
func SetOutput(w io.Writer) {
	if logger != nil {
		logger.SetOutput(w)
	}
}

// Level returns the current debug level.
func Level() int {
	return level
}

// IsEnabled returns true if debug level is >= the requested level.
func IsEnabled(minLevel int) bool {
	return level >= minLevel
}

// --- Level 1 functions (Info): important info ---

// Info prints a level 1 message (important info).
func Info(format string, args ...interface{}) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[INFO] "+format, args...)
	}
}

// Summary prints an important summary (level 1).
func Summary(title string) {
	if level >= LevelOff && logger != nil {
		logger.Printf("═══════════════════════════════════════")
		logger.Printf("  %s", title)
		logger.Printf("═══════════════════════════════════════")
	}
}

// Counts prints the session counters (level 1).
func Counts(canCount, plasticCount int) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[INFO] Counters: can=%d plastic=%d total=%d", canCount, plasticCount, canCount+plasticCount)
	}
}

// Value prints a named value in formatted form (level 1).
func Value(name string, value interface{}) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[INFO]   %s = %v", name, value)
	}
}

// --- Level 2 functions (Live): real-time info ---

// Live prints a level 2 message (live info).
func Live(format string, args ...interface{}) {
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] "+format, args...)
	}
}

// Stage prints a cycle stage transition (level 2).
func Stage(peripheral, stage string) {
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] Cycle %s: %s", peripheral, stage)
	}
}

// Motor prints a motor activation (level 2).
func Motor(label string, channel int, d time.Duration) {
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] Motor %s: channel %d for %v", label, channel, d)
	}
}

// Capture prints a completed capture (level 2).
func Capture(source string, width, height, size int) {
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] Capture from %s: %dx%d (%d bytes)", source, width, height, size)
	}
}

// Prediction prints a classification outcome (level 2).
func Prediction(label string, confidence float64) {
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] Prediction: %s (%.2f%%)", label, confidence)
	}
}

// --- Level 3 functions (Verbose): everything ---

// Verbose prints a level 3 message (verbose).
func Verbose(format string, args ...interface{}) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] "+format, args...)
	}
}

// Printf is an alias for Verbose for compatibility.
func Printf(format string, args ...interface{}) {
	Verbose(format, args...)
}

// PrintStruct prints a struct in formatted form (level 3).
func PrintStruct(name string, v interface{}) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] %s: %+v", name, v)
	}
}

// Section prints a section separator (level 3).
func Section(name string) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		logger.Printf("  %s", name)
		logger.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	}
}

// Step prints a numbered step (level 3).
func Step(num int, description string) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] Step %d: %s", num, description)
	}
}

// Probe prints a camera device probe attempt (level 3).
func Probe(device string, ok bool) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] Probing camera device %s: ok=%v", device, ok)
	}
}

// --- Level 4 functions (Trace): very low level ---

// Trace prints a level 4 message (trace, GPIO).
func Trace(format string, args ...interface{}) {
	if level >= LevelTrace && logger != nil {
		logger.Printf("[TRACE] "+format, args...)
	}
}

// GPIO prints a GPIO operation (level 4).
func GPIO(operation string, pin int, value interface{}) {
	if level >= LevelTrace && logger != nil {
		logger.Printf("[GPIO] %s pin=%d value=%v", operation, pin, value)
	}
}

// --- General functions ---

// Error prints a debug error (level 1+).
func Error(err error) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[ERROR] %v", err)
	}
}

// Fmt is a helper function that returns a formatted string
// only if debug is enabled (to avoid unnecessary allocations).
func Fmt(format string, args ...interface{}) string {
	if level > 0 {
		return fmt.Sprintf(format, args...)
	}
	return ""
}
