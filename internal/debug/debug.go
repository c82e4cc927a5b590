package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	enabled     = os.Getenv("SPACEFERRY_DEBUG") != ""
	verboseMode = false
	quietMode   = false
	logMutex    sync.Mutex
)

func Enabled() bool {
	return enabled || verboseMode
}

// SetVerbose enables verbose/debug output
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// SetQuiet enables quiet mode (suppress non-essential output)
func SetQuiet(quiet bool) {
	quietMode = quiet
}

// IsQuiet returns true if quiet mode is enabled
func IsQuiet() bool {
	return quietMode
}

func Logf(format string, args ...interface{}) {
	if enabled || verboseMode {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// PrintNormal prints output unless quiet mode is enabled
// Use this for normal informational output that should be suppressed in quiet mode
func PrintNormal(format string, args ...interface{}) {
	if !quietMode {
		fmt.Printf(format, args...)
	}
}

// PrintlnNormal prints a line unless quiet mode is enabled
func PrintlnNormal(args ...interface{}) {
	if !quietMode {
		fmt.Println(args...)
	}
}

// LogEvent appends a migration event to <dir>/events.log.
// Format: TIMESTAMP|EVENT_CODE|BATCH_ID|DETAILS
// Events survive process interruption, so the log doubles as an audit
// trail when reconstructing what a halted run did.
func LogEvent(dir, eventCode, batchID, details string) {
	if dir == "" {
		return
	}
	if batchID == "" {
		batchID = "none"
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)
	entry := fmt.Sprintf("%s|%s|%s|%s\n", timestamp, eventCode, batchID, details)

	logMutex.Lock()
	defer logMutex.Unlock()

	logPath := filepath.Join(dir, "events.log")
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) // #nosec G302 G304
	if err != nil {
		// Silent fail - don't interrupt the migration if logging fails
		return
	}
	defer file.Close()

	file.WriteString(entry)
}
