// Package logging configures the shared structured logger.
package logging

// #region imports
import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// #endregion

// New builds the process logger at the given level. Unknown level strings
// fall back to info rather than failing startup.
func New(level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
	})
}

// Nop returns a logger that discards everything. Used in tests and tools
// that want a quiet pipeline.
func Nop() *log.Logger {
	logger := log.New(io.Discard)
	logger.SetLevel(log.FatalLevel + 1)
	return logger
}
