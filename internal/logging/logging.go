// Package logging configures the process logger. The reader view owns the
// terminal, so log output goes to a file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
)

// FileName is the log file created in the user's log directory.
const FileName = "readalong.log"

// Path returns the default log file location.
func Path() (string, error) {
	p, err := gap.NewScope(gap.User, "readalong").LogPath(FileName)
	if err != nil {
		return "", fmt.Errorf("could not find log directory: %w", err)
	}
	return p, nil
}

// Setup sends the default logger to file, or to the default location when
// file is empty. Debug enables debug level and caller reporting. The
// returned function closes the file.
func Setup(file string, debug bool) (func() error, error) {
	log.SetOutput(io.Discard)

	if file == "" {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		file = p
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil { //nolint:gosec
		return nil, fmt.Errorf("unable to create log directory: %w", err)
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("unable to open log file: %w", err)
	}

	log.SetOutput(f)
	log.SetReportTimestamp(true)
	log.SetTimeFormat(time.DateTime)
	if debug {
		log.SetLevel(log.DebugLevel)
		log.SetReportCaller(true)
	} else {
		log.SetLevel(log.InfoLevel)
		log.SetReportCaller(false)
	}

	log.Debug("Logging initialized", "path", file, "level", log.GetLevel())
	return f.Close, nil
}

// For returns a component logger sharing the default logger's output.
func For(component string) *log.Logger {
	return log.Default().WithPrefix(component)
}
