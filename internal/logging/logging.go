// Package logging builds the application's hclog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
)

// New returns a logger named sessionctl that writes to path, or to stderr
// when path is empty. The returned closer releases the log file.
func New(path, level string) (hclog.Logger, io.Closer, error) {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		return nil, nil, fmt.Errorf("unknown log level %q", level)
	}

	var out io.WriteCloser = nopCloser{os.Stderr}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		out = f
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "sessionctl",
		Level:  lvl,
		Output: out,
	})
	return logger, out, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
