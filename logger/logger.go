package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a text logger writing to stdout, or appending to the file at
// path when path is set. The returned closer releases the file.
func New(path, level string) (*slog.Logger, io.Closer, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	var out io.WriteCloser = nopCloser{os.Stdout}
	if len(path) > 0 {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0666)
		if err != nil {
			return nil, nil, err
		}
		out = f
	}

	l := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl})).With("module", "vmos")
	if len(path) > 0 {
		l.Info("initializing log", "file", path)
	}
	return l, out, nil
}

// ParseLevel maps debug, info, warn and error to a slog level.
// An empty name is info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
