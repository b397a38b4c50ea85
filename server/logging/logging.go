package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/marcopiovanello/trackdl/server/config"

	"gopkg.in/natefinch/lumberjack.v2"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the process logger. Records go to stdout and, when file logging
// is enabled, to a size-rotated file. The returned closer flushes the file.
func New(conf config.LoggingConfig, stdout io.Writer) (*slog.Logger, io.Closer) {
	writers := []io.Writer{stdout}

	var closer io.Closer = nopCloser{}

	if conf.EnableFileLogging {
		file := &lumberjack.Logger{
			Filename:   conf.LogPath,
			MaxSize:    conf.MaxSizeMB,
			MaxBackups: conf.MaxBackups,
			Compress:   true,
		}
		writers = append(writers, file)
		closer = file
	}

	logger := slog.New(slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: ParseLevel(conf.Level),
	}))

	return logger, closer
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard is a logger that drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
