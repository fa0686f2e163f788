package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

type Options struct {
	Verbosity string
	// Writer defaults to stderr.
	Writer io.Writer
}

func Level(verbosity string) slog.Level {
	switch verbosity {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup installs a tint handler as the default slog logger and returns it.
func Setup(o Options) *slog.Logger {
	level := Level(o.Verbosity)
	var w io.Writer = os.Stderr
	if o.Writer != nil {
		w = o.Writer
	}
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	logger := slog.New(
		tint.NewHandler(w, &tint.Options{
			NoColor:   noColor,
			Level:     level,
			AddSource: level < 0, //only for debugging
		}),
	)
	slog.SetDefault(logger)
	return logger
}
