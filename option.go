package dbfixture

import (
	"log/slog"
)

type Options struct {
	Debug       bool
	Logger      *slog.Logger
	Concurrency int
}

type Option func(o *Options)

func InitOptions() *Options {
	return &Options{
		Logger: slog.Default(),
	}
}

// Debug turns on verbose logging of the underlying database driver.
func Debug() Option {
	return func(o *Options) {
		o.Debug = true
	}
}

func Logger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// Concurrency caps the number of in-flight delete calls of a Truncate.
// n <= 0 launches all of them at once, which is the default.
func Concurrency(n int) Option {
	return func(o *Options) {
		o.Concurrency = n
	}
}
