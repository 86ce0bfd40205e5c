package logging

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

type Options struct {
	Level string
	JSON  bool
	// Output defaults to stderr.
	Output io.Writer
}

var def atomic.Value

func init() {
	cfg := &slog.HandlerOptions{Level: slog.LevelInfo}
	h := slog.NewTextHandler(os.Stderr, cfg)
	def.Store(slog.New(h))
}

func Configure(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	cfg := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(out, cfg)
	} else {
		h = slog.NewTextHandler(out, cfg)
	}
	def.Store(slog.New(h))
}

// ParseLevel maps a level name to slog; unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func L() *slog.Logger {
	l, _ := def.Load().(*slog.Logger)
	return l
}

// Component returns the default logger tagged with a component name.
func Component(name string) *slog.Logger {
	return L().With("component", name)
}

// FromEnv reads PULSEFUT_LOG_LEVEL and PULSEFUT_LOG_JSON on top of base.
func FromEnv(base Options) Options {
	if lvl := strings.TrimSpace(os.Getenv("PULSEFUT_LOG_LEVEL")); lvl != "" {
		base.Level = lvl
	}
	if b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv("PULSEFUT_LOG_JSON"))); err == nil {
		base.JSON = b
	}
	return base
}

func InitFromEnv() {
	Configure(FromEnv(Options{}))
}
