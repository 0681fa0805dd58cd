package logger

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// New returns stderr logger. Level comes from level, then LOG_LEVEL, then info.
// Terminal gets text output, pipes get JSON.
func New(level string) *slog.Logger {
	return newWithWriter(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), level)
}

func newWithWriter(w io.Writer, tty bool, level string) *slog.Logger {
	lvl := slog.LevelInfo
	for _, src := range []string{os.Getenv("LOG_LEVEL"), level} {
		if src == "" {
			continue
		}
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(src)); err == nil {
			lvl = parsed
		}
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	if tty {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}
