// Package logging configures the zerolog logger shared by the server, the
// CLI and the event consumer.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Field names used across packages.
const (
	COMPONENT = "component"
	WEDDING   = "wedding_id"
	USER      = "user_id"
	GUEST     = "guest_id"
	CHART     = "chart_id"
	EVENT     = "event"
	CODE      = "code"
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// New returns a logger writing to stdout. dev and test environments get the
// console writer; anything else emits JSON lines. Unknown levels fall back
// to info.
func New(level, env string) zerolog.Logger {
	return NewWithWriter(os.Stdout, level, env)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level, env string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	out := w
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	logger := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return logger
}

// SetGlobal installs l as the package-level logger used by zerolog/log.
func SetGlobal(l zerolog.Logger) {
	log.Logger = l
	zerolog.DefaultContextLogger = &log.Logger
}

// Component returns a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str(COMPONENT, name).Logger()
}
