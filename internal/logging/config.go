// Package logging configures the process-wide zerolog logger used for every
// operator-facing diagnostic that is not one of the wire-exact lines fixed
// by the protocol (the SIGHUP report and the port announcement, which are
// written directly to stderr by their own packages).
package logging

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel   = "FACEGUARD_LOG_LEVEL"
	EnvLogNoColor = "FACEGUARD_LOG_NOCOLOR"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

var configureOnce sync.Once

func ConfigureRuntime() {
	Configure(ProfileRuntime, "")
}

func ConfigureTests() {
	Configure(ProfileTest, "")
}

// Configure sets up the global zerolog logger once per process. levelOverride,
// when non-empty, wins over the environment variable, which in turn wins
// over the profile default.
func Configure(profile Profile, levelOverride string) {
	configureOnce.Do(func() {
		level := defaultLevel(profile)
		if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
			level = lvl
		}
		if lvl, ok := parseLevel(levelOverride); ok {
			level = lvl
		}
		noColor := profile == ProfileTest
		if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
			noColor = v
		}
		writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339, NoColor: noColor}
		zerolog.SetGlobalLevel(level)
		zerolog.DefaultContextLogger = &log
		log = zerolog.New(writer).With().Timestamp().Logger()
	})
}

var log zerolog.Logger = zerolog.New(os.Stderr)

// Logger returns the configured global logger. Configure must have been
// called first; otherwise it falls back to an unconfigured stderr logger.
func Logger() *zerolog.Logger {
	return &log
}

func defaultLevel(profile Profile) zerolog.Level {
	if profile == ProfileTest {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}
