// Package testlog bootstraps the global logger for tests that exercise
// package code (rather than pure table-driven unit tests) so their output
// is legible when a test fails.
package testlog

import (
	"testing"

	"github.com/danmuck/faceguard/internal/logging"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	logging.Logger().Info().Str("test", t.Name()).Msg("test start")
}
