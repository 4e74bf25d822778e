// Package tlog is the module's thin ambient-logging wrapper around
// github.com/op/go-logging, set up the way krypt.co/kr's logging.go
// configures its own logger: a stderr backend with a colorized format
// by default, and the level overridable through an environment
// variable (TOTEMBUS_LOG_LEVEL here, in place of kr's KR_LOG_LEVEL).
package tlog

import (
	"os"
	"sync"

	"github.com/op/go-logging"
)

var stderrFormat = logging.MustStringFormatter(
	`%{color}%{time:15:04:05.000} %{level:.4s} %{module} ▶%{color:reset} %{message}`,
)

var (
	once    sync.Once
	backend logging.LeveledBackend
)

func setup() {
	raw := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(raw, stderrFormat)
	leveled := logging.AddModuleLevel(formatted)
	level := logging.NOTICE
	switch os.Getenv("TOTEMBUS_LOG_LEVEL") {
	case "CRITICAL":
		level = logging.CRITICAL
	case "ERROR":
		level = logging.ERROR
	case "WARNING":
		level = logging.WARNING
	case "NOTICE":
		level = logging.NOTICE
	case "INFO":
		level = logging.INFO
	case "DEBUG":
		level = logging.DEBUG
	}
	leveled.SetLevel(level, "")
	logging.SetBackend(leveled)
	backend = leveled
}

// Get returns a module-scoped logger for module (e.g. "network",
// "ble"), lazily configuring the shared backend on first use.
func Get(module string) *logging.Logger {
	once.Do(setup)
	return logging.MustGetLogger(module)
}
