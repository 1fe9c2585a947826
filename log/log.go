// Package log provides the leveled logging backend shared by every core
// package. Packages obtain their own tagged logger with Get and never talk
// to github.com/op/go-logging directly, so the backend can be swapped or
// redirected from a single place at start-up.
package log

import (
	"os"

	"github.com/op/go-logging"
)

var (
	backend logging.LeveledBackend
)

func init() {
	base := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(base, logging.MustStringFormatter(
		`%{time:2006-01-02T15:04:05.000Z07:00} %{level:.4s} [%{module}] %{message}`,
	))
	backend = logging.AddModuleLevel(formatted)
	backend.SetLevel(logging.INFO, "")
	logging.SetBackend(backend)
}

// Get returns the logger for tag, creating it if necessary. Core packages
// call this once at package init with their own tag, e.g. "controller" or
// "update", matching spec.md's "structured, tagged by (openflow, controller)
// and sibling tags" requirement.
func Get(tag string) *logging.Logger {
	return logging.MustGetLogger(tag)
}

// SetLevel adjusts the level for every tag at once. Used by the config
// hot-reload path (config.WatchLogLevel) when the log_level setting changes.
func SetLevel(level logging.Level) {
	backend.SetLevel(level, "")
}

// ParseLevel maps the goconf string values accepted by default.log_level
// to a logging.Level, defaulting to Info on an unrecognized value.
func ParseLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.DEBUG
	case "info":
		return logging.INFO
	case "notice":
		return logging.NOTICE
	case "warning":
		return logging.WARNING
	case "error":
		return logging.ERROR
	default:
		return logging.INFO
	}
}
