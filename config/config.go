// Package config reads the controller's goconf INI file and watches it for
// changes, grounded on cherry's cherryd/config.go (goconf parsing) and
// cmd/walnut/main.go's fsnotify-based hot-reload (there built on viper's
// WatchConfig; ported here directly onto fsnotify since this module does
// not carry viper).
package config

import (
	"strings"

	"github.com/dlintw/goconf"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/ofcored/controller/log"
)

var logger = log.Get("config")

// UpdateMode selects which updater SwitchUp/app-driven policy changes use.
type UpdateMode int

const (
	// BestEffort installs with no barrier (spec.md §4.5).
	BestEffort UpdateMode = iota
	// Consistent runs the full two-phase protocol (spec.md §4.6).
	Consistent
)

// Config holds the southbound listener and update settings read from the
// [default] section of the config file, plus the raw goconf handle so
// callers needing something this package does not surface (e.g. a future
// app-specific section) can still reach it, matching cherryd/config.go's
// RawConfig.
type Config struct {
	raw *goconf.ConfigFile

	Port           int
	Backlog        int
	UpdateMode     UpdateMode
	BarrierTimeout int
	LogLevel       string
}

// defaults mirror cherry's own conservative defaults (OFPT default port,
// a modest backlog) where the file leaves a key unset.
const (
	defaultPort           = 6633
	defaultBacklog        = 64
	defaultBarrierTimeout = 15
	defaultLogLevel       = "info"
)

// Load reads path as a goconf INI file and validates the southbound
// settings, matching cherryd/config.go's Read/readDefaultConfig shape.
func Load(path string) (*Config, error) {
	raw, err := goconf.ReadConfigFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: reading %v", path)
	}

	c := &Config{raw: raw}
	if err := c.readDefault(raw); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) readDefault(raw *goconf.ConfigFile) error {
	port, err := raw.GetInt("default", "port")
	if err != nil || port <= 0 || port > 0xFFFF {
		port = defaultPort
	}
	c.Port = port

	backlog, err := raw.GetInt("default", "backlog")
	if err != nil || backlog <= 0 {
		backlog = defaultBacklog
	}
	c.Backlog = backlog

	mode, err := raw.GetString("default", "update_mode")
	if err != nil {
		mode = "consistent"
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "best_effort", "besteffort":
		c.UpdateMode = BestEffort
	case "consistent", "":
		c.UpdateMode = Consistent
	default:
		return errors.Errorf("config: unrecognized update_mode %q", mode)
	}

	timeout, err := raw.GetInt("default", "barrier_timeout")
	if err != nil || timeout <= 0 {
		timeout = defaultBarrierTimeout
	}
	c.BarrierTimeout = timeout

	level, err := raw.GetString("default", "log_level")
	if err != nil || level == "" {
		level = defaultLogLevel
	}
	c.LogLevel = level

	return nil
}

// RawConfig exposes the underlying goconf handle, for callers that need a
// setting this package does not name.
func (c *Config) RawConfig() *goconf.ConfigFile {
	return c.raw
}

// WatchLogLevel watches path for writes and re-applies the file's log level
// whenever it changes, matching cmd/walnut/main.go's viper.OnConfigChange
// pattern ("Ignore all the fsnotify operations except WRITE to avoid reading
// empty config"). It runs until the returned watcher is closed or the
// caller's process exits; callers typically never close it.
func WatchLogLevel(path string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "config: creating fsnotify watcher")
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, errors.Wrapf(err, "config: watching %v", path)
	}

	go func() {
		for event := range watcher.Events {
			if event.Op != fsnotify.Write {
				continue
			}
			logger.Infof("config file changed: %v", event.Name)

			c, err := Load(path)
			if err != nil {
				logger.Errorf("config: reload after change failed: %v", err)
				continue
			}
			log.SetLevel(log.ParseLevel(c.LogLevel))
		}
	}()

	return watcher, nil
}
