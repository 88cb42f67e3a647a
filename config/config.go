// Package config loads katcpd's YAML configuration, grounded on the
// same koanf-driven layering the rest of the pack uses: struct
// defaults, then an optional file overlay, with live-reload on file
// change via fsnotify (through koanf's file provider).
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
)

// SensorSpec declares one statically-configured sensor: katcpd builds
// its initial sensor set from these at startup, separately from any
// sensors a device driver registers programmatically.
type SensorSpec struct {
	Name        string `koanf:"name"`
	Description string `koanf:"description"`
	Units       string `koanf:"units"`
	Type        string `koanf:"type"`
}

// Config is katcpd's full runtime configuration.
type Config struct {
	// ListenAddr is the host:port the server binds to.
	ListenAddr string `koanf:"listen_addr"`

	// LibraryName/LibraryVersion/DeviceVersion/BuildState populate the
	// #version-connect greeting and ?version-list.
	LibraryName    string `koanf:"library_name"`
	LibraryVersion string `koanf:"library_version"`
	DeviceVersion  string `koanf:"device_version"`
	BuildState     string `koanf:"build_state"`

	// ShutdownTimeoutSeconds bounds, in seconds, how long Halt waits for
	// in-flight replies to drain before forcing connections closed.
	ShutdownTimeoutSeconds int `koanf:"shutdown_timeout_seconds"`

	// LogLevel is a logrus level name: "debug", "info", "warn", "error".
	LogLevel string `koanf:"log_level"`

	// Sensors statically provisions the initial sensor set.
	Sensors []SensorSpec `koanf:"sensors"`
}

// Default returns the configuration used when no file overlay is
// present, mirroring the struct-then-file layering the pack's koanf
// users apply.
func Default() Config {
	return Config{
		ListenAddr:             ":7147",
		LibraryName:            "katcpd",
		LibraryVersion:         "1.0",
		DeviceVersion:          "1.0",
		BuildState:             "dev",
		ShutdownTimeoutSeconds: 5,
		LogLevel:               "info",
	}
}

// Load builds a koanf instance seeded with Default(), then overlays
// path if it exists. A missing file is not an error: the defaults
// stand alone, matching the pack's "no need to do this unless you
// want to start from the prepopulated defaults" convention.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("loading config defaults: %w", err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !strings.Contains(err.Error(), "no such file") {
			return Config{}, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}
	var c Config
	if err := k.Unmarshal("", &c); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	return c, nil
}

// Watcher reloads a Config whenever its backing file changes on disk,
// invoking onChange with the newly parsed Config. The koanf file
// provider's Watch method drives this with fsnotify underneath.
type Watcher struct {
	path     string
	k        *koanf.Koanf
	provider *file.File
}

// NewWatcher opens path for live-reload. Call Start to begin watching.
func NewWatcher(path string) (*Watcher, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading config defaults: %w", err)
	}
	provider := file.Provider(path)
	if err := k.Load(provider, yaml.Parser()); err != nil {
		if !strings.Contains(err.Error(), "no such file") {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}
	return &Watcher{path: path, k: k, provider: provider}, nil
}

// Current unmarshals the watcher's present state into a Config.
func (w *Watcher) Current() (Config, error) {
	var c Config
	if err := w.k.Unmarshal("", &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Start begins watching the backing file for changes, invoking
// onChange (with the reloaded Config) after each one. onError receives
// any error surfaced by the watch callback itself, including reload
// failures. Start returns immediately; watching continues until the
// process exits; this package offers no way to stop it.
func (w *Watcher) Start(onChange func(Config), onError func(error)) error {
	return w.provider.Watch(func(event interface{}, err error) {
		if err != nil {
			onError(err)
			return
		}
		fresh := koanf.New(".")
		if loadErr := fresh.Load(structs.Provider(Default(), "koanf"), nil); loadErr != nil {
			onError(loadErr)
			return
		}
		if loadErr := fresh.Load(file.Provider(w.path), yaml.Parser()); loadErr != nil {
			onError(loadErr)
			return
		}
		w.k = fresh
		cfg, unmarshalErr := w.Current()
		if unmarshalErr != nil {
			onError(unmarshalErr)
			return
		}
		onChange(cfg)
	})
}
