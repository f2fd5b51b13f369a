// Package config loads FlowScope's CLI/server configuration: default
// dialect, default search path, schema file location, and lint rule
// toggles. It is pure plumbing — nothing here touches lineage analysis
// directly — grounded on steveyegge-beads's cmd/bd/config.go
// (viper.New per config file, YAML as the on-disk format) and its
// internal/config/yaml_config.go (a fixed set of keys that only ever
// come from the file, never a runtime store), generalized to a single
// config.yaml instead of a split file/SQLite arrangement since
// FlowScope keeps no database of its own.
package config

import (
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/pondpilot/flowscope/model"
)

var log = logrus.WithField("system", "config")

// Config is the resolved settings FlowScope's CLI consults before
// building a model.AnalyzeRequest. Every field has a viper-backed
// default, so a missing or absent config.yaml is never an error.
type Config struct {
	// Dialect is the default model.Dialect used when a CLI invocation
	// doesn't pass --dialect.
	Dialect model.Dialect
	// AllowImplied mirrors model.SchemaMetadata.AllowImplied when no
	// --schema file is supplied.
	AllowImplied bool
	// CaseSensitivity mirrors model.SchemaMetadata.CaseSensitivity.
	CaseSensitivity model.CaseSensitivity
	// ColumnLineage, FilterCTEs, IncludeGlobalLineage seed
	// model.AnalyzeOptions when the corresponding flag isn't set.
	ColumnLineage        bool
	FilterCTEs           bool
	IncludeGlobalLineage bool
	// LintEnabled and DisabledLintRules seed lint.Config.
	LintEnabled       bool
	DisabledLintRules []string
}

// yamlOnlyKeys are settings read only from config.yaml, never
// overridden by environment variables — they govern how FlowScope
// itself boots (which dialect, whether lint runs at all) rather than
// per-invocation behavior, matching yaml_config.go's rationale for
// keeping certain keys out of its env/flag precedence chain.
var yamlOnlyKeys = map[string]bool{
	"dialect": true,
	"lint.enabled": true,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dialect", string(model.DialectGeneric))
	v.SetDefault("schema.allowImplied", false)
	v.SetDefault("schema.caseSensitivity", string(model.CaseFoldIfUnquoted))
	v.SetDefault("options.columnLineage", true)
	v.SetDefault("options.filterCTEs", false)
	v.SetDefault("options.includeGlobalLineage", true)
	v.SetDefault("lint.enabled", true)
	v.SetDefault("lint.disabledRules", []string{})
}

// Loader owns one viper instance bound to one config file, plus a
// thread-safe cached Config snapshot kept current by Watch.
type Loader struct {
	v  *viper.Viper
	mu sync.RWMutex
	cx Config
}

// Load reads configPath (YAML) into a fresh Loader. A missing file is
// not an error — FlowScope runs on its defaults exactly as steveyegge-
// beads's validateSyncConfig tolerates an absent config.yaml.
func Load(configPath string) (*Loader, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("flowscope")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrapf(err, "reading config file %s", configPath)
		}
		log.WithField("path", configPath).Debug("no config file found, using defaults")
	}

	l := &Loader{v: v}
	l.cx = l.snapshot()
	return l, nil
}

func (l *Loader) snapshot() Config {
	return Config{
		Dialect:              model.Dialect(l.v.GetString("dialect")),
		AllowImplied:         l.v.GetBool("schema.allowImplied"),
		CaseSensitivity:      model.CaseSensitivity(l.v.GetString("schema.caseSensitivity")),
		ColumnLineage:        l.v.GetBool("options.columnLineage"),
		FilterCTEs:           l.v.GetBool("options.filterCTEs"),
		IncludeGlobalLineage: l.v.GetBool("options.includeGlobalLineage"),
		LintEnabled:          l.v.GetBool("lint.enabled"),
		DisabledLintRules:    l.v.GetStringSlice("lint.disabledRules"),
	}
}

// Current returns the most recently loaded (or reloaded) Config.
func (l *Loader) Current() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cx
}

// IsYamlOnlyKey reports whether key may only be set via the config
// file, never an environment variable — mirrored from yaml_config.go's
// IsYamlOnlyKey, minus the SQLite-vs-YAML distinction FlowScope has no
// use for.
func IsYamlOnlyKey(key string) bool {
	return yamlOnlyKeys[strings.ToLower(key)]
}

// Watch starts an fsnotify watch on the backing config file and
// refreshes the cached Config on every write, the same debounce-free
// "re-read on Write event" approach steveyegge-beads's list.go and
// show_display.go use for their own directory watches. It returns
// immediately; the watch runs until the process exits or the returned
// stop function is called.
func (l *Loader) Watch() (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating config watcher")
	}

	path := l.v.ConfigFileUsed()
	if path == "" {
		_ = watcher.Close()
		return func() {}, nil
	}

	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return nil, errors.Wrapf(err, "watching config file %s", path)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) {
					if err := l.v.ReadInConfig(); err != nil {
						log.WithField("path", path).WithError(err).Warn("failed to reload config")
						continue
					}
					l.mu.Lock()
					l.cx = l.snapshot()
					l.mu.Unlock()
					log.WithField("path", path).Info("reloaded config")
				}
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(werr).Warn("config watcher error")
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		_ = watcher.Close()
	}, nil
}
