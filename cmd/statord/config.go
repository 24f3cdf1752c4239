package main

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	yaml "go.yaml.in/yaml/v2"
)

// Config holds statord run's user-visible configuration, bindable either
// from flags or from an optional YAML file loaded via --config. Flags take
// precedence over file values because LoadFile runs after Parse and fills
// only fields still at their zero value; a flag explicitly set to its zero
// value therefore counts as unset.
type Config struct {
	Concurrency  int           `yaml:"concurrency"`
	TaskDeadline time.Duration `yaml:"task_deadline"`
	LivenessFile string        `yaml:"liveness_file"`
	RunFor       time.Duration `yaml:"run_for"`
	Exclude      []string      `yaml:"exclude"`
	ConfigFile   string        `yaml:"-"`

	// Labels holds the positional model-label arguments. When non-empty,
	// the run is restricted to just these labels, independent of Exclude.
	// It comes from flags.Args() after Parse, not from YAML.
	Labels []string `yaml:"-"`
}

// Bind registers statord run's flags against c, following the retrieved
// cdc-sink server config's Bind(flags *pflag.FlagSet) convention.
//
// Flag defaults are left at the zero value rather than the documented
// defaults (10, 15s, ...): ApplyDefaults fills whatever is still zero
// after flags and an optional --config file have both been applied, so the
// precedence is flag > config file > hardcoded default.
func (c *Config) Bind(flags *pflag.FlagSet) {
	flags.IntVarP(&c.Concurrency, "concurrency", "c", 0, "size of the worker pool (default 10)")
	flags.DurationVar(&c.TaskDeadline, "task-deadline", 0,
		"wall-clock budget per task; also the lock period passed to get_ready (default 15s)")
	flags.StringVar(&c.LivenessFile, "liveness-file", "", "path touched on every watchdog tick")
	flags.DurationVarP(&c.RunFor, "run-for", "r", 0, "total wall-clock time before graceful shutdown; 0 = indefinite")
	flags.StringArrayVarP(&c.Exclude, "exclude", "x", nil, "model label to skip (repeatable)")
	flags.StringVar(&c.ConfigFile, "config", "", "optional YAML file of defaults, overridden by any flag also set")
}

// BindArgs fills Labels from flags.Args(), the positional arguments left
// after Parse has consumed the flags. Called separately from Bind since
// positional arguments aren't available until after Parse runs.
func (c *Config) BindArgs(flags *pflag.FlagSet) {
	c.Labels = flags.Args()
}

// ApplyDefaults fills any field still at its zero value with the
// documented default for a single-process deployment.
func (c *Config) ApplyDefaults() {
	if c.Concurrency == 0 {
		c.Concurrency = 10
	}
	if c.TaskDeadline == 0 {
		c.TaskDeadline = 15 * time.Second
	}
}

// LoadFile merges YAML defaults from c.ConfigFile into c for any field the
// caller didn't already set via flags. It is a no-op if ConfigFile is
// empty.
func (c *Config) LoadFile() error {
	if c.ConfigFile == "" {
		return nil
	}
	data, err := os.ReadFile(c.ConfigFile)
	if err != nil {
		return errors.Wrap(err, "config: read file")
	}
	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return errors.Wrap(err, "config: parse yaml")
	}
	c.mergeDefaults(fileCfg)
	return nil
}

// mergeDefaults fills zero-valued fields of c from file, leaving anything
// already set (by a flag) untouched.
func (c *Config) mergeDefaults(file Config) {
	if c.Concurrency == 0 {
		c.Concurrency = file.Concurrency
	}
	if c.TaskDeadline == 0 {
		c.TaskDeadline = file.TaskDeadline
	}
	if c.LivenessFile == "" {
		c.LivenessFile = file.LivenessFile
	}
	if c.RunFor == 0 {
		c.RunFor = file.RunFor
	}
	if len(c.Exclude) == 0 {
		c.Exclude = file.Exclude
	}
}
