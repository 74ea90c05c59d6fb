package config

import (
	"fmt"
	"time"

	"github.com/wholecell/pipekit/logger"
	"github.com/wholecell/pipekit/notify"
	"github.com/wholecell/pipekit/prefetch"
	"github.com/wholecell/pipekit/registry"
	"github.com/wholecell/pipekit/validation"
)

// RunConfig is the top-level configuration for a pipeline job.
// Jobs extend it by embedding it in their own config structs.
//
// Example:
//
//	type JobConfig struct {
//	    config.RunConfig `yaml:",inline" mapstructure:",squash"`
//	    OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
//	}
type RunConfig struct {
	Name        string         `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string         `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string         `yaml:"version" mapstructure:"version"`
	Debug       bool           `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config  `yaml:"logging" mapstructure:"logging"`
	Notify      notify.Config  `yaml:"notify" mapstructure:"notify"`
	Prefetch    PrefetchConfig `yaml:"prefetch" mapstructure:"prefetch"`
	// Components maps names to buildable target descriptions, resolved
	// through a registry at job start.
	Components map[string]registry.Target `yaml:"components" mapstructure:"components"`
}

// PrefetchConfig holds the file-configurable subset of prefetch.Options.
type PrefetchConfig struct {
	Workers        int    `yaml:"workers" mapstructure:"workers" validate:"gte=0"`
	Mode           string `yaml:"mode" mapstructure:"mode" validate:"omitempty,oneof=goroutine subprocess"`
	Split          string `yaml:"split" mapstructure:"split" validate:"omitempty,oneof=even stride"`
	QueueSize      int    `yaml:"queue_size" mapstructure:"queue_size" validate:"gte=0"`
	WaitTimeoutSec int    `yaml:"wait_timeout_sec" mapstructure:"wait_timeout_sec" validate:"gte=0"`
	Task           string `yaml:"task" mapstructure:"task"`
}

// ToOptions converts the file representation into prefetch options.
// Zero values fall through to the prefetch defaults.
func (c *PrefetchConfig) ToOptions() prefetch.Options {
	return prefetch.Options{
		Workers:     c.Workers,
		Mode:        prefetch.Mode(c.Mode),
		Split:       prefetch.SplitKind(c.Split),
		QueueSize:   c.QueueSize,
		WaitTimeout: time.Duration(c.WaitTimeoutSec) * time.Second,
		Task:        c.Task,
	}
}

// ApplyDefaults applies default values to the configuration.
// Override this in embedding structs and call c.RunConfig.ApplyDefaults() first.
func (c *RunConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	c.Logging.ApplyDefaults()
	c.Notify.ApplyDefaults()
}

// Validate validates the configuration fields.
// Override this in embedding structs and call c.RunConfig.Validate() first.
func (c *RunConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if c.Prefetch.Mode == string(prefetch.ModeSubprocess) && c.Prefetch.Task == "" {
		return fmt.Errorf("config.prefetch: subprocess mode requires a task name")
	}
	return nil
}
