package notify

import "time"

// DefaultChannel is where reports land when no channel is configured.
const DefaultChannel = "#proj-wholecellmodeling"

// Config contains notification configuration.
type Config struct {
	// BotToken authenticates against the Slack Web API. Empty disables
	// notifications.
	BotToken string `yaml:"bot_token" mapstructure:"bot_token"`
	// Channel receives the messages.
	Channel string `yaml:"channel" mapstructure:"channel"`
	// BaseURL overrides the Slack API endpoint. Used in tests.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// RequestTimeout bounds each API call, in seconds.
	RequestTimeout int `yaml:"request_timeout" mapstructure:"request_timeout"`
	// MaxAttempts is how often a failed delivery is retried.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// ApplyDefaults applies default values to notification configuration.
func (c *Config) ApplyDefaults() {
	if c.Channel == "" {
		c.Channel = DefaultChannel
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://slack.com/api"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
}

func (c *Config) timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}
