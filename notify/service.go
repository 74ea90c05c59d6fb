package notify

import (
	"context"

	"github.com/wholecell/pipekit/logger"
)

// Service is the notification surface exposed to pipeline jobs.
type Service interface {
	// PostMessage sends a text report to the configured channel.
	PostMessage(ctx context.Context, message string) error
	// UploadImage uploads an image file and posts a message linking it.
	// fileName may be empty, in which case the path's base name is used.
	UploadImage(ctx context.Context, message, filePath, fileName string) error
}

// New builds a notification service backed by Slack when a bot token is
// configured. Without a token a noop implementation is returned; its
// absence is a disabled variant, not an error.
func New(cfg Config) Service {
	cfg.ApplyDefaults()
	if cfg.BotToken == "" {
		return noopService{log: logger.WithComponent("notify")}
	}
	return newSlackService(cfg)
}

type noopService struct {
	log *logger.Logger
}

func (n noopService) PostMessage(_ context.Context, message string) error {
	n.log.Warn("slack report is disabled (bot token not set)", logger.Fields("message", message))
	return nil
}

func (n noopService) UploadImage(_ context.Context, message, filePath, _ string) error {
	n.log.Warn("slack report is disabled (bot token not set)", logger.Fields(
		"message", message,
		"file", filePath,
	))
	return nil
}
