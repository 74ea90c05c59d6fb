// Package notify delivers pipeline progress reports to Slack.
//
// The service is an explicitly constructed object, not process-wide state:
// New returns a Slack-backed implementation when a bot token is configured
// and gracefully degrades to a no-op that logs and drops messages when it
// is not. Long-running sampling and evaluation jobs call it at milestones
// (run started, metrics computed, failure) without caring which variant
// they hold.
package notify
