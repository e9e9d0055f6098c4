package bot

import "errors"

var (
	// ErrMissingDependency is returned by New when a required collaborator
	// is nil.
	ErrMissingDependency = errors.New("bot: missing dependency")

	// ErrInvalidConfig wraps every bot configuration problem.
	ErrInvalidConfig = errors.New("bot: invalid config")

	// ErrReplyFailed wraps a failed outbound send. Moderation side effects
	// never surface it; only the bot's own replies do.
	ErrReplyFailed = errors.New("bot: reply failed")
)
