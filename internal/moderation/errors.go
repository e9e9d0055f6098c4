package moderation

import "errors"

// Sentinel errors for the moderation subsystem. Every one of them is
// recovered locally; none is allowed to abort a request.
var (
	// ErrClassifierUnavailable wraps oracle timeouts, errors and malformed
	// responses. The classifier fails open when it sees one.
	ErrClassifierUnavailable = errors.New("moderation: classifier unavailable")

	// ErrTransportUnavailable wraps a failed send, delete, ban or admin lookup.
	ErrTransportUnavailable = errors.New("moderation: transport unavailable")

	// ErrPersistenceUnavailable wraps a failed snapshot load or save.
	ErrPersistenceUnavailable = errors.New("moderation: persistence unavailable")

	// ErrBadCommandUsage is returned for a malformed admin command.
	ErrBadCommandUsage = errors.New("moderation: bad command usage")

	// ErrNotAuthorized is returned when a non-admin invokes an admin command.
	ErrNotAuthorized = errors.New("moderation: not authorized")
)
