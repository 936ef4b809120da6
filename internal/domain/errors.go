package domain

import "errors"

// Validation errors are returned synchronously to the calling actor and
// never retried. The HTTP adapter maps them to actionable messages.
var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrAgentNotFound          = errors.New("delivery agent not found")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrTerminalState          = errors.New("order already delivered or cancelled")
	ErrNoAgentAvailable       = errors.New("no delivery agents available")
	ErrAgentUnavailable       = errors.New("delivery agent is not available")
	ErrReassignmentNotAllowed = errors.New("reassignment not allowed after pickup")
)
