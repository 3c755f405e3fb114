package chathub

import "errors"

// Requester-facing errors, grouped by taxonomy class. Every operation either
// completes or fails with one of these, leaving the registries untouched
// (validation, state-conflict, not-found) or in their prior state (upstream).
var (
	// Validation
	ErrEmptyUserID = errors.New("empty user id")
	ErrBadEvent    = errors.New("malformed event")

	// State conflict
	ErrNotRegistered = errors.New("not registered")
	ErrAlreadyInChat = errors.New("already in chat")
	ErrAlreadyPaired = errors.New("already paired")
	ErrBanned        = errors.New("user is banned")

	// Not found
	ErrNoEligibleCandidates = errors.New("no eligible candidates")
	ErrRecipientNotFound    = errors.New("recipient not found")

	// Upstream
	ErrDirectoryUnavailable = errors.New("directory unavailable")
)
