package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrLockHeld      = errors.New("lock already held")
	ErrInvariant     = errors.New("value invariant violated")

	// ErrUnclassifiable marks events the normalizer or classifier cannot
	// turn into a trade. Such events are dropped and logged, never surfaced
	// as user-facing errors: silence is preferred over a wrong guess.
	ErrUnclassifiable = errors.New("event not classifiable as a trade")
)
