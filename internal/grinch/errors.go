package grinch

import "errors"

var (
	// ErrForbidden means the bot lacks the platform permission needed to
	// create, use or delete the webhook.
	ErrForbidden = errors.New("grinch: forbidden")

	// ErrGone means the webhook no longer exists on the platform side.
	ErrGone = errors.New("grinch: webhook gone")

	// ErrInvalidState is returned when summon finds a persona already active
	// in the channel, or banish finds none.
	ErrInvalidState = errors.New("grinch: invalid state")
)
