package service

import "errors"

var (
	// ErrInvalidChannel is returned for empty or malformed channel
	// strings.
	ErrInvalidChannel = errors.New("service: invalid channel")

	// ErrMissingKey is returned when an operation needs a key and
	// neither an explicit nor a default one is available.
	ErrMissingKey = errors.New("service: no key supplied and no default key configured")

	// ErrPublishLimit is returned when the configured publish rate cap
	// rejects an outbound message.
	ErrPublishLimit = errors.New("service: publish rate limit exceeded")
)
