package recurring

import "errors"

var (
	// ErrValidation marks profile data that violates a field rule.
	ErrValidation = errors.New("recurring profile validation failed")
	// ErrInvalidTransition marks a lifecycle event the current status does not accept.
	ErrInvalidTransition = errors.New("invalid recurring profile transition")
	// ErrUnknownFrequency marks a frequency outside the supported set.
	ErrUnknownFrequency = errors.New("unknown recurring frequency")
)
