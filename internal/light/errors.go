package light

import "errors"

// Domain errors for the light synchronizer.
// Inbound handler failures wrap one of these; callers log and drop the message.
var (
	// ErrInvalidBrightness is returned when a brightness payload is not numeric.
	ErrInvalidBrightness = errors.New("light: invalid brightness payload")

	// ErrInvalidColor is returned when a color payload is not a hex triple.
	ErrInvalidColor = errors.New("light: invalid color payload")

	// ErrInvalidEffect is returned when an effect payload is not an integer.
	ErrInvalidEffect = errors.New("light: invalid effect payload")

	// ErrEffectOutOfRange is returned when an effect index is outside the catalog.
	ErrEffectOutOfRange = errors.New("light: effect index out of range")

	// ErrRenderFailed is returned when a value template cannot transform a payload.
	ErrRenderFailed = errors.New("light: value template failed")

	// ErrPublishFailed is returned when one or more command publishes fail.
	ErrPublishFailed = errors.New("light: publish failed")

	// ErrNoCommandTopic is returned by New when the power command topic is missing.
	ErrNoCommandTopic = errors.New("light: power command topic is required")

	// ErrAlreadyAttached is returned when Attach is called twice.
	ErrAlreadyAttached = errors.New("light: already attached")
)
