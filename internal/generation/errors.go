package generation

import "errors"

// Common errors returned by the generation package and its providers.
var (
	// ErrGenerationFailed is returned when generation fails for any general reason.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrInvalidResponse is returned when the LLM response cannot be parsed.
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the provider refuses the content.
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrRateLimited is returned by providers on HTTP 429. It is the only
	// error WithRateLimitRetry retries.
	ErrRateLimited = errors.New("language model rate limit reached")

	// ErrTransientFailure is returned for provider errors that may succeed later.
	ErrTransientFailure = errors.New("transient error from language model")

	// ErrInvalidConfig is returned when a provider configuration is invalid.
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrEmptyInput is returned when there is no text to work from.
	ErrEmptyInput = errors.New("input text cannot be empty")
)
