package domain

import "time"

// AttemptOutcome enumerates how one backend pass ended.
type AttemptOutcome string

const (
	AttemptSuccess        AttemptOutcome = "success"
	AttemptRetryableError AttemptOutcome = "retryable-error"
	AttemptFatalError     AttemptOutcome = "fatal-error"
)

// Attempt records one invocation pass of the generation loop. Attempts exist
// for diagnostics only: they belong to exactly one GenerationRequest, are
// never shared, and are dropped at the end of the request's lifetime.
type Attempt struct {
	Index    int
	Model    string
	Duration time.Duration
	Outcome  AttemptOutcome
	Artifact *Artifact
	Score    float64
	Scored   bool
	Err      error
}
