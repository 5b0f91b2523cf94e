package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrUnsupportedModel = errors.New("unsupported model")
	ErrNoArtifact       = errors.New("no artifact produced")
)

// ErrorKind classifies a backend failure so callers can decide whether a
// retry is worthwhile and what to tell the user.
type ErrorKind string

const (
	// KindOverloaded covers backend-busy responses (503 class).
	KindOverloaded ErrorKind = "overloaded"
	// KindRateLimited covers quota and backoff responses (429 class).
	KindRateLimited ErrorKind = "rate_limited"
	// KindTransient covers network faults, timeouts and 5xx hiccups.
	KindTransient ErrorKind = "transient"
	// KindFatal covers malformed requests, unsupported modalities and other
	// permanent rejections. Never retried.
	KindFatal ErrorKind = "fatal"
	// KindTimeout marks a unit of work that exceeded its own deadline.
	KindTimeout ErrorKind = "timeout"
	// KindCancelled marks work abandoned because the caller gave up.
	KindCancelled ErrorKind = "cancelled"
)

// Retryable reports whether the kind is worth another backend call.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindOverloaded, KindRateLimited, KindTransient:
		return true
	}
	return false
}

// BackendError wraps a failed backend invocation with its classification.
type BackendError struct {
	Kind  ErrorKind
	Model string
	Err   error
}

func (e *BackendError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("backend %s: %s: %v", e.Model, e.Kind, e.Err)
	}
	return fmt.Sprintf("backend: %s: %v", e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError builds a classified backend error.
func NewBackendError(kind ErrorKind, model string, err error) *BackendError {
	return &BackendError{Kind: kind, Model: model, Err: err}
}

// RetryExhaustedError is the terminal error returned after the retry policy
// gives up on a retryable classification. It keeps the last classification so
// the caller can still produce a specific user-facing message.
type RetryExhaustedError struct {
	Kind     ErrorKind
	Attempts int
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts (%s): %v", e.Attempts, e.Kind, e.Last)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Last
}

// ContextError converts a done context into a typed error so callers can
// tell a deadline from a cancellation without touching context directly.
// A live context yields nil.
func ContextError(ctx context.Context) error {
	err := ctx.Err()
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewBackendError(KindTimeout, "", err)
	case err != nil:
		return NewBackendError(KindCancelled, "", err)
	}
	return nil
}

// KindOf extracts the classification from an error chain. Unclassified errors
// map to KindFatal so nothing is retried by accident.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind
	}
	var re *RetryExhaustedError
	if errors.As(err, &re) {
		return re.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	return KindFatal
}

// IsRetryable reports whether the retry policy may attempt the call again.
// An exhausted retry budget is terminal even though the classification it
// carries was retryable.
func IsRetryable(err error) bool {
	var re *RetryExhaustedError
	if errors.As(err, &re) {
		return false
	}
	return KindOf(err).Retryable()
}

// UserMessage renders a short, locale-aware message for a terminal error.
// Classification drives the copy: retryable exhaustion invites the user to
// try again, fatal errors surface the diagnostic.
func UserMessage(err error, locale string) string {
	if err == nil {
		return ""
	}
	indonesian := locale == "id"
	switch KindOf(err) {
	case KindOverloaded, KindRateLimited:
		if indonesian {
			return "Layanan pembuatan sedang sibuk, coba lagi sebentar lagi."
		}
		return "The generation backend is busy right now - please try again shortly."
	case KindTransient, KindTimeout:
		if indonesian {
			return "Koneksi ke layanan pembuatan terputus, coba lagi."
		}
		return "The generation backend could not be reached - please try again."
	case KindCancelled:
		if indonesian {
			return "Permintaan dibatalkan."
		}
		return "The request was cancelled."
	default:
		if indonesian {
			return fmt.Sprintf("Permintaan gagal: %v", err)
		}
		return fmt.Sprintf("Generation failed: %v", err)
	}
}
