package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"genengine/internal/domain"
)

// StatusError carries the HTTP status and a trimmed body excerpt from a
// failed backend call.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 240 {
		body = body[:240]
	}
	if body == "" {
		return fmt.Sprintf("backend status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend status %d: %s", e.StatusCode, body)
}

// ClassifyStatus maps an HTTP status code onto the error taxonomy.
func ClassifyStatus(code int) domain.ErrorKind {
	switch code {
	case http.StatusServiceUnavailable:
		return domain.KindOverloaded
	case http.StatusTooManyRequests:
		return domain.KindRateLimited
	case http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusGatewayTimeout:
		return domain.KindTransient
	}
	return domain.KindFatal
}

// ClassifyTransport maps transport-level failures. Network faults and expired
// attempt deadlines are transient; only an explicit cancellation is not.
func ClassifyTransport(err error) domain.ErrorKind {
	switch {
	case errors.Is(err, context.Canceled):
		return domain.KindCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return domain.KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.KindTransient
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return domain.KindTransient
	}
	return domain.KindFatal
}

func statusErrorf(model string, code int, body string) error {
	return domain.NewBackendError(ClassifyStatus(code), model, &StatusError{StatusCode: code, Body: body})
}

func transportErrorf(model string, err error) error {
	return domain.NewBackendError(ClassifyTransport(err), model, err)
}
