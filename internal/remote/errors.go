package remote

import (
	"errors"
	"fmt"
)

// ErrNoEndpoint is returned when no webhook endpoint is configured.
var ErrNoEndpoint = errors.New("no remote endpoint configured")

// StatusError is a non-2xx answer from the webhook.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s - %s", e.Code, e.Status, e.Body)
}

// Permanent reports whether the remote rejected the payload itself (4xx)
// rather than failing to process it.
func (e *StatusError) Permanent() bool {
	return e.Code >= 400 && e.Code < 500
}

// IsStatusError reports whether err (or any error in its chain) is a
// StatusError.
func IsStatusError(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr)
}
