package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNetwork           = fmt.Errorf("network failure")
	ErrRemoteRejection   = fmt.Errorf("remote rejection")
	ErrParse             = fmt.Errorf("malformed payload")
	ErrResolutionTimeout = fmt.Errorf("address resolution timed out")
	ErrNoCandidate       = fmt.Errorf("no usable address candidate")
)

// StatusError is returned when the message store answers with a non-success status.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.Status, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrRemoteRejection
}

// Kind names the taxonomy bucket of err, for logging.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrResolutionTimeout):
		return "resolution_timeout"
	case errors.Is(err, ErrNoCandidate):
		return "no_candidate"
	case errors.Is(err, ErrRemoteRejection):
		return "remote_rejection"
	case errors.Is(err, ErrParse):
		return "parse_failure"
	case errors.Is(err, ErrNetwork):
		return "network_failure"
	default:
		return "unhandled"
	}
}
