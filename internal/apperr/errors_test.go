package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"timeout", fmt.Errorf("resolve: %w", ErrResolutionTimeout), "resolution_timeout"},
		{"no candidate", ErrNoCandidate, "no_candidate"},
		{"status", &StatusError{Op: "post", Status: http.StatusBadRequest}, "remote_rejection"},
		{"parse", fmt.Errorf("history: %w", ErrParse), "parse_failure"},
		{"network", fmt.Errorf("lookup: %w", ErrNetwork), "network_failure"},
		{"other", errors.New("boom"), "unhandled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestStatusError(t *testing.T) {
	req := require.New(t)

	err := fmt.Errorf("lookup 10.0.0.1: %w", &StatusError{Op: "lookup", Status: http.StatusNotFound, Body: "User not found"})

	var statusErr *StatusError
	req.ErrorAs(err, &statusErr)
	req.Equal(http.StatusNotFound, statusErr.Status)
	req.ErrorIs(err, ErrRemoteRejection)
	req.Equal("lookup: unexpected status 404: User not found", statusErr.Error())
	req.Equal("post: unexpected status 500", (&StatusError{Op: "post", Status: 500}).Error())
}
