// Package address discovers the caller's network address from the ICE
// candidates a local, never-connected peer connection gathers.
package address

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"msgboard/internal/apperr"
)

const DefaultTimeout = 5 * time.Second

// Gatherer starts local candidate gathering. onCandidate receives each
// candidate descriptor and done is called once gathering is complete.
// Both may be called from any goroutine, also after the closer has run.
type Gatherer interface {
	Gather(onCandidate func(descriptor string), done func()) (io.Closer, error)
}

type Resolver struct {
	gatherer Gatherer
	timeout  time.Duration
	log      *slog.Logger
}

func NewResolver(gatherer Gatherer, timeout time.Duration, log *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{gatherer: gatherer, timeout: timeout, log: log}
}

// Resolve returns the address of the first usable candidate. Every call
// negotiates afresh.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	found := make(chan string, 1)
	finished := make(chan struct{})
	var finishOnce sync.Once

	closer, err := r.gatherer.Gather(
		func(descriptor string) {
			addr, ok := ParseCandidate(descriptor)
			if !ok {
				r.log.Debug("Ignoring unusable candidate", "candidate", descriptor)
				return
			}
			select {
			case found <- addr:
			default:
			}
		},
		func() { finishOnce.Do(func() { close(finished) }) },
	)
	if err != nil {
		return "", fmt.Errorf("start negotiation: %w", err)
	}
	defer func() {
		if err := closer.Close(); err != nil {
			r.log.Warn("Failed to release peer connection", "error", err)
		}
	}()

	select {
	case addr := <-found:
		r.log.Debug("Resolved caller address", "address", addr)
		return addr, nil
	case <-finished:
		// the last candidate and the completion signal can race
		select {
		case addr := <-found:
			return addr, nil
		default:
		}
		return "", apperr.ErrNoCandidate
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", apperr.ErrResolutionTimeout, r.timeout)
		}
		return "", ctx.Err()
	}
}
